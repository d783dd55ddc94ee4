package timer

import "fmt"

// FormatRemaining форматирует секунды как m:ss. Отрицательные значения показываются как 0:00.
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
