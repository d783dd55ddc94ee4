package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/IT-Nick/proctor/internal/domain/dto"
	"github.com/IT-Nick/proctor/internal/infra/timer"
	"github.com/jung-kurt/gofpdf"
)

const (
	fontRegular = "DejaVuSans.ttf"
	fontBold    = "DejaVuSans-Bold.ttf"
)

var finishReasons = map[string]string{
	"completed": "все вопросы отвечены",
	"timeout":   "время вышло",
}

// Generator формирует PDF-отчеты по попыткам
type Generator struct {
	fontDir string
}

// NewGenerator создает генератор. В fontDir ищутся шрифты DejaVu с кириллицей,
// без них используется встроенный Helvetica.
func NewGenerator(fontDir string) *Generator {
	return &Generator{fontDir: fontDir}
}

// Write формирует отчет по попытке и пишет его в w
func (g *Generator) Write(w io.Writer, r *dto.AttemptReport) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	family, tr := g.setupFonts(pdf)

	pdf.SetFont(family, "", 14)
	pdf.AddPage()

	// Заголовок отчёта.
	pdf.SetFont(family, "B", 16)
	pdf.MultiCell(0, 10, tr("Отчет по тестированию"), "", "L", false)
	pdf.Ln(4)

	verdict := "не пройден"
	if r.Passed {
		verdict = "пройден"
	}
	reason := finishReasons[r.FinishReason]
	if reason == "" {
		reason = r.FinishReason
	}

	pdf.SetFont(family, "", 12)
	info := fmt.Sprintf("Кандидат: %s\nUsername: @%s\nТест: %s (%s)\nЛимит времени: %s\nНачало: %s\nОкончание: %s\n",
		r.FullName, r.TelegramUsername, r.TestName, r.TestType, durationText(r.Duration), r.StartTime, r.EndTime)
	pdf.MultiCell(0, 8, tr(info), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont(family, "B", 12)
	result := fmt.Sprintf("Результат: %d/%d (%.0f%%), проходной балл %d%%, тест %s\nЗатраченное время: %s\nЗавершение: %s\n",
		r.CorrectAnswers, r.TotalQuestions, r.ScorePercentage, r.PassingScore, verdict, timer.FormatRemaining(r.TimeTaken), reason)
	pdf.MultiCell(0, 8, tr(result), "", "L", false)
	pdf.Ln(4)

	for i, q := range r.Questions {
		pdf.SetFont(family, "B", 12)
		pdf.MultiCell(0, 8, tr(fmt.Sprintf("Вопрос %d:", i+1)), "", "L", false)

		pdf.SetFont(family, "", 12)
		pdf.MultiCell(0, 8, tr(q.QuestionText), "", "L", false)
		pdf.Ln(2)

		answer := q.UserAnswer
		if answer == "" {
			answer = "нет ответа"
		}
		mark := "неверно"
		if q.IsCorrect {
			mark = "верно"
		}
		answerLine := fmt.Sprintf("Ответ кандидата: %s (%s)\nПравильный: %s\n", answer, mark, q.CorrectAnswer)
		if q.Explanation != "" {
			answerLine += "Пояснение: " + q.Explanation + "\n"
		}
		pdf.MultiCell(0, 8, tr(answerLine), "", "L", false)
		pdf.Ln(4)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("report.Write: %w", err)
	}
	return nil
}

// setupFonts регистрирует UTF-8 шрифты, если они есть, иначе возвращает встроенный шрифт
func (g *Generator) setupFonts(pdf *gofpdf.Fpdf) (string, func(string) string) {
	if g.fontDir != "" {
		regular := filepath.Join(g.fontDir, fontRegular)
		bold := filepath.Join(g.fontDir, fontBold)
		if fileExists(regular) && fileExists(bold) {
			pdf.AddUTF8Font("DejaVu", "", regular)
			pdf.AddUTF8Font("DejaVu", "B", bold)
			return "DejaVu", func(s string) string { return s }
		}
	}
	return "Helvetica", pdf.UnicodeTranslatorFromDescriptor("")
}

func durationText(minutes *int) string {
	if minutes == nil || *minutes == 0 {
		return "без ограничения"
	}
	return fmt.Sprintf("%d мин", *minutes)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
