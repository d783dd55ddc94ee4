package timer

import (
	"context"
	"errors"
	"sync"
)

// Display поверхность, на которой показывается оставшееся время
type Display interface {
	Show(ctx context.Context, text string) error
}

// Field скрытое поле с прошедшим временем, читается при отправке результата
type Field interface {
	Set(ctx context.Context, elapsedSeconds int) error
}

// Form отправка результата попытки
type Form interface {
	Submit(ctx context.Context) error
}

// DisplayFunc адаптер функции к Display
type DisplayFunc func(ctx context.Context, text string) error

func (f DisplayFunc) Show(ctx context.Context, text string) error {
	return f(ctx, text)
}

// FormFunc адаптер функции к Form
type FormFunc func(ctx context.Context) error

func (f FormFunc) Submit(ctx context.Context) error {
	return f(ctx)
}

// ElapsedField хранит прошедшее время в памяти
type ElapsedField struct {
	mu      sync.RWMutex
	seconds int
}

func (f *ElapsedField) Set(_ context.Context, elapsedSeconds int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seconds = elapsedSeconds
	return nil
}

// Value возвращает последнее записанное значение
func (f *ElapsedField) Value() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.seconds
}

// MultiDisplay показывает текст на всех поверхностях сразу.
// Ошибка одной поверхности не мешает остальным.
type MultiDisplay []Display

func (m MultiDisplay) Show(ctx context.Context, text string) error {
	var errs []error
	for _, d := range m {
		if d == nil {
			continue
		}
		if err := d.Show(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
