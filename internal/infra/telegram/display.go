package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v4"
)

// Editor правка уже отправленного сообщения (реализуется *telebot.Bot)
type Editor interface {
	Edit(msg telebot.Editable, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// MessageDisplay показывает оставшееся время правкой сообщения с таймером.
// Правки всех таймеров проходят через общий limiter, лишние кадры пропускаются.
type MessageDisplay struct {
	editor  Editor
	message telebot.StoredMessage
	limiter *rate.Limiter
	render  func(remaining string) string

	mu    sync.Mutex
	last  string
	final bool // после Final кадры таймера не показываются
}

// NewMessageDisplay создает отображение таймера в сообщении chatID/messageID.
// render собирает полный текст сообщения из m:ss, nil - показывать m:ss как есть.
func NewMessageDisplay(editor Editor, chatID int64, messageID int, limiter *rate.Limiter, render func(string) string) *MessageDisplay {
	return &MessageDisplay{
		editor:  editor,
		message: telebot.StoredMessage{ChatID: chatID, MessageID: strconv.Itoa(messageID)},
		limiter: limiter,
		render:  render,
	}
}

// Show правит сообщение таймера
func (d *MessageDisplay) Show(_ context.Context, remaining string) error {
	text := remaining
	if d.render != nil {
		text = d.render(remaining)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.final || text == d.last {
		return nil
	}
	if d.limiter != nil && !d.limiter.Allow() {
		return nil
	}

	if _, err := d.editor.Edit(d.message, text); err != nil {
		if IsNotModified(err) {
			d.last = text
			return nil
		}
		return err
	}
	d.last = text
	return nil
}

// Final выставляет итоговый текст сообщения в обход ограничителя. Последующие Show ничего не делают.
func (d *MessageDisplay) Final(text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.final = true

	if _, err := d.editor.Edit(d.message, text); err != nil && !IsNotModified(err) {
		return err
	}
	d.last = text
	return nil
}

// IsNotModified ошибка Telegram о том, что текст сообщения не изменился
func IsNotModified(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, telebot.ErrSameMessageContent) || strings.Contains(err.Error(), "message is not modified")
}
