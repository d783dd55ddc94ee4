package question

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/IT-Nick/proctor/internal/domain/model"
	"gopkg.in/telebot.v4"
)

// Sender отправка сообщений (реализуется *telebot.Bot)
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// Render текст вопроса с порядковым номером и клавиатура с вариантами ответа
func Render(q model.Question, number, total int) (string, *telebot.ReplyMarkup) {
	text := fmt.Sprintf("❓ *Вопрос %d из %d:*\n%s", number, total, q.QuestionText)

	markup := &telebot.ReplyMarkup{}
	rows := make([]telebot.Row, 0, len(q.TestOptions))
	for i, option := range q.TestOptions {
		btn := markup.Data(fmt.Sprintf("%d. %s", i+1, option), AnswerData(q.ID, i))
		rows = append(rows, markup.Row(btn))
	}
	markup.Inline(rows...)
	return text, markup
}

// Send отправляет вопрос получателю
func Send(bot Sender, to telebot.Recipient, q model.Question, number, total int) error {
	text, markup := Render(q, number, total)
	if _, err := bot.Send(to, text, &telebot.SendOptions{
		ParseMode:   telebot.ModeMarkdown,
		ReplyMarkup: markup,
	}); err != nil {
		return fmt.Errorf("failed to send question: %w", err)
	}
	return nil
}

// AnswerData данные кнопки ответа: answer_<questionID>_<optionIndex>
func AnswerData(questionID, optionIndex int) string {
	return fmt.Sprintf("%s%d_%d", model.AnswerPrefix, questionID, optionIndex)
}

// CleanData убирает служебные символы telebot из данных callback
func CleanData(data string) string {
	cleaned := strings.TrimSpace(data)
	cleaned = strings.ReplaceAll(cleaned, "\f", "")
	cleaned = strings.ReplaceAll(cleaned, "\\f", "")
	// Для кнопок с payload telebot передает unique|data
	if i := strings.IndexByte(cleaned, '|'); i >= 0 {
		cleaned = cleaned[:i]
	}
	return cleaned
}

// ParseAnswer разбирает данные кнопки ответа
func ParseAnswer(data string) (questionID, optionIndex int, ok bool) {
	cleaned := CleanData(data)
	if !strings.HasPrefix(cleaned, model.AnswerPrefix) {
		return 0, 0, false
	}

	parts := strings.Split(strings.TrimPrefix(cleaned, model.AnswerPrefix), "_")
	if len(parts) != 2 {
		return 0, 0, false
	}
	questionID, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	optionIndex, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return questionID, optionIndex, true
}

// ParseStartPayload разбирает ссылку-приглашение test_<testID>_<token>
func ParseStartPayload(payload string) (testID int, token string, ok bool) {
	payload = strings.TrimSpace(payload)
	if !strings.HasPrefix(payload, "test_") {
		return 0, "", false
	}
	rest := strings.TrimPrefix(payload, "test_")
	idStr, token, found := strings.Cut(rest, "_")
	if !found || token == "" {
		return 0, "", false
	}
	testID, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, "", false
	}
	return testID, token, true
}
