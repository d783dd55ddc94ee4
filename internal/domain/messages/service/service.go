package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/IT-Nick/proctor/internal/domain/model"
)

// MessageRepository хранилище текстов бота
type MessageRepository interface {
	GetMessageByKey(ctx context.Context, messageKey string) (string, error)
	SetMessage(ctx context.Context, messageKey, text string) error
}

// defaultMessages тексты, которые используются, если в базе нет своего варианта
var defaultMessages = map[string]string{
	model.MsgWelcome:          "Здравствуйте, %s! Это бот для прохождения тестов.",
	model.MsgStartTest:        "Начать тест",
	model.MsgNoAvailableTests: "Для вас пока нет назначенных тестов.",
	model.MsgTimer:            "⏰ Осталось: %s · Вопрос %d/%d",
	model.MsgTimeIsUp:         "⏰ Время вышло! Тест завершен автоматически.",
	model.MsgTestFinished:     "Тест завершен. Правильных ответов: %d из %d (%.0f%%).",
	model.MsgCandidateDone:    "Кандидат @%s завершил тест «%s» (%s): %d/%d, %.0f%%, %s.",
	model.MsgLinkAccepted:     "Тест «%s» добавлен в ваш список.",
	model.MsgLinkInvalid:      "Ссылка недействительна или уже использована.",
}

// MessageService содержит логику для работы с сообщениями
type MessageService struct {
	messageRepo MessageRepository
}

// NewMessageService создает новый экземпляр MessageService
func NewMessageService(messageRepo MessageRepository) *MessageService {
	return &MessageService{messageRepo: messageRepo}
}

// GetMessageByKey возвращает сообщение по ключу из базы данных, при отсутствии - текст по умолчанию
func (s *MessageService) GetMessageByKey(ctx context.Context, messageKey string) (string, error) {
	message, err := s.messageRepo.GetMessageByKey(ctx, messageKey)
	if err == nil {
		return message, nil
	}

	fallback, ok := defaultMessages[messageKey]
	if !ok {
		return "", fmt.Errorf("failed to get message by key: %w", err)
	}
	if !errors.Is(err, model.ErrMessageNotFound) {
		log.Printf("Failed to load message %s, using default: %v", messageKey, err)
	}
	return fallback, nil
}

// Text сообщение по ключу с подставленными аргументами. Ошибки не возвращает.
func (s *MessageService) Text(ctx context.Context, messageKey string, args ...any) string {
	message, err := s.GetMessageByKey(ctx, messageKey)
	if err != nil {
		log.Printf("Message %s is not available: %v", messageKey, err)
		return messageKey
	}
	if len(args) == 0 {
		return message
	}
	return fmt.Sprintf(message, args...)
}

// ImportMessages сохраняет тексты сообщений
func (s *MessageService) ImportMessages(ctx context.Context, messages map[string]string) error {
	for key, text := range messages {
		if err := s.messageRepo.SetMessage(ctx, key, text); err != nil {
			return fmt.Errorf("failed to import message %s: %w", key, err)
		}
	}
	return nil
}
