package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/IT-Nick/proctor/internal/domain/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageRepository реализация интерфейса для работы с сообщениями
type MessageRepository struct {
	db *pgxpool.Pool
}

// NewMessageRepository создает новый экземпляр MessageRepository
func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// GetMessageByKey возвращает текст сообщения по ключу
func (r *MessageRepository) GetMessageByKey(ctx context.Context, messageKey string) (string, error) {
	var messageText string
	err := r.db.QueryRow(ctx, "SELECT message_text FROM messages WHERE message_key=$1", messageKey).
		Scan(&messageText)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("message with key %s: %w", messageKey, model.ErrMessageNotFound)
		}
		return "", fmt.Errorf("failed to get message: %w", err)
	}
	return messageText, nil
}

// SetMessage сохраняет или заменяет текст сообщения
func (r *MessageRepository) SetMessage(ctx context.Context, messageKey, text string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO messages (message_key, message_text) VALUES ($1, $2)
		ON CONFLICT (message_key) DO UPDATE SET message_text = EXCLUDED.message_text`,
		messageKey, text)
	if err != nil {
		return fmt.Errorf("failed to set message: %w", err)
	}
	return nil
}
