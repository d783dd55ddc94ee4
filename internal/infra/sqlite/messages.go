package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/IT-Nick/proctor/internal/domain/model"
)

// MessageRepository тексты бота в SQLite
type MessageRepository struct {
	db *DB
}

// NewMessageRepository создает репозиторий сообщений
func NewMessageRepository(db *DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// GetMessageByKey возвращает текст сообщения по ключу
func (r *MessageRepository) GetMessageByKey(ctx context.Context, messageKey string) (string, error) {
	var text string
	err := r.db.QueryRowContext(ctx, "SELECT message_text FROM messages WHERE message_key = ?", messageKey).Scan(&text)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("message with key %s: %w", messageKey, model.ErrMessageNotFound)
		}
		return "", fmt.Errorf("failed to get message: %w", err)
	}
	return text, nil
}

// SetMessage сохраняет или заменяет текст сообщения
func (r *MessageRepository) SetMessage(ctx context.Context, messageKey, text string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO messages (message_key, message_text) VALUES (?, ?) ON CONFLICT(message_key) DO UPDATE SET message_text = excluded.message_text",
		messageKey, text)
	if err != nil {
		return fmt.Errorf("failed to set message: %w", err)
	}
	return nil
}
