package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/IT-Nick/proctor/internal/domain/model"
	tele "gopkg.in/telebot.v4"
)

// UserLookup поиск пользователя по Telegram ID для отладочных сообщений
type UserLookup interface {
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
}

// Logger логирует входящие обновления Telegram в JSON.
// Если логгер не передан, используется log.Default().
func Logger(logger ...*log.Logger) tele.MiddlewareFunc {
	l := log.Default()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			data, _ := json.MarshalIndent(c.Update(), "", "  ")
			l.Println(string(data))
			return next(c)
		}
	}
}

// Recover перехватывает панику в обработчике и превращает ее в ошибку.
// По умолчанию паника только логируется.
func Recover(onError ...func(error, tele.Context)) tele.MiddlewareFunc {
	handleError := func(err error, _ tele.Context) {
		log.Printf("Recovered from panic: %v", err)
	}
	if len(onError) > 0 && onError[0] != nil {
		handleError = onError[0]
	}

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					var e error
					switch x := r.(type) {
					case error:
						e = x
					case string:
						e = errors.New(x)
					default:
						e = fmt.Errorf("unknown panic: %v", x)
					}
					handleError(e, c)
					err = e
				}
			}()
			return next(c)
		}
	}
}

// AutoRespond отвечает на callback, чтобы у кнопки пропал индикатор загрузки
func AutoRespond() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Callback() != nil {
				defer func() {
					if err := c.Respond(); err != nil {
						log.Printf("Failed to respond to callback: %v", err)
					}
				}()
			}
			return next(c)
		}
	}
}

// DebugUserActions в режиме отладки отправляет пользователю его роль и действие
func DebugUserActions(enabled bool, users UserLookup) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			err := next(c)
			if !enabled || c.Sender() == nil {
				return err
			}

			sender := c.Sender()
			roleID := 0
			if users != nil {
				if user, lookupErr := users.GetUserByTelegramID(context.Background(), sender.ID); lookupErr == nil && user != nil {
					roleID = user.RoleID
				}
			}

			action := DescribeAction(c)
			debugMsg := fmt.Sprintf("DEBUG: User: %s (ID: %d), RoleID: %d, Action: %s", sender.FirstName, sender.ID, roleID, action)
			if err != nil {
				debugMsg += fmt.Sprintf(", Error: %v", err)
			}
			go func() {
				if _, sendErr := c.Bot().Send(sender, debugMsg); sendErr != nil {
					log.Printf("Failed to send debug message: %v", sendErr)
				}
			}()
			return err
		}
	}
}

// DescribeAction краткое описание действия пользователя
func DescribeAction(c tele.Context) string {
	if cb := c.Callback(); cb != nil {
		return "Callback: " + cb.Data
	}
	if msg := c.Message(); msg != nil {
		return "Message: " + msg.Text
	}
	return "Unknown action"
}
