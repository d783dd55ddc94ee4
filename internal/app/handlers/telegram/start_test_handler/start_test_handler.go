package start_test_handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/IT-Nick/proctor/internal/app/handlers/telegram/question"
	"github.com/IT-Nick/proctor/internal/app/session"
	messageService "github.com/IT-Nick/proctor/internal/domain/messages/service"
	"github.com/IT-Nick/proctor/internal/domain/model"
	testService "github.com/IT-Nick/proctor/internal/domain/tests/service"
	usersService "github.com/IT-Nick/proctor/internal/domain/users/service"
	"github.com/IT-Nick/proctor/internal/infra/timer"
	"gopkg.in/telebot.v4"
)

// StartTestHandler структура для обработки нажатия кнопки "Начать тест"
type StartTestHandler struct {
	userService    *usersService.UserService
	testService    *testService.TestService
	messageService *messageService.MessageService
	sessions       *session.Sessions
}

// NewStartTestHandler возвращает новый экземпляр обработчика
func NewStartTestHandler(
	userService *usersService.UserService,
	testService *testService.TestService,
	messageService *messageService.MessageService,
	sessions *session.Sessions,
) *StartTestHandler {
	return &StartTestHandler{
		userService:    userService,
		testService:    testService,
		messageService: messageService,
		sessions:       sessions,
	}
}

// Handle начинает первый назначенный тест: сообщение с таймером, таймер и первый вопрос
func (h *StartTestHandler) Handle(c telebot.Context) error {
	ctx := context.Background()

	user, err := h.userService.GetUserByTelegramID(ctx, c.Sender().ID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return c.Send("Сначала отправьте /start.")
	}

	// Повторное нажатие во время попытки
	if _, err := h.testService.GetInProgressAttempt(ctx, user.ID); err == nil {
		return c.Send("Тест уже идет, ответьте на текущий вопрос.")
	} else if !errors.Is(err, model.ErrUserTestNotFound) {
		return fmt.Errorf("failed to check in-progress test: %w", err)
	}

	tests, err := h.testService.GetAvailableTestsForUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to get available tests: %w", err)
	}
	if len(tests) == 0 {
		return c.Send(h.messageService.Text(ctx, model.MsgNoAvailableTests))
	}

	attempt, err := h.testService.StartTest(ctx, user.ID, tests[0].ID)
	if errors.Is(err, model.ErrNotAssigned) {
		return c.Send(h.messageService.Text(ctx, model.MsgNoAvailableTests))
	}
	if err != nil {
		return fmt.Errorf("failed to start test: %w", err)
	}

	if attempt.Test.HasTimeLimit() {
		if err := h.startTimer(ctx, c, attempt); err != nil {
			return err
		}
	} else {
		if err := c.Send(fmt.Sprintf("Тест «%s» начат. Время не ограничено.", attempt.Test.TestName)); err != nil {
			return err
		}
	}

	first := attempt.CurrentQuestion()
	if first == nil {
		return fmt.Errorf("user test %d: %w", attempt.UserTest.ID, model.ErrNoQuestions)
	}
	return question.Send(c.Bot(), c.Recipient(), *first, 1, attempt.Total())
}

// startTimer отправляет сообщение с таймером и запускает отсчет
func (h *StartTestHandler) startTimer(ctx context.Context, c telebot.Context, attempt *testService.Attempt) error {
	remaining := timer.FormatRemaining(*attempt.Test.Duration * 60)
	text := h.messageService.Text(ctx, model.MsgTimer, remaining, 1, attempt.Total())

	msg, err := c.Bot().Send(c.Recipient(), text)
	if err != nil {
		return fmt.Errorf("failed to send timer message: %w", err)
	}
	if err := h.testService.SaveTimerMessage(ctx, attempt.UserTest.ID, msg.Chat.ID, msg.ID); err != nil {
		return err
	}

	attempt, err = h.testService.GetAttempt(ctx, attempt.UserTest.ID)
	if err != nil {
		return err
	}
	if err := h.sessions.Start(ctx, attempt); err != nil {
		return fmt.Errorf("failed to start timer: %w", err)
	}
	return nil
}

// GetHandlerFunc возвращает обработчик в формате telebot.HandlerFunc
func (h *StartTestHandler) GetHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.Handle(c)
	}
}
