package answer_handler

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/IT-Nick/proctor/internal/app/handlers/telegram/question"
	"github.com/IT-Nick/proctor/internal/app/session"
	messageService "github.com/IT-Nick/proctor/internal/domain/messages/service"
	"github.com/IT-Nick/proctor/internal/domain/model"
	testsService "github.com/IT-Nick/proctor/internal/domain/tests/service"
	usersService "github.com/IT-Nick/proctor/internal/domain/users/service"
	"gopkg.in/telebot.v4"
)

type AnswerHandler struct {
	userService    *usersService.UserService
	testService    *testsService.TestService
	messageService *messageService.MessageService
	sessions       *session.Sessions
}

func NewAnswerHandler(
	userService *usersService.UserService,
	testService *testsService.TestService,
	messageService *messageService.MessageService,
	sessions *session.Sessions,
) *AnswerHandler {
	return &AnswerHandler{
		userService:    userService,
		testService:    testService,
		messageService: messageService,
		sessions:       sessions,
	}
}

func (h *AnswerHandler) Handle(c telebot.Context) error {
	questionID, optionIndex, ok := question.ParseAnswer(c.Callback().Data)
	if !ok {
		return nil
	}

	ctx := context.Background()
	user, err := h.userService.GetUserByTelegramID(ctx, c.Sender().ID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return c.Send("Сначала отправьте /start.")
	}

	attempt, err := h.testService.GetInProgressAttempt(ctx, user.ID)
	if errors.Is(err, model.ErrUserTestNotFound) {
		return c.Send("Тест уже завершен.")
	}
	if err != nil {
		return fmt.Errorf("failed to get in-progress test: %w", err)
	}
	userTestID := attempt.UserTest.ID

	result, err := h.testService.SubmitAnswer(ctx, userTestID, questionID, optionIndex)
	switch {
	case errors.Is(err, model.ErrAlreadyFinished):
		return c.Send("Тест уже завершен.")
	case errors.Is(err, model.ErrQuestionMismatch):
		// Кнопка старого вопроса
		return c.Send("Ответ на этот вопрос уже принят.")
	case errors.Is(err, model.ErrInvalidOption):
		return fmt.Errorf("user test %d: %w", userTestID, err)
	case err != nil:
		return fmt.Errorf("failed to save answer: %w", err)
	}

	// Удаляем предыдущее сообщение с вопросом
	if msg := c.Message(); msg != nil {
		if err := c.Bot().Delete(msg); err != nil {
			log.Printf("Failed to delete previous question: %v", err)
		}
	}

	h.sessions.Answered(userTestID, result.Answered)

	if result.Done() {
		testResult, finished, err := h.sessions.Complete(ctx, userTestID)
		if err != nil {
			return fmt.Errorf("failed to finish test: %w", err)
		}
		if !finished {
			// Время вышло раньше, результат уже отправлен
			return nil
		}
		return c.Send(h.messageService.Text(ctx, model.MsgTestFinished,
			testResult.CorrectAnswers, testResult.TotalQuestions, testResult.ScorePercentage))
	}

	return question.Send(c.Bot(), c.Recipient(), *result.Next, result.Answered+1, result.Total)
}

// GetHandlerFunc возвращает обработчик в формате telebot.HandlerFunc
func (h *AnswerHandler) GetHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.Handle(c)
	}
}
