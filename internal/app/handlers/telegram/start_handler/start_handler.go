package start_handler

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/IT-Nick/proctor/internal/app/handlers/telegram/question"
	messageService "github.com/IT-Nick/proctor/internal/domain/messages/service"
	"github.com/IT-Nick/proctor/internal/domain/model"
	testService "github.com/IT-Nick/proctor/internal/domain/tests/service"
	usersService "github.com/IT-Nick/proctor/internal/domain/users/service"
	"gopkg.in/telebot.v4"
)

// StartHandler структура для обработки команды /start
type StartHandler struct {
	userService    *usersService.UserService
	messageService *messageService.MessageService
	testService    *testService.TestService
}

// NewStartHandler возвращает структуру обработчика
func NewStartHandler(
	userService *usersService.UserService,
	messageService *messageService.MessageService,
	testService *testService.TestService,
) *StartHandler {
	return &StartHandler{
		userService:    userService,
		messageService: messageService,
		testService:    testService,
	}
}

// Handle регистрирует пользователя, активирует отложенные тесты и ссылку-приглашение из payload
func (h *StartHandler) Handle(c telebot.Context) error {
	sender := c.Sender()
	ctx := context.Background()

	user, created, err := h.userService.GetOrCreateUser(ctx, sender.Username, sender.ID, sender.FirstName)
	if err != nil {
		return fmt.Errorf("failed to process user: %w", err)
	}
	if created {
		log.Printf("Registered user %d (@%s)", user.ID, user.TelegramUsername)
	}

	if _, err := h.testService.ProcessPendingTests(ctx, user.ID, user.TelegramUsername); err != nil {
		return fmt.Errorf("failed to process pending tests: %w", err)
	}

	if payload := c.Message().Payload; payload != "" {
		if err := h.acceptLink(ctx, c, user, payload); err != nil {
			return err
		}
	}

	name := sender.FirstName
	if name == "" {
		name = user.TelegramUsername
	}
	welcome := h.messageService.Text(ctx, model.MsgWelcome, name)
	if allowed, err := h.userService.HasPermission(ctx, user, model.PermissionAssignTests); err == nil && allowed {
		welcome += "\n\nНазначить тест кандидату: /assign"
	}

	tests, err := h.testService.GetAvailableTestsForUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to retrieve assigned tests: %w", err)
	}
	if len(tests) == 0 {
		return c.Send(welcome + "\n\n" + h.messageService.Text(ctx, model.MsgNoAvailableTests))
	}

	test := tests[0]
	details := fmt.Sprintf("Назначен тест «%s»: %s, вопросов: %d.", test.TestName, durationText(test.Duration), test.QuestionCount)

	markup := &telebot.ReplyMarkup{}
	markup.Inline(markup.Row(markup.Data(h.messageService.Text(ctx, model.MsgStartTest), model.StartTestKey)))

	return c.Send(welcome+"\n\n"+details, markup)
}

// acceptLink назначает тест по ссылке-приглашению
func (h *StartHandler) acceptLink(ctx context.Context, c telebot.Context, user *model.User, payload string) error {
	testID, token, ok := question.ParseStartPayload(payload)
	if !ok {
		return c.Send(h.messageService.Text(ctx, model.MsgLinkInvalid))
	}

	test, _, err := h.testService.AssignByLink(ctx, user.ID, token)
	if errors.Is(err, model.ErrLinkNotFound) {
		return c.Send(h.messageService.Text(ctx, model.MsgLinkInvalid))
	}
	if err != nil {
		return fmt.Errorf("failed to accept test link: %w", err)
	}
	if test.ID != testID {
		log.Printf("Link token for test %d was used with test id %d in payload", test.ID, testID)
	}

	return c.Send(h.messageService.Text(ctx, model.MsgLinkAccepted, test.TestName))
}

// GetHandlerFunc возвращает обработчик в формате telebot.HandlerFunc
func (h *StartHandler) GetHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.Handle(c)
	}
}

func durationText(minutes *int) string {
	if minutes == nil {
		return "без ограничения по времени"
	}
	return fmt.Sprintf("%d мин", *minutes)
}
