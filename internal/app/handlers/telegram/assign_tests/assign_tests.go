package assign_tests

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/IT-Nick/proctor/internal/domain/model"
	testsService "github.com/IT-Nick/proctor/internal/domain/tests/service"
	usersService "github.com/IT-Nick/proctor/internal/domain/users/service"
	"gopkg.in/telebot.v4"
)

const pageSize = 3

const pageTitle = "Какой тест назначить кандидату?"

// AssignHandler назначение теста из бота: каталог по страницам, выбор теста, ввод @username
type AssignHandler struct {
	userService *usersService.UserService
	testService *testsService.TestService

	mutex    sync.Mutex
	selected map[int64]int // telegram id HR -> выбранный тест
}

func NewAssignHandler(userService *usersService.UserService, testService *testsService.TestService) *AssignHandler {
	return &AssignHandler{
		userService: userService,
		testService: testService,
		selected:    make(map[int64]int),
	}
}

// HandleCommand обрабатывает /assign и показывает первую страницу каталога
func (h *AssignHandler) HandleCommand(c telebot.Context) error {
	ctx := context.Background()
	allowed, err := h.allowed(ctx, c.Sender().ID)
	if err != nil {
		return err
	}
	if !allowed {
		return c.Send("Недостаточно прав для назначения тестов.")
	}

	markup, err := h.page(ctx, 1)
	if err != nil {
		return err
	}
	return c.Send(pageTitle, markup)
}

// HandlePage листает каталог
func (h *AssignHandler) HandlePage(c telebot.Context) error {
	ctx := context.Background()
	allowed, err := h.allowed(ctx, c.Sender().ID)
	if err != nil {
		return err
	}
	if !allowed {
		return nil
	}

	page, err := strconv.Atoi(c.Callback().Data)
	if err != nil || page < 1 {
		page = 1
	}

	markup, err := h.page(ctx, page)
	if err != nil {
		return err
	}
	return c.Edit(pageTitle, markup)
}

// HandleSelect запоминает выбранный тест и просит ввести кандидата
func (h *AssignHandler) HandleSelect(c telebot.Context) error {
	ctx := context.Background()
	allowed, err := h.allowed(ctx, c.Sender().ID)
	if err != nil {
		return err
	}
	if !allowed {
		return nil
	}

	testID, err := strconv.Atoi(c.Callback().Data)
	if err != nil {
		return c.Send("Ошибка при выборе теста.")
	}
	test, err := h.testService.GetTestByID(ctx, testID)
	if errors.Is(err, model.ErrTestNotFound) {
		return c.Send("Тест не найден.")
	}
	if err != nil {
		return err
	}

	h.mutex.Lock()
	h.selected[c.Sender().ID] = testID
	h.mutex.Unlock()

	return c.Send(fmt.Sprintf("Тест «%s» выбран. Введите имя кандидата (например, @username).", test.TestName))
}

// HandleText назначает выбранный тест кандидату из сообщения. Без выбранного теста ничего не делает.
func (h *AssignHandler) HandleText(c telebot.Context) error {
	senderID := c.Sender().ID

	h.mutex.Lock()
	testID, exists := h.selected[senderID]
	h.mutex.Unlock()
	if !exists {
		return nil
	}

	username, ok := ParseUsername(c.Text())
	if !ok {
		return c.Send("Пожалуйста, укажите имя пользователя в формате @username.")
	}

	assignedBy := c.Sender().Username
	if assignedBy == "" {
		return c.Send("Не удалось определить, кто назначает тест. Установите username в Telegram.")
	}

	_, pending, err := h.testService.AssignTest(context.Background(), username, testID, assignedBy)
	if err != nil {
		return c.Send(fmt.Sprintf("Ошибка при назначении теста: %v", err))
	}

	h.mutex.Lock()
	delete(h.selected, senderID)
	h.mutex.Unlock()

	if pending {
		return c.Send(fmt.Sprintf("Пользователь @%s еще не писал боту. Тест появится у него после /start.", username))
	}
	return c.Send(fmt.Sprintf("Тест #%d назначен пользователю @%s.", testID, username))
}

func (h *AssignHandler) allowed(ctx context.Context, telegramID int64) (bool, error) {
	user, err := h.userService.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return false, fmt.Errorf("failed to get user: %w", err)
	}
	return h.userService.HasPermission(ctx, user, model.PermissionAssignTests)
}

func (h *AssignHandler) page(ctx context.Context, page int) (*telebot.ReplyMarkup, error) {
	tests, err := h.testService.GetTestsWithPagination(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get tests: %w", err)
	}
	next, err := h.testService.GetTestsWithPagination(ctx, page+1, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get tests: %w", err)
	}
	return Keyboard(tests, page, len(next) > 0), nil
}

// Keyboard клавиатура страницы каталога: по тесту в строке и кнопки пагинации
func Keyboard(tests []model.Test, page int, hasNext bool) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}

	rows := make([]telebot.Row, 0, len(tests)+1)
	for _, test := range tests {
		rows = append(rows, markup.Row(markup.Data(test.TestName, model.AssignSelectKey, strconv.Itoa(test.ID))))
	}

	var pagination []telebot.Btn
	if page > 1 {
		pagination = append(pagination, markup.Data("<", model.AssignPageKey, strconv.Itoa(page-1)))
	}
	if hasNext {
		pagination = append(pagination, markup.Data(">", model.AssignPageKey, strconv.Itoa(page+1)))
	}
	if len(pagination) > 0 {
		rows = append(rows, markup.Row(pagination...))
	}

	markup.Inline(rows...)
	return markup
}

// ParseUsername разбирает "@username"
func ParseUsername(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "@") {
		return "", false
	}
	username := strings.TrimPrefix(text, "@")
	if username == "" || strings.ContainsAny(username, " \t\n@") {
		return "", false
	}
	return username, true
}
