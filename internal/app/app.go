package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/IT-Nick/proctor/internal/app/handlers/http/active_tests_handler"
	"github.com/IT-Nick/proctor/internal/app/handlers/http/assign_test_handler"
	"github.com/IT-Nick/proctor/internal/app/handlers/http/attempt_report_handler"
	"github.com/IT-Nick/proctor/internal/app/handlers/http/generate_test_link_handler"
	"github.com/IT-Nick/proctor/internal/app/handlers/http/timer_ws_handler"
	"github.com/IT-Nick/proctor/internal/app/handlers/http/update_user_role_handler"
	"github.com/IT-Nick/proctor/internal/app/handlers/http/user_test_report_handler"
	"github.com/IT-Nick/proctor/internal/app/handlers/telegram/answer_handler"
	"github.com/IT-Nick/proctor/internal/app/handlers/telegram/assign_tests"
	"github.com/IT-Nick/proctor/internal/app/handlers/telegram/question"
	"github.com/IT-Nick/proctor/internal/app/handlers/telegram/start_handler"
	"github.com/IT-Nick/proctor/internal/app/handlers/telegram/start_test_handler"
	"github.com/IT-Nick/proctor/internal/app/middleware"
	"github.com/IT-Nick/proctor/internal/app/session"
	msgService "github.com/IT-Nick/proctor/internal/domain/messages/service"
	"github.com/IT-Nick/proctor/internal/domain/model"
	testsService "github.com/IT-Nick/proctor/internal/domain/tests/service"
	usersService "github.com/IT-Nick/proctor/internal/domain/users/service"
	"github.com/IT-Nick/proctor/internal/infra/config"
	"github.com/IT-Nick/proctor/internal/infra/report"
	"github.com/IT-Nick/proctor/internal/infra/telegram"
	"github.com/IT-Nick/proctor/internal/infra/timer"
	"github.com/IT-Nick/proctor/internal/infra/websocket"
	"golang.org/x/time/rate"
	"gopkg.in/telebot.v4"
)

type Services struct {
	userService    *usersService.UserService
	messageService *msgService.MessageService
	testService    *testsService.TestService
}

type App struct {
	config *config.Config
	bot    *telebot.Bot
	repos  *Repositories
	server *http.Server

	manager  *timer.Manager
	hub      *websocket.Hub
	sessions *session.Sessions
	reports  *report.Generator

	Services
}

// NewApp читает конфигурацию, подключается к базе данных и создает бота
func NewApp(configPath string) (*App, error) {
	configImpl, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("config.LoadConfig: %w", err)
	}

	repos, err := InitDatabase(configImpl)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	poller, err := telegram.NewPoller(configImpl.TelegramBot.Mode, configImpl.TelegramBot.WebhookURL,
		configImpl.TelegramBot.ListenAddr, configImpl.TelegramBot.PollInterval)
	if err != nil {
		repos.Close()
		return nil, fmt.Errorf("telegram.NewPoller: %w", err)
	}

	bot, err := telebot.NewBot(telebot.Settings{
		Token:  configImpl.TelegramBot.Token,
		Poller: poller,
		OnError: func(err error, c telebot.Context) {
			log.Printf("Telegram handler error: %v", err)
		},
	})
	if err != nil {
		repos.Close()
		return nil, fmt.Errorf("telebot.NewBot: %w", err)
	}
	if configImpl.TelegramBot.Username == "" {
		configImpl.TelegramBot.Username = bot.Me.Username
	}

	app := New(configImpl, repos, bot, timer.TickerScheduler{})

	if err := app.importCatalog(context.Background()); err != nil {
		repos.Close()
		return nil, err
	}

	return app, nil
}

// New собирает приложение из готовых зависимостей
func New(cfg *config.Config, repos *Repositories, bot *telebot.Bot, scheduler timer.Scheduler) *App {
	app := &App{
		config: cfg,
		bot:    bot,
		repos:  repos,
	}

	app.initServices()

	app.manager = timer.NewManager(scheduler, cfg.Timer.TickInterval)
	app.hub = websocket.NewHub(nil)
	app.reports = report.NewGenerator(cfg.Report.FontDir)
	limiter := rate.NewLimiter(rate.Limit(cfg.TelegramBot.EditRate), cfg.TelegramBot.EditBurst)
	app.sessions = session.New(app.testService, app.userService, app.messageService, bot, app.manager,
		session.WithPublisher(app.hub),
		session.WithLimiter(limiter),
	)

	return app
}

// Функция для инициализации сервисов
func (app *App) initServices() {
	app.userService = usersService.NewUserService(app.repos.Users)
	app.messageService = msgService.NewMessageService(app.repos.Messages)
	app.testService = testsService.NewTestService(app.repos.Tests, app.repos.Users)
}

// importCatalog заполняет пустую базу тестами и текстами из каталога
func (app *App) importCatalog(ctx context.Context) error {
	path := app.config.CatalogPath
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Printf("Catalog %s not found, skipping import", path)
		return nil
	}

	catalog, err := config.LoadCatalog(path)
	if err != nil {
		return fmt.Errorf("config.LoadCatalog: %w", err)
	}

	imported, err := app.testService.ImportCatalog(ctx, catalog.CatalogTests())
	if err != nil {
		return fmt.Errorf("failed to import tests: %w", err)
	}
	if imported > 0 {
		log.Printf("Imported %d tests from %s", imported, path)
	}

	if err := app.messageService.ImportMessages(ctx, catalog.Messages); err != nil {
		return fmt.Errorf("failed to import messages: %w", err)
	}
	return nil
}

// ListenAndServeTelegram запускает сервер Telegram бота
func (app *App) ListenAndServeTelegram() error {
	restored, err := app.sessions.Restore(context.Background())
	if err != nil {
		return fmt.Errorf("failed to restore timers: %w", err)
	}
	if restored > 0 {
		log.Printf("Restored %d test timers", restored)
	}

	app.bootstrapHandlersTelegram()

	go app.bot.Start()

	return nil
}

// bootstrapHandlersTelegram - регистрирует обработчики для бота
func (app *App) bootstrapHandlersTelegram() {
	app.bot.Use(middleware.Recover())
	if app.config.TelegramBot.Debug {
		app.bot.Use(middleware.Logger())
		app.bot.Use(middleware.DebugUserActions(true, app.userService))
	}
	app.bot.Use(middleware.AutoRespond())

	app.bot.Handle("/start", start_handler.NewStartHandler(app.userService, app.messageService, app.testService).GetHandlerFunc())

	// Обработчик запуска теста (с логикой нахождения назначенных тестов кандидату)
	app.bot.Handle(&telebot.InlineButton{Unique: model.StartTestKey},
		start_test_handler.NewStartTestHandler(app.userService, app.testService, app.messageService, app.sessions).GetHandlerFunc())

	// Назначение тестов HR прямо из бота
	assign := assign_tests.NewAssignHandler(app.userService, app.testService)
	app.bot.Handle("/assign", assign.HandleCommand)
	app.bot.Handle(&telebot.InlineButton{Unique: model.AssignPageKey}, assign.HandlePage)
	app.bot.Handle(&telebot.InlineButton{Unique: model.AssignSelectKey}, assign.HandleSelect)
	app.bot.Handle(telebot.OnText, assign.HandleText)

	// Кнопки ответов уникальны для каждого вопроса, поэтому приходят в общий OnCallback
	answer := answer_handler.NewAnswerHandler(app.userService, app.testService, app.messageService, app.sessions).GetHandlerFunc()
	app.bot.Handle(telebot.OnCallback, func(c telebot.Context) error {
		if _, _, ok := question.ParseAnswer(c.Callback().Data); ok {
			return answer(c)
		}
		return nil
	})
}

// routes HTTP API
func (app *App) routes() http.Handler {
	mx := http.NewServeMux()

	mx.Handle("POST /users/update_role", update_user_role_handler.NewUpdateUserRoleHandler(app.userService))
	mx.Handle("POST /users/report", user_test_report_handler.NewUserTestReportHandler(app.userService, app.testService))
	mx.Handle("POST /tests/assign", assign_test_handler.NewAssignTestHandler(app.userService, app.testService))
	mx.Handle("POST /tests/link", generate_test_link_handler.NewGenerateTestLinkHandler(app.testService, app.userService, app.config.TelegramBot.Username))
	mx.Handle("GET /tests/active", active_tests_handler.NewActiveTestsHandler(app.testService, app.sessions))
	mx.Handle("GET /user_tests/{id}/report.pdf", attempt_report_handler.NewAttemptReportHandler(app.testService, app.reports))
	mx.Handle("GET /user_tests/{id}/timer", timer_ws_handler.NewTimerWSHandler(app.testService, app.hub))

	return mx
}

// ListenAndServeHTTP запускает HTTP сервер
func (app *App) ListenAndServeHTTP() error {
	app.server = &http.Server{
		Addr:              app.config.Addr(),
		Handler:           app.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("HTTP server listening on %s", app.server.Addr)
	if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe запускает оба сервера (Telegram и HTTP)
func (app *App) ListenAndServe() error {
	// Запускаем Telegram сервер
	if err := app.ListenAndServeTelegram(); err != nil {
		return fmt.Errorf("failed to start Telegram bot: %w", err)
	}

	// Запускаем HTTP сервер
	if err := app.ListenAndServeHTTP(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown останавливает бота, таймеры и HTTP сервер. Начатые попытки продолжатся после перезапуска.
func (app *App) Shutdown(ctx context.Context) error {
	app.bot.Stop()
	// Таймеры останавливаются до закрытия базы, начатое сохранение результата успевает завершиться
	app.manager.Shutdown()

	var err error
	if app.server != nil {
		err = app.server.Shutdown(ctx)
	}
	app.repos.Close()
	return err
}
