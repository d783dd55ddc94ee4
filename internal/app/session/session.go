package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/IT-Nick/proctor/internal/domain/model"
	testsService "github.com/IT-Nick/proctor/internal/domain/tests/service"
	"github.com/IT-Nick/proctor/internal/infra/telegram"
	"github.com/IT-Nick/proctor/internal/infra/timer"
	"github.com/IT-Nick/proctor/internal/infra/websocket"
	"golang.org/x/time/rate"
	"gopkg.in/telebot.v4"
)

// TestService операции с попытками, которые нужны таймеру
type TestService interface {
	FinishUserTest(ctx context.Context, userTestID int, timeTaken int, reason string) (*model.TestResult, bool, error)
	GetAttempt(ctx context.Context, userTestID int) (*testsService.Attempt, error)
	GetActiveAttempts(ctx context.Context) ([]*testsService.Attempt, error)
}

// UserService поиск получателей уведомлений
type UserService interface {
	GetUserByID(ctx context.Context, userID int) (*model.User, error)
}

// Messages тексты бота
type Messages interface {
	Text(ctx context.Context, messageKey string, args ...any) string
}

// Bot отправка и правка сообщений (реализуется *telebot.Bot)
type Bot interface {
	telegram.Editor
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// Publisher рассылка кадров таймера в браузер
type Publisher interface {
	Publish(frame websocket.Frame)
	Close(userTestID int)
}

// session состояние одной запущенной попытки
type session struct {
	display  *telegram.MessageDisplay
	field    *timer.ElapsedField
	answered int
	total    int
}

// Sessions связывает таймеры попыток с Telegram, браузером и сохранением результата
type Sessions struct {
	tests    TestService
	users    UserService
	messages Messages
	bot      Bot
	manager  *timer.Manager
	hub      Publisher
	limiter  *rate.Limiter
	now      func() time.Time

	mu       sync.Mutex
	sessions map[int]*session
}

// Option настройка Sessions
type Option func(*Sessions)

// WithPublisher добавляет рассылку кадров таймера в браузер
func WithPublisher(hub Publisher) Option {
	return func(s *Sessions) {
		s.hub = hub
	}
}

// WithLimiter ограничивает частоту правок сообщений таймера
func WithLimiter(limiter *rate.Limiter) Option {
	return func(s *Sessions) {
		s.limiter = limiter
	}
}

// WithClock подменяет источник текущего времени
func WithClock(now func() time.Time) Option {
	return func(s *Sessions) {
		s.now = now
	}
}

// New создает Sessions
func New(tests TestService, users UserService, messages Messages, bot Bot, manager *timer.Manager, opts ...Option) *Sessions {
	s := &Sessions{
		tests:    tests,
		users:    users,
		messages: messages,
		bot:      bot,
		manager:  manager,
		now:      time.Now,
		sessions: make(map[int]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start запускает таймер попытки. Попытки без лимита времени или без сообщения таймера пропускаются.
// Уже прошедшее с начала попытки время учитывается, поэтому Start подходит и для восстановления.
func (s *Sessions) Start(ctx context.Context, a *testsService.Attempt) error {
	ut := a.UserTest
	if !a.Test.HasTimeLimit() {
		return nil
	}
	if ut.ChatID == nil || ut.MessageID == nil {
		return fmt.Errorf("user test %d has no timer message", ut.ID)
	}

	userTestID := ut.ID
	sess := &session{
		field:    &timer.ElapsedField{},
		answered: ut.CurrentQuestionIndex,
		total:    a.Total(),
	}
	sess.display = telegram.NewMessageDisplay(s.bot, *ut.ChatID, *ut.MessageID, s.limiter, func(remaining string) string {
		return s.timerText(userTestID, remaining)
	})

	s.mu.Lock()
	s.sessions[userTestID] = sess
	s.mu.Unlock()

	displays := timer.MultiDisplay{sess.display}
	if s.hub != nil {
		displays = append(displays, timer.DisplayFunc(func(_ context.Context, _ string) error {
			s.publish(userTestID)
			return nil
		}))
	}

	caps := timer.Capabilities{
		Display: displays,
		Field:   sess.field,
		Form: timer.FormFunc(func(ctx context.Context) error {
			return s.expire(ctx, userTestID, sess.field.Value())
		}),
	}

	elapsed := a.ElapsedSeconds(s.now())
	if _, err := s.manager.Start(ctx, userTestID, *a.Test.Duration, caps, timer.WithElapsed(elapsed)); err != nil {
		s.forget(userTestID)
		return fmt.Errorf("failed to start timer: %w", err)
	}
	return nil
}

// Answered обновляет номер вопроса в сообщении таймера
func (s *Sessions) Answered(userTestID int, answered int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userTestID]; ok {
		sess.answered = answered
	}
}

// Complete останавливает таймер и завершает попытку после последнего ответа.
// finished=false, если попытку уже завершил таймер.
func (s *Sessions) Complete(ctx context.Context, userTestID int) (*model.TestResult, bool, error) {
	s.manager.Stop(userTestID)

	result, finished, err := s.tests.FinishUserTest(ctx, userTestID, -1, model.FinishCompleted)
	if err != nil {
		return nil, false, err
	}

	sess := s.forget(userTestID)
	if !finished {
		return result, false, nil
	}

	if sess != nil {
		text := s.messages.Text(ctx, model.MsgTestFinished, result.CorrectAnswers, result.TotalQuestions, result.ScorePercentage)
		if err := sess.display.Final(text); err != nil {
			log.Printf("Failed to update timer message for user test %d: %v", userTestID, err)
		}
	}
	if s.hub != nil {
		s.hub.Close(userTestID)
	}
	s.notifyAssigner(ctx, userTestID, result)
	return result, true, nil
}

// Restore запускает таймеры начатых попыток после перезапуска
func (s *Sessions) Restore(ctx context.Context) (int, error) {
	attempts, err := s.tests.GetActiveAttempts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get active attempts: %w", err)
	}

	restored := 0
	for _, a := range attempts {
		if !a.Test.HasTimeLimit() {
			continue
		}
		if err := s.Start(ctx, a); err != nil {
			log.Printf("Failed to restore timer for user test %d: %v", a.UserTest.ID, err)
			continue
		}
		restored++
	}
	return restored, nil
}

// Remaining оставшееся время попытки по запущенному таймеру
func (s *Sessions) Remaining(userTestID int) (remaining int, elapsed int, ok bool) {
	g, ok := s.manager.Get(userTestID)
	if !ok {
		return 0, 0, false
	}
	return g.Remaining(), g.Elapsed(), true
}

// expire сохраняет результат попытки, когда время вышло
func (s *Sessions) expire(ctx context.Context, userTestID int, elapsed int) error {
	result, finished, err := s.tests.FinishUserTest(ctx, userTestID, elapsed, model.FinishTimeout)
	sess := s.forget(userTestID)
	if err != nil {
		return fmt.Errorf("failed to finish user test %d: %w", userTestID, err)
	}
	if !finished {
		// Последний ответ пришел раньше
		return nil
	}

	if sess != nil {
		if err := sess.display.Final(s.messages.Text(ctx, model.MsgTimeIsUp)); err != nil {
			log.Printf("Failed to update timer message for user test %d: %v", userTestID, err)
		}
	}
	s.notifyCandidate(ctx, userTestID, result)
	s.notifyAssigner(ctx, userTestID, result)
	return nil
}

func (s *Sessions) forget(userTestID int) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[userTestID]
	delete(s.sessions, userTestID)
	return sess
}

func (s *Sessions) timerText(userTestID int, remaining string) string {
	s.mu.Lock()
	number, total := 0, 0
	if sess, ok := s.sessions[userTestID]; ok {
		number, total = sess.answered+1, sess.total
		if number > total {
			number = total
		}
	}
	s.mu.Unlock()
	return s.messages.Text(context.Background(), model.MsgTimer, remaining, number, total)
}

func (s *Sessions) publish(userTestID int) {
	g, ok := s.manager.Get(userTestID)
	if !ok {
		return
	}
	remaining := g.Remaining()
	s.hub.Publish(websocket.Frame{
		UserTestID: userTestID,
		Remaining:  remaining,
		Elapsed:    g.Elapsed(),
		Expired:    remaining <= 0,
	})
}
