package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/IT-Nick/proctor/internal/domain/model"
	"github.com/google/uuid"
)

// TestService для работы с тестами
type TestService struct {
	testRepo TestRepository
	userRepo UserRepository
	now      func() time.Time

	locksMu sync.Mutex
	locks   map[int]*attemptLock
}

// attemptLock сериализует ответы и завершение одной попытки
type attemptLock struct {
	mu   sync.Mutex
	refs int
}

// Option настройка TestService
type Option func(*TestService)

// WithClock подменяет источник текущего времени
func WithClock(now func() time.Time) Option {
	return func(s *TestService) {
		s.now = now
	}
}

// NewTestService создает новый экземпляр TestService
func NewTestService(testRepo TestRepository, userRepo UserRepository, opts ...Option) *TestService {
	s := &TestService{
		testRepo: testRepo,
		userRepo: userRepo,
		now:      time.Now,
		locks:    make(map[int]*attemptLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Attempt начатая попытка вместе с тестом и выбранными вопросами
type Attempt struct {
	UserTest  *model.UserTest
	Test      *model.Test
	Questions []model.Question
}

// Total количество вопросов в попытке
func (a *Attempt) Total() int {
	return len(a.Questions)
}

// CurrentQuestion текущий вопрос, nil если вопросы закончились
func (a *Attempt) CurrentQuestion() *model.Question {
	idx := a.UserTest.CurrentQuestionIndex
	if idx < 0 || idx >= len(a.Questions) {
		return nil
	}
	return &a.Questions[idx]
}

// ElapsedSeconds сколько секунд прошло с начала попытки
func (a *Attempt) ElapsedSeconds(now time.Time) int {
	if a.UserTest.StartTime == nil {
		return 0
	}
	elapsed := int(now.Sub(*a.UserTest.StartTime) / time.Second)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// AnswerResult итог обработки ответа
type AnswerResult struct {
	IsCorrect bool
	Answered  int
	Total     int
	Next      *model.Question
}

// Done все вопросы попытки отвечены
func (r AnswerResult) Done() bool {
	return r.Next == nil
}

// GetTestByID получает тест по ID
func (s *TestService) GetTestByID(ctx context.Context, testID int) (*model.Test, error) {
	test, err := s.testRepo.GetTestByID(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return test, nil
}

// GetTestsWithPagination получает тесты с пагинацией
func (s *TestService) GetTestsWithPagination(ctx context.Context, page int, pageSize int) ([]model.Test, error) {
	if page < 1 {
		page = 1
	}
	tests, err := s.testRepo.GetTestsWithPagination(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get tests: %w", err)
	}
	return tests, nil
}

// ImportCatalog заполняет пустой каталог тестами. Если тесты уже есть, ничего не делает.
func (s *TestService) ImportCatalog(ctx context.Context, catalog []model.CatalogTest) (int, error) {
	existing, err := s.testRepo.GetTestsWithPagination(ctx, 1, 1)
	if err != nil {
		return 0, fmt.Errorf("failed to check catalog: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	for _, item := range catalog {
		if _, err := s.testRepo.CreateTest(ctx, item.Test, item.Questions); err != nil {
			return 0, fmt.Errorf("failed to import test %q: %w", item.Test.TestName, err)
		}
	}
	return len(catalog), nil
}

func (s *TestService) requireUser(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", username, model.ErrUserNotFound)
	}
	return user, nil
}

// AssignTestToUser назначает тест существующему пользователю
func (s *TestService) AssignTestToUser(ctx context.Context, userID int, testID int, assignedByUsername string) (int, error) {
	assignedBy, err := s.requireUser(ctx, assignedByUsername)
	if err != nil {
		return 0, fmt.Errorf("failed to get assigning user: %w", err)
	}

	userTestID, err := s.testRepo.AssignTestToUser(ctx, userID, testID, assignedBy.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to assign test: %w", err)
	}
	return userTestID, nil
}

// AssignPendingTest создает отложенное назначение теста
func (s *TestService) AssignPendingTest(ctx context.Context, telegramUsername string, testID int, assignedByUsername string) (int, error) {
	assignedBy, err := s.requireUser(ctx, assignedByUsername)
	if err != nil {
		return 0, fmt.Errorf("failed to get assigning user: %w", err)
	}

	userTestID, err := s.testRepo.AssignPendingTest(ctx, telegramUsername, testID, assignedBy.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to assign pending test: %w", err)
	}
	return userTestID, nil
}

// AssignTest назначает тест по username. Если кандидат еще не писал боту, назначение откладывается до /start.
func (s *TestService) AssignTest(ctx context.Context, username string, testID int, assignedByUsername string) (userTestID int, pending bool, err error) {
	if _, err := s.testRepo.GetTestByID(ctx, testID); err != nil {
		return 0, false, fmt.Errorf("failed to get test: %w", err)
	}

	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		return 0, false, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		userTestID, err = s.AssignPendingTest(ctx, username, testID, assignedByUsername)
		return userTestID, true, err
	}

	userTestID, err = s.AssignTestToUser(ctx, user.ID, testID, assignedByUsername)
	return userTestID, false, err
}

// ProcessPendingTests активирует отложенные тесты для нового пользователя
func (s *TestService) ProcessPendingTests(ctx context.Context, userID int, telegramUsername string) (int, error) {
	n, err := s.testRepo.ActivatePendingTests(ctx, userID, telegramUsername)
	if err != nil {
		return 0, fmt.Errorf("failed to activate pending tests: %w", err)
	}
	if n > 0 {
		log.Printf("Activated %d pending tests for user %d (@%s)", n, userID, telegramUsername)
	}
	return n, nil
}

// CreateTestLink создает одноразовую ссылку-приглашение и возвращает ее токен
func (s *TestService) CreateTestLink(ctx context.Context, testID int, createdByUsername string) (string, error) {
	if _, err := s.testRepo.GetTestByID(ctx, testID); err != nil {
		return "", fmt.Errorf("failed to get test: %w", err)
	}
	creator, err := s.requireUser(ctx, createdByUsername)
	if err != nil {
		return "", fmt.Errorf("failed to get link creator: %w", err)
	}

	link := model.TestLink{
		Token:     uuid.NewString(),
		TestID:    testID,
		CreatedBy: creator.ID,
		CreatedAt: s.now(),
	}
	if err := s.testRepo.CreateTestLink(ctx, link); err != nil {
		return "", fmt.Errorf("failed to create test link: %w", err)
	}
	return link.Token, nil
}

// AssignByLink назначает тест по ссылке-приглашению. Ссылка срабатывает один раз.
func (s *TestService) AssignByLink(ctx context.Context, userID int, token string) (*model.Test, int, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, 0, model.ErrLinkNotFound
	}

	link, err := s.testRepo.ConsumeTestLink(ctx, token, userID, s.now())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to use test link: %w", err)
	}

	userTestID, err := s.testRepo.AssignTestToUser(ctx, userID, link.TestID, link.CreatedBy)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to assign test by link: %w", err)
	}

	test, err := s.testRepo.GetTestByID(ctx, link.TestID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get test: %w", err)
	}
	return test, userTestID, nil
}

// GetAvailableTestsForUser получает список доступных тестов для пользователя
func (s *TestService) GetAvailableTestsForUser(ctx context.Context, userID int) ([]model.Test, error) {
	tests, err := s.testRepo.GetAvailableTestsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get available tests: %w", err)
	}
	return tests, nil
}

// StartTest начинает назначенный тест: выбирает вопросы, фиксирует время начала и дедлайн
func (s *TestService) StartTest(ctx context.Context, userID int, testID int) (*Attempt, error) {
	test, err := s.testRepo.GetTestByID(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	pool, err := s.testRepo.GetQuestionsByTestID(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("test %d: %w", testID, model.ErrNoQuestions)
	}

	questions := selectQuestions(pool, test.QuestionCount)
	ids := make([]int, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}

	start := s.now()
	var deadline *time.Time
	if test.HasTimeLimit() {
		d := start.Add(time.Duration(*test.Duration) * time.Minute)
		deadline = &d
		log.Printf("Starting test %d for user %d with duration %d minutes", testID, userID, *test.Duration)
	} else {
		log.Printf("Starting test %d for user %d without time limit", testID, userID)
	}

	userTestID, err := s.testRepo.StartTest(ctx, userID, testID, ids, start, deadline)
	if err != nil {
		return nil, fmt.Errorf("failed to start test: %w", err)
	}

	userTest, err := s.testRepo.GetUserTestByID(ctx, userTestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get started test: %w", err)
	}

	return &Attempt{UserTest: userTest, Test: test, Questions: questions}, nil
}

// GetAttempt загружает попытку с выбранными вопросами в порядке выдачи
func (s *TestService) GetAttempt(ctx context.Context, userTestID int) (*Attempt, error) {
	userTest, err := s.testRepo.GetUserTestByID(ctx, userTestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user test: %w", err)
	}
	return s.attempt(ctx, userTest)
}

// GetInProgressAttempt возвращает начатую попытку пользователя
func (s *TestService) GetInProgressAttempt(ctx context.Context, userID int) (*Attempt, error) {
	userTest, err := s.testRepo.GetInProgressUserTest(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get in-progress test: %w", err)
	}
	return s.attempt(ctx, userTest)
}

// GetActiveAttempts все попытки в статусе in_progress (для восстановления таймеров)
func (s *TestService) GetActiveAttempts(ctx context.Context) ([]*Attempt, error) {
	userTests, err := s.testRepo.GetActiveUserTests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active user tests: %w", err)
	}

	attempts := make([]*Attempt, 0, len(userTests))
	for i := range userTests {
		a, err := s.attempt(ctx, &userTests[i])
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, nil
}

func (s *TestService) attempt(ctx context.Context, userTest *model.UserTest) (*Attempt, error) {
	test, err := s.testRepo.GetTestByID(ctx, userTest.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get test %d: %w", userTest.TestID, err)
	}

	questions, err := s.selectedQuestions(ctx, userTest)
	if err != nil {
		return nil, err
	}
	return &Attempt{UserTest: userTest, Test: test, Questions: questions}, nil
}

// selectedQuestions вопросы попытки в порядке выдачи. Для старых попыток без выборки возвращает весь тест.
func (s *TestService) selectedQuestions(ctx context.Context, userTest *model.UserTest) ([]model.Question, error) {
	pool, err := s.testRepo.GetQuestionsByTestID(ctx, userTest.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions for test %d: %w", userTest.TestID, err)
	}
	if len(userTest.SelectedQuestionIDs) == 0 {
		return pool, nil
	}

	byID := make(map[int]model.Question, len(pool))
	for _, q := range pool {
		byID[q.ID] = q
	}
	questions := make([]model.Question, 0, len(userTest.SelectedQuestionIDs))
	for _, id := range userTest.SelectedQuestionIDs {
		if q, ok := byID[id]; ok {
			questions = append(questions, q)
		}
	}
	return questions, nil
}

// SaveTimerMessage сохраняет сообщение с таймером
func (s *TestService) SaveTimerMessage(ctx context.Context, userTestID int, chatID int64, messageID int) error {
	if err := s.testRepo.SaveTimerMessage(ctx, userTestID, chatID, messageID); err != nil {
		return fmt.Errorf("failed to save timer message: %w", err)
	}
	return nil
}

// SubmitAnswer принимает ответ на текущий вопрос и переводит попытку к следующему
func (s *TestService) SubmitAnswer(ctx context.Context, userTestID int, questionID int, optionIndex int) (*AnswerResult, error) {
	unlock := s.lockAttempt(userTestID)
	defer unlock()

	a, err := s.GetAttempt(ctx, userTestID)
	if err != nil {
		return nil, err
	}
	if a.UserTest.Status != model.StatusInProgress {
		return nil, model.ErrAlreadyFinished
	}

	current := a.CurrentQuestion()
	if current == nil {
		return nil, model.ErrAlreadyFinished
	}
	if current.ID != questionID {
		return nil, model.ErrQuestionMismatch
	}
	if optionIndex < 0 || optionIndex >= len(current.TestOptions) {
		return nil, model.ErrInvalidOption
	}

	isCorrect := optionIndex == current.CorrectOption
	answer := model.Answer{
		UserTestID:  userTestID,
		QuestionID:  questionID,
		OptionIndex: optionIndex,
		UserAnswer:  current.TestOptions[optionIndex],
		IsCorrect:   isCorrect,
		CreatedAt:   s.now(),
	}
	correct := a.UserTest.CorrectAnswersCount
	if isCorrect {
		correct++
	}
	next := a.UserTest.CurrentQuestionIndex + 1
	if err := s.testRepo.SaveAnswer(ctx, answer, next, correct); err != nil {
		if errors.Is(err, model.ErrAlreadyFinished) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save answer: %w", err)
	}

	result := &AnswerResult{IsCorrect: isCorrect, Answered: next, Total: a.Total()}
	if next < a.Total() {
		result.Next = &a.Questions[next]
	}
	return result, nil
}

// FinishUserTest завершает попытку и считает результат.
// Повторный вызов ничего не меняет и возвращает уже сохраненный результат с finished=false.
// timeTaken < 0 означает, что время считается по времени начала.
func (s *TestService) FinishUserTest(ctx context.Context, userTestID int, timeTaken int, reason string) (*model.TestResult, bool, error) {
	unlock := s.lockAttempt(userTestID)
	defer unlock()

	a, err := s.GetAttempt(ctx, userTestID)
	if err != nil {
		return nil, false, err
	}
	if a.UserTest.Status == model.StatusFinished {
		return storedResult(a), false, nil
	}
	if a.UserTest.Status != model.StatusInProgress {
		return nil, false, fmt.Errorf("user test %d is %s: %w", userTestID, a.UserTest.Status, model.ErrNotAssigned)
	}

	answers, err := s.testRepo.GetAnswersByUserTestID(ctx, userTestID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get answers: %w", err)
	}

	now := s.now()
	if timeTaken < 0 {
		timeTaken = a.ElapsedSeconds(now)
	}
	if a.Test.HasTimeLimit() && timeTaken > *a.Test.Duration*60 {
		timeTaken = *a.Test.Duration * 60
	}

	correct := countCorrect(a.Questions, answers)
	percentage, passed := score(correct, a.Total(), a.Test.PassingScore)
	result := model.TestResult{
		UserTestID:      userTestID,
		CorrectAnswers:  correct,
		TotalQuestions:  a.Total(),
		ScorePercentage: percentage,
		Passed:          passed,
		TimeTaken:       timeTaken,
		FinishReason:    reason,
		EndTime:         now,
	}

	finished, err := s.testRepo.FinishUserTest(ctx, result)
	if err != nil {
		return nil, false, fmt.Errorf("failed to finish user test: %w", err)
	}
	if !finished {
		// Попытку успели завершить параллельно
		again, err := s.GetAttempt(ctx, userTestID)
		if err != nil {
			return nil, false, err
		}
		return storedResult(again), false, nil
	}

	log.Printf("User test %d finished (%s): %d/%d, %.2f%%, passed=%t, time=%ds",
		userTestID, reason, correct, a.Total(), percentage, passed, timeTaken)
	return &result, true, nil
}

func storedResult(a *Attempt) *model.TestResult {
	ut := a.UserTest
	result := &model.TestResult{
		UserTestID:     ut.ID,
		CorrectAnswers: ut.CorrectAnswersCount,
		TotalQuestions: a.Total(),
	}
	if ut.ScorePercentage != nil {
		result.ScorePercentage = *ut.ScorePercentage
	}
	if ut.Passed != nil {
		result.Passed = *ut.Passed
	}
	if ut.TimeTaken != nil {
		result.TimeTaken = *ut.TimeTaken
	}
	if ut.FinishReason != nil {
		result.FinishReason = *ut.FinishReason
	}
	if ut.EndTime != nil {
		result.EndTime = *ut.EndTime
	}
	return result
}

// IsNotFound ошибка означает отсутствие теста, попытки или ссылки
func IsNotFound(err error) bool {
	return errors.Is(err, model.ErrTestNotFound) ||
		errors.Is(err, model.ErrUserTestNotFound) ||
		errors.Is(err, model.ErrLinkNotFound) ||
		errors.Is(err, model.ErrUserNotFound)
}

// lockAttempt блокирует попытку и возвращает функцию разблокировки
func (s *TestService) lockAttempt(userTestID int) func() {
	s.locksMu.Lock()
	l, ok := s.locks[userTestID]
	if !ok {
		l = &attemptLock{}
		s.locks[userTestID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userTestID)
		}
		s.locksMu.Unlock()
	}
}
