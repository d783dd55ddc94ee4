package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/IT-Nick/proctor/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewTestDB создает базу в памяти со схемой
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	require.NoError(t, db.RunMigrations(), "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	tables := []string{"roles", "permissions", "role_permissions", "users", "messages", "tests", "questions", "user_tests", "answers", "test_links"}
	for _, table := range tables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}

	// Повторный запуск схемы не падает
	require.NoError(t, db.RunMigrations())
}

func TestForeignKeys(t *testing.T) {
	db := NewTestDB(t)

	var enabled int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&enabled))
	require.Equal(t, 1, enabled, "foreign keys not enabled")
}

type fixture struct {
	tests    *TestRepository
	users    *UserRepository
	messages *MessageRepository
	hrID     int
	userID   int
	testID   int
}

func newFixture(t *testing.T, duration *int) fixture {
	t.Helper()
	ctx := context.Background()
	db := NewTestDB(t)

	f := fixture{
		tests:    NewTestRepository(db),
		users:    NewUserRepository(db),
		messages: NewMessageRepository(db),
	}

	hrRole, err := f.users.GetRoleIDByName(ctx, model.RoleHR)
	require.NoError(t, err)
	candidateRole, err := f.users.GetRoleIDByName(ctx, model.RoleCandidate)
	require.NoError(t, err)

	f.hrID, err = f.users.CreateUser(ctx, "hr_anna", 1, "Анна", hrRole)
	require.NoError(t, err)
	f.userID, err = f.users.CreateUser(ctx, "ivan", 2, "Иван", candidateRole)
	require.NoError(t, err)

	questions := []model.Question{
		{QuestionText: "2+2?", TestOptions: []string{"3", "4"}, CorrectOption: 1},
		{QuestionText: "Столица Франции?", TestOptions: []string{"Париж", "Лион"}, CorrectOption: 0},
		{QuestionText: "Go компилируемый?", TestOptions: []string{"Да", "Нет"}, CorrectOption: 0},
	}
	f.testID, err = f.tests.CreateTest(ctx, model.Test{
		TestName:      "Общий",
		TestType:      "general",
		Duration:      duration,
		QuestionCount: 2,
		PassingScore:  50,
	}, questions)
	require.NoError(t, err)

	return f
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	user, err := f.users.GetUserByUsername(ctx, "ivan")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, f.userID, user.ID)
	require.NotNil(t, user.TelegramFirstName)
	assert.Equal(t, "Иван", *user.TelegramFirstName)
	assert.Nil(t, user.RealSurname)
	assert.False(t, user.CreatedAt.IsZero())

	byTelegram, err := f.users.GetUserByTelegramID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, f.userID, byTelegram.ID)

	missing, err := f.users.GetUserByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, f.users.SetTelegramID(ctx, f.userID, 22))
	byID, err := f.users.GetUserByID(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, int64(22), *byID.TelegramID)

	hr, err := f.users.GetUserByID(ctx, f.hrID)
	require.NoError(t, err)
	permissions, err := f.users.GetPermissionsByRoleID(ctx, hr.RoleID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{model.PermissionAssignTests, model.PermissionGenerateQR, model.PermissionViewReports}, permissions)

	permissions, err = f.users.GetPermissionsByRoleID(ctx, byID.RoleID)
	require.NoError(t, err)
	assert.Empty(t, permissions)

	require.NoError(t, f.users.SetUserRole(ctx, f.userID, hr.RoleID))
	promoted, err := f.users.GetUserByID(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, hr.RoleID, promoted.RoleID)

	_, err = f.users.GetRoleIDByName(ctx, "superuser")
	require.ErrorIs(t, err, model.ErrRoleNotFound)
}

func TestMessageRepository(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.messages.GetMessageByKey(ctx, model.MsgWelcome)
	require.ErrorIs(t, err, model.ErrMessageNotFound)

	require.NoError(t, f.messages.SetMessage(ctx, model.MsgWelcome, "Привет"))
	require.NoError(t, f.messages.SetMessage(ctx, model.MsgWelcome, "Добрый день"))

	text, err := f.messages.GetMessageByKey(ctx, model.MsgWelcome)
	require.NoError(t, err)
	assert.Equal(t, "Добрый день", text)
}

func TestTestRepository_Catalog(t *testing.T) {
	ctx := context.Background()
	duration := 15
	f := newFixture(t, &duration)

	test, err := f.tests.GetTestByID(ctx, f.testID)
	require.NoError(t, err)
	require.NotNil(t, test.Duration)
	assert.Equal(t, 15, *test.Duration)
	assert.Equal(t, 2, test.QuestionCount)

	_, err = f.tests.GetTestByID(ctx, 999)
	require.ErrorIs(t, err, model.ErrTestNotFound)

	questions, err := f.tests.GetQuestionsByTestID(ctx, f.testID)
	require.NoError(t, err)
	require.Len(t, questions, 3)
	assert.Equal(t, []string{"3", "4"}, questions[0].TestOptions)
	assert.Equal(t, "4", questions[0].CorrectAnswer())

	page, err := f.tests.GetTestsWithPagination(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, page, 1)
	page, err = f.tests.GetTestsWithPagination(ctx, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestTestRepository_PendingAssignment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.tests.AssignPendingTest(ctx, "petr", f.testID, f.hrID)
	require.NoError(t, err)

	candidateRole, err := f.users.GetRoleIDByName(ctx, model.RoleCandidate)
	require.NoError(t, err)
	petrID, err := f.users.CreateUser(ctx, "petr", 3, "Петр", candidateRole)
	require.NoError(t, err)

	available, err := f.tests.GetAvailableTestsForUser(ctx, petrID)
	require.NoError(t, err)
	assert.Empty(t, available)

	n, err := f.tests.ActivatePendingTests(ctx, petrID, "petr")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	available, err = f.tests.GetAvailableTestsForUser(ctx, petrID)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, f.testID, available[0].ID)

	n, err = f.tests.ActivatePendingTests(ctx, petrID, "petr")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestTestRepository_AttemptLifecycle(t *testing.T) {
	ctx := context.Background()
	duration := 10
	f := newFixture(t, &duration)

	_, err := f.tests.StartTest(ctx, f.userID, f.testID, []int{1, 2}, time.Now(), nil)
	require.ErrorIs(t, err, model.ErrNotAssigned)

	assignedID, err := f.tests.AssignTestToUser(ctx, f.userID, f.testID, f.hrID)
	require.NoError(t, err)

	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	deadline := start.Add(10 * time.Minute)
	userTestID, err := f.tests.StartTest(ctx, f.userID, f.testID, []int{3, 1}, start, &deadline)
	require.NoError(t, err)
	assert.Equal(t, assignedID, userTestID)

	ut, err := f.tests.GetUserTestByID(ctx, userTestID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, ut.Status)
	assert.Equal(t, []int{3, 1}, ut.SelectedQuestionIDs)
	require.NotNil(t, ut.StartTime)
	assert.True(t, ut.StartTime.Equal(start))
	require.NotNil(t, ut.TimerDeadline)
	assert.True(t, ut.TimerDeadline.Equal(deadline))
	assert.Nil(t, ut.EndTime)
	assert.Nil(t, ut.Passed)

	require.NoError(t, f.tests.SaveTimerMessage(ctx, userTestID, 2, 77))
	require.NoError(t, f.tests.SaveAnswer(ctx, model.Answer{
		UserTestID: userTestID, QuestionID: 3, OptionIndex: 0, UserAnswer: "Да", IsCorrect: true, CreatedAt: start.Add(time.Minute),
	}, 1, 1))
	require.Error(t, f.tests.SaveAnswer(ctx, model.Answer{
		UserTestID: userTestID, QuestionID: 3, OptionIndex: 1, UserAnswer: "Нет", CreatedAt: start.Add(time.Minute),
	}, 1, 0), "second answer to the same question must be rejected")

	active, err := f.tests.GetActiveUserTests(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.NotNil(t, active[0].MessageID)
	assert.Equal(t, 77, *active[0].MessageID)
	assert.Equal(t, int64(2), *active[0].ChatID)

	inProgress, err := f.tests.GetInProgressUserTest(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, userTestID, inProgress.ID)
	assert.Equal(t, 1, inProgress.CurrentQuestionIndex)

	answers, err := f.tests.GetAnswersByUserTestID(ctx, userTestID)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.True(t, answers[0].IsCorrect)

	result := model.TestResult{
		UserTestID:      userTestID,
		CorrectAnswers:  1,
		TotalQuestions:  2,
		ScorePercentage: 50,
		Passed:          true,
		TimeTaken:       600,
		FinishReason:    model.FinishTimeout,
		EndTime:         deadline,
	}
	finished, err := f.tests.FinishUserTest(ctx, result)
	require.NoError(t, err)
	assert.True(t, finished)

	result.FinishReason = model.FinishCompleted
	finished, err = f.tests.FinishUserTest(ctx, result)
	require.NoError(t, err)
	assert.False(t, finished, "attempt can be finished only once")

	ut, err = f.tests.GetUserTestByID(ctx, userTestID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFinished, ut.Status)
	assert.Equal(t, model.FinishTimeout, *ut.FinishReason)
	assert.Equal(t, 600, *ut.TimeTaken)
	assert.True(t, *ut.Passed)
	assert.Equal(t, 50.0, *ut.ScorePercentage)

	// Ответ после завершения не сохраняется и не меняет попытку
	err = f.tests.SaveAnswer(ctx, model.Answer{
		UserTestID: userTestID, QuestionID: 1, OptionIndex: 0, UserAnswer: "Да", IsCorrect: true, CreatedAt: deadline.Add(time.Second),
	}, 2, 2)
	require.ErrorIs(t, err, model.ErrAlreadyFinished)
	ut, err = f.tests.GetUserTestByID(ctx, userTestID)
	require.NoError(t, err)
	assert.Equal(t, 1, ut.CurrentQuestionIndex)
	assert.Equal(t, 1, ut.CorrectAnswersCount)
	answers, err = f.tests.GetAnswersByUserTestID(ctx, userTestID)
	require.NoError(t, err)
	assert.Len(t, answers, 1)

	_, err = f.tests.GetInProgressUserTest(ctx, f.userID)
	require.ErrorIs(t, err, model.ErrUserTestNotFound)

	history, err := f.tests.GetUserTestsByUserID(ctx, f.userID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestTestRepository_Links(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	link := model.TestLink{Token: "3f1b8f4e-5d7c-4b8e-9a39-0f2a1c7e2d11", TestID: f.testID, CreatedBy: f.hrID, CreatedAt: time.Now()}
	require.NoError(t, f.tests.CreateTestLink(ctx, link))

	used, err := f.tests.ConsumeTestLink(ctx, link.Token, f.userID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, f.testID, used.TestID)
	require.NotNil(t, used.UsedBy)
	assert.Equal(t, f.userID, *used.UsedBy)

	_, err = f.tests.ConsumeTestLink(ctx, link.Token, f.userID, time.Now())
	require.ErrorIs(t, err, model.ErrLinkNotFound)

	_, err = f.tests.ConsumeTestLink(ctx, "missing", f.userID, time.Now())
	require.ErrorIs(t, err, model.ErrLinkNotFound)
}
