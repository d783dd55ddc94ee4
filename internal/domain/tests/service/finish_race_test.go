package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/IT-Nick/proctor/internal/domain/model"
	"github.com/IT-Nick/proctor/internal/domain/tests/service"
	"github.com/IT-Nick/proctor/internal/infra/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// finishingRepo завершает попытку перед сохранением ответа, как параллельный таймер
type finishingRepo struct {
	*sqlite.TestRepository
	finish func(ctx context.Context)
}

func (r *finishingRepo) SaveAnswer(ctx context.Context, answer model.Answer, currentQuestionIndex int, correctAnswersCount int) error {
	if r.finish != nil {
		r.finish(ctx)
		r.finish = nil
	}
	return r.TestRepository.SaveAnswer(ctx, answer, currentQuestionIndex, correctAnswersCount)
}

type attemptFixture struct {
	tests  *sqlite.TestRepository
	users  *sqlite.UserRepository
	testID int
	hr     string
}

func newAttemptFixture(t *testing.T) *attemptFixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { _ = db.Close() })

	f := &attemptFixture{
		tests: sqlite.NewTestRepository(db),
		users: sqlite.NewUserRepository(db),
		hr:    "hr_anna",
	}
	hrRole, err := f.users.GetRoleIDByName(ctx, model.RoleHR)
	require.NoError(t, err)
	_, err = f.users.CreateUser(ctx, f.hr, 1, "Анна", hrRole)
	require.NoError(t, err)

	f.testID, err = f.tests.CreateTest(ctx, model.Test{TestName: "Go", TestType: "backend", Duration: intPtr(10), QuestionCount: 2, PassingScore: 50},
		[]model.Question{
			{QuestionText: "2+2?", TestOptions: []string{"3", "4"}, CorrectOption: 1},
			{QuestionText: "nil map?", TestOptions: []string{"panic", "ok"}, CorrectOption: 0},
		})
	require.NoError(t, err)
	return f
}

// start начинает попытку нового кандидата
func (f *attemptFixture) start(t *testing.T, svc *service.TestService, n int) *service.Attempt {
	t.Helper()
	ctx := context.Background()

	candidateRole, err := f.users.GetRoleIDByName(ctx, model.RoleCandidate)
	require.NoError(t, err)
	userID, err := f.users.CreateUser(ctx, fmt.Sprintf("candidate%d", n), int64(100+n), "Кандидат", candidateRole)
	require.NoError(t, err)

	_, err = svc.AssignTestToUser(ctx, userID, f.testID, f.hr)
	require.NoError(t, err)
	attempt, err := svc.StartTest(ctx, userID, f.testID)
	require.NoError(t, err)
	return attempt
}

func TestSubmitAnswer_AfterTimeoutLeavesResultIntact(t *testing.T) {
	ctx := context.Background()
	f := newAttemptFixture(t)
	repo := &finishingRepo{TestRepository: f.tests}
	svc := service.NewTestService(repo, f.users)

	attempt := f.start(t, svc, 1)
	userTestID := attempt.UserTest.ID
	repo.finish = func(ctx context.Context) {
		finished, err := f.tests.FinishUserTest(ctx, model.TestResult{
			UserTestID:     userTestID,
			TotalQuestions: 2,
			TimeTaken:      600,
			FinishReason:   model.FinishTimeout,
			EndTime:        time.Now(),
		})
		require.NoError(t, err)
		require.True(t, finished)
	}

	q := attempt.CurrentQuestion()
	res, err := svc.SubmitAnswer(ctx, userTestID, q.ID, q.CorrectOption)
	require.ErrorIs(t, err, model.ErrAlreadyFinished)
	assert.Nil(t, res)

	after, err := svc.GetAttempt(ctx, userTestID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFinished, after.UserTest.Status)
	assert.Equal(t, 0, after.UserTest.CorrectAnswersCount)
	assert.Equal(t, 0, after.UserTest.CurrentQuestionIndex)

	answers, err := f.tests.GetAnswersByUserTestID(ctx, userTestID)
	require.NoError(t, err)
	assert.Empty(t, answers)

	result, finished, err := svc.FinishUserTest(ctx, userTestID, -1, model.FinishCompleted)
	require.NoError(t, err)
	assert.False(t, finished)
	assert.Equal(t, 0, result.CorrectAnswers)
	assert.Equal(t, 0.0, result.ScorePercentage)
}

func TestSubmitAnswer_ConcurrentTimeoutKeepsScoreConsistent(t *testing.T) {
	ctx := context.Background()
	f := newAttemptFixture(t)
	svc := service.NewTestService(f.tests, f.users)

	for i := 0; i < 20; i++ {
		attempt := f.start(t, svc, i)
		userTestID := attempt.UserTest.ID
		q := attempt.CurrentQuestion()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = svc.SubmitAnswer(ctx, userTestID, q.ID, q.CorrectOption)
		}()
		go func() {
			defer wg.Done()
			_, _, _ = svc.FinishUserTest(ctx, userTestID, 600, model.FinishTimeout)
		}()
		wg.Wait()

		after, err := svc.GetAttempt(ctx, userTestID)
		require.NoError(t, err)
		require.Equal(t, model.StatusFinished, after.UserTest.Status)
		require.NotNil(t, after.UserTest.ScorePercentage)

		answers, err := f.tests.GetAnswersByUserTestID(ctx, userTestID)
		require.NoError(t, err)
		assert.Equal(t, len(answers), after.UserTest.CorrectAnswersCount, "attempt %d", i)
		assert.Equal(t, float64(len(answers))*50, *after.UserTest.ScorePercentage, "attempt %d", i)
	}
}
