package service

import (
	"context"
	"time"

	"github.com/IT-Nick/proctor/internal/domain/model"
)

// TestRepository хранилище тестов и попыток. Реализации: PostgreSQL и SQLite.
type TestRepository interface {
	GetTestByID(ctx context.Context, testID int) (*model.Test, error)
	GetTestsWithPagination(ctx context.Context, page int, pageSize int) ([]model.Test, error)
	GetQuestionsByTestID(ctx context.Context, testID int) ([]model.Question, error)
	CreateTest(ctx context.Context, test model.Test, questions []model.Question) (int, error)

	AssignTestToUser(ctx context.Context, userID int, testID int, assignedByID int) (int, error)
	AssignPendingTest(ctx context.Context, telegramUsername string, testID int, assignedByID int) (int, error)
	ActivatePendingTests(ctx context.Context, userID int, telegramUsername string) (int, error)
	GetAvailableTestsForUser(ctx context.Context, userID int) ([]model.Test, error)

	StartTest(ctx context.Context, userID, testID int, questionIDs []int, startTime time.Time, deadline *time.Time) (int, error)
	GetUserTestByID(ctx context.Context, userTestID int) (*model.UserTest, error)
	GetInProgressUserTest(ctx context.Context, userID int) (*model.UserTest, error)
	GetUserTestsByUserID(ctx context.Context, userID int) ([]model.UserTest, error)
	GetActiveUserTests(ctx context.Context) ([]model.UserTest, error)
	SaveTimerMessage(ctx context.Context, userTestID int, chatID int64, messageID int) error

	// SaveAnswer сохраняет ответ и новое состояние попытки в одной транзакции.
	// model.ErrAlreadyFinished, если попытка уже не in_progress.
	SaveAnswer(ctx context.Context, answer model.Answer, currentQuestionIndex int, correctAnswersCount int) error
	GetAnswersByUserTestID(ctx context.Context, userTestID int) ([]model.Answer, error)
	FinishUserTest(ctx context.Context, result model.TestResult) (bool, error)

	CreateTestLink(ctx context.Context, link model.TestLink) error
	ConsumeTestLink(ctx context.Context, token string, userID int, usedAt time.Time) (*model.TestLink, error)
}

// UserRepository то, что сервису тестов нужно знать о пользователях
type UserRepository interface {
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByID(ctx context.Context, userID int) (*model.User, error)
}
