// Package mocks содержит моки репозиториев для тестов сервисов.
package mocks

import (
	"context"
	"time"

	"github.com/IT-Nick/proctor/internal/domain/model"
	"github.com/stretchr/testify/mock"
)

// TestRepository мок репозитория тестов
type TestRepository struct {
	mock.Mock
}

func (m *TestRepository) GetTestByID(ctx context.Context, testID int) (*model.Test, error) {
	args := m.Called(ctx, testID)
	if test, ok := args.Get(0).(*model.Test); ok {
		return test, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TestRepository) GetTestsWithPagination(ctx context.Context, page int, pageSize int) ([]model.Test, error) {
	args := m.Called(ctx, page, pageSize)
	if tests, ok := args.Get(0).([]model.Test); ok {
		return tests, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TestRepository) GetQuestionsByTestID(ctx context.Context, testID int) ([]model.Question, error) {
	args := m.Called(ctx, testID)
	if questions, ok := args.Get(0).([]model.Question); ok {
		return questions, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TestRepository) CreateTest(ctx context.Context, test model.Test, questions []model.Question) (int, error) {
	args := m.Called(ctx, test, questions)
	return args.Int(0), args.Error(1)
}

func (m *TestRepository) AssignTestToUser(ctx context.Context, userID int, testID int, assignedByID int) (int, error) {
	args := m.Called(ctx, userID, testID, assignedByID)
	return args.Int(0), args.Error(1)
}

func (m *TestRepository) AssignPendingTest(ctx context.Context, telegramUsername string, testID int, assignedByID int) (int, error) {
	args := m.Called(ctx, telegramUsername, testID, assignedByID)
	return args.Int(0), args.Error(1)
}

func (m *TestRepository) ActivatePendingTests(ctx context.Context, userID int, telegramUsername string) (int, error) {
	args := m.Called(ctx, userID, telegramUsername)
	return args.Int(0), args.Error(1)
}

func (m *TestRepository) GetAvailableTestsForUser(ctx context.Context, userID int) ([]model.Test, error) {
	args := m.Called(ctx, userID)
	if tests, ok := args.Get(0).([]model.Test); ok {
		return tests, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TestRepository) StartTest(ctx context.Context, userID, testID int, questionIDs []int, startTime time.Time, deadline *time.Time) (int, error) {
	args := m.Called(ctx, userID, testID, questionIDs, startTime, deadline)
	return args.Int(0), args.Error(1)
}

func (m *TestRepository) GetUserTestByID(ctx context.Context, userTestID int) (*model.UserTest, error) {
	args := m.Called(ctx, userTestID)
	if ut, ok := args.Get(0).(*model.UserTest); ok {
		return ut, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TestRepository) GetInProgressUserTest(ctx context.Context, userID int) (*model.UserTest, error) {
	args := m.Called(ctx, userID)
	if ut, ok := args.Get(0).(*model.UserTest); ok {
		return ut, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TestRepository) GetUserTestsByUserID(ctx context.Context, userID int) ([]model.UserTest, error) {
	args := m.Called(ctx, userID)
	if list, ok := args.Get(0).([]model.UserTest); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TestRepository) GetActiveUserTests(ctx context.Context) ([]model.UserTest, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]model.UserTest); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TestRepository) SaveTimerMessage(ctx context.Context, userTestID int, chatID int64, messageID int) error {
	args := m.Called(ctx, userTestID, chatID, messageID)
	return args.Error(0)
}

func (m *TestRepository) SaveAnswer(ctx context.Context, answer model.Answer, currentQuestionIndex int, correctAnswersCount int) error {
	args := m.Called(ctx, answer, currentQuestionIndex, correctAnswersCount)
	return args.Error(0)
}

func (m *TestRepository) GetAnswersByUserTestID(ctx context.Context, userTestID int) ([]model.Answer, error) {
	args := m.Called(ctx, userTestID)
	if list, ok := args.Get(0).([]model.Answer); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TestRepository) FinishUserTest(ctx context.Context, result model.TestResult) (bool, error) {
	args := m.Called(ctx, result)
	return args.Bool(0), args.Error(1)
}

func (m *TestRepository) CreateTestLink(ctx context.Context, link model.TestLink) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *TestRepository) ConsumeTestLink(ctx context.Context, token string, userID int, usedAt time.Time) (*model.TestLink, error) {
	args := m.Called(ctx, token, userID, usedAt)
	if link, ok := args.Get(0).(*model.TestLink); ok {
		return link, args.Error(1)
	}
	return nil, args.Error(1)
}

// UserRepository мок репозитория пользователей
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if user, ok := args.Get(0).(*model.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	args := m.Called(ctx, telegramID)
	if user, ok := args.Get(0).(*model.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) GetUserByID(ctx context.Context, userID int) (*model.User, error) {
	args := m.Called(ctx, userID)
	if user, ok := args.Get(0).(*model.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) CreateUser(ctx context.Context, username string, telegramID int64, telegramFirstName string, roleID int) (int, error) {
	args := m.Called(ctx, username, telegramID, telegramFirstName, roleID)
	return args.Int(0), args.Error(1)
}

func (m *UserRepository) SetTelegramID(ctx context.Context, userID int, telegramID int64) error {
	args := m.Called(ctx, userID, telegramID)
	return args.Error(0)
}

func (m *UserRepository) GetRoleIDByName(ctx context.Context, roleName string) (int, error) {
	args := m.Called(ctx, roleName)
	return args.Int(0), args.Error(1)
}

func (m *UserRepository) SetUserRole(ctx context.Context, userID int, roleID int) error {
	args := m.Called(ctx, userID, roleID)
	return args.Error(0)
}

func (m *UserRepository) GetPermissionsByRoleID(ctx context.Context, roleID int) ([]string, error) {
	args := m.Called(ctx, roleID)
	if list, ok := args.Get(0).([]string); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// MessageRepository мок репозитория сообщений
type MessageRepository struct {
	mock.Mock
}

func (m *MessageRepository) GetMessageByKey(ctx context.Context, messageKey string) (string, error) {
	args := m.Called(ctx, messageKey)
	return args.String(0), args.Error(1)
}

func (m *MessageRepository) SetMessage(ctx context.Context, messageKey, text string) error {
	args := m.Called(ctx, messageKey, text)
	return args.Error(0)
}
