package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/IT-Nick/proctor/internal/domain/mocks"
	"github.com/IT-Nick/proctor/internal/domain/model"
	"github.com/IT-Nick/proctor/internal/domain/users/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateUser_Existing(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.UserRepository{}
	repo.On("GetUserByTelegramID", ctx, int64(100)).Return(&model.User{ID: 1, TelegramUsername: "ivan"}, nil)

	user, created, err := service.NewUserService(repo).GetOrCreateUser(ctx, "ivan", 100, "Иван")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, user.ID)
	repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetOrCreateUser_CreatesCandidate(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.UserRepository{}
	repo.On("GetUserByTelegramID", ctx, int64(100)).Return(nil, nil)
	repo.On("GetUserByUsername", ctx, "id100").Return(nil, nil)
	repo.On("GetRoleIDByName", ctx, model.RoleCandidate).Return(1, nil)
	repo.On("CreateUser", ctx, "id100", int64(100), "Иван", 1).Return(5, nil)
	repo.On("GetUserByID", ctx, 5).Return(&model.User{ID: 5, TelegramUsername: "id100"}, nil)

	user, created, err := service.NewUserService(repo).GetOrCreateUser(ctx, "", 100, "Иван")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 5, user.ID)
	repo.AssertExpectations(t)
}

func TestGetOrCreateUser_LinksPreparedUser(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.UserRepository{}
	repo.On("GetUserByTelegramID", ctx, int64(100)).Return(nil, nil)
	repo.On("GetUserByUsername", ctx, "hr_anna").Return(&model.User{ID: 2, TelegramUsername: "hr_anna"}, nil)
	repo.On("SetTelegramID", ctx, 2, int64(100)).Return(nil)

	user, created, err := service.NewUserService(repo).GetOrCreateUser(ctx, "hr_anna", 100, "Анна")
	require.NoError(t, err)
	assert.False(t, created)
	require.NotNil(t, user.TelegramID)
	assert.Equal(t, int64(100), *user.TelegramID)
}

func TestHasPermission(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.UserRepository{}
	repo.On("GetPermissionsByRoleID", ctx, 2).Return([]string{model.PermissionAssignTests, model.PermissionViewReports}, nil)
	repo.On("GetPermissionsByRoleID", ctx, 3).Return(nil, errors.New("db is down"))
	svc := service.NewUserService(repo)

	ok, err := svc.HasPermission(ctx, &model.User{RoleID: 2}, model.PermissionAssignTests)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasPermission(ctx, &model.User{RoleID: 2}, model.PermissionGenerateQR)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.HasPermission(ctx, nil, model.PermissionGenerateQR)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.HasPermission(ctx, &model.User{RoleID: 3}, model.PermissionGenerateQR)
	require.Error(t, err)
}

func TestUpdateUserRole(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.UserRepository{}
	repo.On("GetUserByUsername", ctx, "anna").Return(&model.User{ID: 4, TelegramUsername: "anna"}, nil)
	repo.On("GetUserByUsername", ctx, "nobody").Return(nil, nil)
	repo.On("GetRoleIDByName", ctx, model.RoleHR).Return(2, nil)
	repo.On("SetUserRole", ctx, 4, 2).Return(nil)
	svc := service.NewUserService(repo)

	userID, err := svc.UpdateUserRole(ctx, "anna", model.RoleHR)
	require.NoError(t, err)
	assert.Equal(t, 4, userID)
	repo.AssertCalled(t, "SetUserRole", ctx, 4, 2)

	_, err = svc.UpdateUserRole(ctx, "nobody", model.RoleHR)
	require.ErrorIs(t, err, model.ErrUserNotFound)
}
