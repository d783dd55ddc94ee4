package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/IT-Nick/proctor/internal/domain/model"
)

// UserRepository хранилище пользователей и прав ролей
type UserRepository interface {
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetUserByID(ctx context.Context, userID int) (*model.User, error)
	CreateUser(ctx context.Context, username string, telegramID int64, telegramFirstName string, roleID int) (int, error)
	SetTelegramID(ctx context.Context, userID int, telegramID int64) error
	GetRoleIDByName(ctx context.Context, roleName string) (int, error)
	SetUserRole(ctx context.Context, userID int, roleID int) error
	GetPermissionsByRoleID(ctx context.Context, roleID int) ([]string, error)
}

// UserService содержит логику бизнес-операций для пользователей
type UserService struct {
	userRepo UserRepository
}

// NewUserService создает новый экземпляр UserService
func NewUserService(userRepo UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// UsernameOrID username пользователя Telegram. Для пользователей без username подставляется id<telegram_id>.
func UsernameOrID(username string, telegramID int64) string {
	if username != "" {
		return username
	}
	return fmt.Sprintf("id%d", telegramID)
}

// GetOrCreateUser возвращает пользователя, если он существует, или создает нового кандидата
func (s *UserService) GetOrCreateUser(ctx context.Context, username string, telegramID int64, telegramFirstName string) (*model.User, bool, error) {
	user, err := s.userRepo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get user: %w", err)
	}
	if user != nil {
		return user, false, nil
	}

	username = UsernameOrID(username, telegramID)

	// Пользователь мог быть заведен вручную (например, HR) до первого /start
	user, err = s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get user: %w", err)
	}
	if user != nil {
		if err := s.userRepo.SetTelegramID(ctx, user.ID, telegramID); err != nil {
			return nil, false, err
		}
		user.TelegramID = &telegramID
		return user, false, nil
	}

	roleID, err := s.userRepo.GetRoleIDByName(ctx, model.RoleCandidate)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get role by name: %w", err)
	}

	userID, err := s.userRepo.CreateUser(ctx, username, telegramID, telegramFirstName, roleID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	user, err = s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get created user: %w", err)
	}
	return user, true, nil
}

// GetUserByUsername возвращает пользователя по имени телеграмм
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByID получает пользователя по ID
func (s *UserService) GetUserByID(ctx context.Context, userID int) (*model.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, nil
}

// GetUserByTelegramID получает пользователя по ID telegram
func (s *UserService) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := s.userRepo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by telegram ID: %w", err)
	}
	return user, nil
}

// GetPermissionsForUser получает все права для пользователя
func (s *UserService) GetPermissionsForUser(ctx context.Context, user *model.User) ([]string, error) {
	permissions, err := s.userRepo.GetPermissionsByRoleID(ctx, user.RoleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get permissions: %w", err)
	}
	return permissions, nil
}

// HasPermission проверяет право пользователя
func (s *UserService) HasPermission(ctx context.Context, user *model.User, permission string) (bool, error) {
	if user == nil {
		return false, nil
	}
	permissions, err := s.GetPermissionsForUser(ctx, user)
	if err != nil {
		return false, err
	}
	return slices.Contains(permissions, permission), nil
}

// UpdateUserRole назначает пользователю роль по имени и возвращает его ID
func (s *UserService) UpdateUserRole(ctx context.Context, username string, roleName string) (int, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return 0, fmt.Errorf("user %s: %w", username, model.ErrUserNotFound)
	}

	roleID, err := s.userRepo.GetRoleIDByName(ctx, roleName)
	if err != nil {
		return 0, err
	}
	if err := s.userRepo.SetUserRole(ctx, user.ID, roleID); err != nil {
		return 0, err
	}
	return user.ID, nil
}
