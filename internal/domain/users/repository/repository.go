package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/IT-Nick/proctor/internal/domain/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository реализация интерфейса с использованием базы данных PostgreSQL
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository создает новый экземпляр UserRepository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	id, role_id, telegram_id, telegram_username, telegram_first_name, real_first_name,
	real_second_name, real_surname, created_at, updated_at`

func (r *UserRepository) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var user model.User
	err := r.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE "+where, arg).Scan(
		&user.ID, &user.RoleID, &user.TelegramID, &user.TelegramUsername, &user.TelegramFirstName, &user.RealFirstName,
		&user.RealSecondName, &user.RealSurname, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Если пользователя нет, возвращаем nil
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername ищет пользователя по его Telegram-username
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := r.getUser(ctx, "telegram_username = $1", username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return user, nil
}

// GetUserByTelegramID получает пользователя по ID telegram
func (r *UserRepository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := r.getUser(ctx, "telegram_id = $1", telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by telegram ID: %w", err)
	}
	return user, nil
}

// GetUserByID получает пользователя по ID
func (r *UserRepository) GetUserByID(ctx context.Context, userID int) (*model.User, error) {
	user, err := r.getUser(ctx, "id = $1", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, nil
}

// CreateUser создает нового пользователя в базе данных
func (r *UserRepository) CreateUser(ctx context.Context, username string, telegramID int64, telegramFirstName string, roleID int) (int, error) {
	var userID int
	err := r.db.QueryRow(ctx,
		"INSERT INTO users (telegram_id, telegram_username, telegram_first_name, role_id) VALUES ($1, $2, $3, $4) RETURNING id",
		telegramID, username, telegramFirstName, roleID).
		Scan(&userID)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	return userID, nil
}

// SetTelegramID привязывает telegram_id к пользователю, созданному до первого /start
func (r *UserRepository) SetTelegramID(ctx context.Context, userID int, telegramID int64) error {
	_, err := r.db.Exec(ctx,
		"UPDATE users SET telegram_id = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1", userID, telegramID)
	if err != nil {
		return fmt.Errorf("failed to set telegram id: %w", err)
	}
	return nil
}

// GetRoleIDByName получает ID роли по имени роли
func (r *UserRepository) GetRoleIDByName(ctx context.Context, roleName string) (int, error) {
	var roleID int
	err := r.db.QueryRow(ctx, "SELECT id FROM roles WHERE role_name = $1", roleName).Scan(&roleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("role %s: %w", roleName, model.ErrRoleNotFound)
		}
		return 0, fmt.Errorf("failed to get role by name: %w", err)
	}
	return roleID, nil
}

// SetUserRole меняет роль пользователя
func (r *UserRepository) SetUserRole(ctx context.Context, userID int, roleID int) error {
	_, err := r.db.Exec(ctx,
		"UPDATE users SET role_id = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1", userID, roleID)
	if err != nil {
		return fmt.Errorf("failed to set user role: %w", err)
	}
	return nil
}

// GetPermissionsByRoleID получает все права для роли
func (r *UserRepository) GetPermissionsByRoleID(ctx context.Context, roleID int) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.permission_name
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.id`, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get permissions: %w", err)
	}
	defer rows.Close()

	var permissions []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		permissions = append(permissions, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate over rows: %w", err)
	}
	return permissions, nil
}
