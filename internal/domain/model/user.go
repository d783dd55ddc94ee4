package model

import "time"

type User struct {
	ID                int       `json:"id"`
	RoleID            int       `json:"role_id"`
	TelegramID        *int64    `json:"telegram_id,omitempty"`
	TelegramUsername  string    `json:"telegram_username"`
	TelegramFirstName *string   `json:"telegram_first_name,omitempty"`
	RealFirstName     *string   `json:"real_first_name,omitempty"`
	RealSecondName    *string   `json:"real_second_name,omitempty"`
	RealSurname       *string   `json:"real_surname,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// FullName собирает ФИО из заполненных частей, иначе возвращает имя в Telegram
func (u User) FullName() string {
	name := ""
	for _, part := range []*string{u.RealFirstName, u.RealSecondName, u.RealSurname} {
		if part == nil || *part == "" {
			continue
		}
		if name != "" {
			name += " "
		}
		name += *part
	}
	if name == "" && u.TelegramFirstName != nil {
		name = *u.TelegramFirstName
	}
	return name
}

// Права ролей
const (
	PermissionAssignTests = "assign_tests"
	PermissionGenerateQR  = "generate_qr"
	PermissionViewReports = "view_reports"
)

// Роли по умолчанию
const (
	RoleCandidate = "candidate"
	RoleHR        = "hr"
	RoleAdmin     = "admin"
)
