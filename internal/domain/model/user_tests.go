package model

import "time"

// Статусы попытки прохождения теста
const (
	StatusPending    = "pending"
	StatusAssigned   = "assigned"
	StatusInProgress = "in_progress"
	StatusFinished   = "finished"
)

// Причины завершения попытки
const (
	FinishCompleted = "completed"
	FinishTimeout   = "timeout"
)

type UserTest struct {
	ID                   int        `json:"id"`
	UserID               *int       `json:"user_id,omitempty"`
	TestID               int        `json:"test_id"`
	AssignedBy           int        `json:"assigned_by"`
	PendingUsername      *string    `json:"pending_username,omitempty"`
	SelectedQuestionIDs  []int      `json:"selected_question_ids,omitempty"`
	CurrentQuestionIndex int        `json:"current_question_index"`
	CorrectAnswersCount  int        `json:"correct_answers_count"`
	ChatID               *int64     `json:"chat_id,omitempty"`
	MessageID            *int       `json:"message_id,omitempty"`
	TimerDeadline        *time.Time `json:"timer_deadline,omitempty"`
	StartTime            *time.Time `json:"start_time,omitempty"`
	EndTime              *time.Time `json:"end_time,omitempty"`
	TimeTaken            *int       `json:"time_taken,omitempty"` // в секундах
	ScorePercentage      *float64   `json:"score_percentage,omitempty"`
	Passed               *bool      `json:"passed,omitempty"`
	FinishReason         *string    `json:"finish_reason,omitempty"`
	Status               string     `json:"status"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// TestLink одноразовая ссылка-приглашение на тест
type TestLink struct {
	Token     string     `json:"token"`
	TestID    int        `json:"test_id"`
	CreatedBy int        `json:"created_by"`
	UsedBy    *int       `json:"used_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

// TestResult итог попытки, сохраняемый при завершении
type TestResult struct {
	UserTestID      int       `json:"user_test_id"`
	CorrectAnswers  int       `json:"correct_answers"`
	TotalQuestions  int       `json:"total_questions"`
	ScorePercentage float64   `json:"score_percentage"`
	Passed          bool      `json:"passed"`
	TimeTaken       int       `json:"time_taken"`
	FinishReason    string    `json:"finish_reason"`
	EndTime         time.Time `json:"end_time"`
}
