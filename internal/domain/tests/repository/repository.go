package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IT-Nick/proctor/internal/domain/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestRepository репозиторий для работы с тестами
type TestRepository struct {
	db *pgxpool.Pool
}

// NewTestRepository создает новый экземпляр TestRepository
func NewTestRepository(db *pgxpool.Pool) *TestRepository {
	return &TestRepository{db: db}
}

const userTestColumns = `
	id, user_id, test_id, assigned_by, pending_username, selected_questions,
	current_question_index, correct_answers_count, chat_id, message_id,
	timer_deadline, start_time, end_time, time_taken, score_percentage, passed,
	finish_reason, status, created_at, updated_at`

func scanUserTest(row pgx.Row) (*model.UserTest, error) {
	var ut model.UserTest
	var selected string
	err := row.Scan(
		&ut.ID, &ut.UserID, &ut.TestID, &ut.AssignedBy, &ut.PendingUsername, &selected,
		&ut.CurrentQuestionIndex, &ut.CorrectAnswersCount, &ut.ChatID, &ut.MessageID,
		&ut.TimerDeadline, &ut.StartTime, &ut.EndTime, &ut.TimeTaken, &ut.ScorePercentage, &ut.Passed,
		&ut.FinishReason, &ut.Status, &ut.CreatedAt, &ut.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if selected != "" {
		if err := json.Unmarshal([]byte(selected), &ut.SelectedQuestionIDs); err != nil {
			return nil, fmt.Errorf("failed to decode selected questions: %w", err)
		}
	}
	return &ut, nil
}

func collectUserTests(rows pgx.Rows) ([]model.UserTest, error) {
	defer rows.Close()

	var userTests []model.UserTest
	for rows.Next() {
		ut, err := scanUserTest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user test: %w", err)
		}
		userTests = append(userTests, *ut)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate over rows: %w", err)
	}
	return userTests, nil
}

func collectTests(rows pgx.Rows) ([]model.Test, error) {
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		var test model.Test
		if err := rows.Scan(&test.ID, &test.TestName, &test.TestType, &test.Duration, &test.QuestionCount, &test.PassingScore); err != nil {
			return nil, fmt.Errorf("failed to scan test: %w", err)
		}
		tests = append(tests, test)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate over rows: %w", err)
	}
	return tests, nil
}

// GetTestByID получает тест по ID
func (r *TestRepository) GetTestByID(ctx context.Context, testID int) (*model.Test, error) {
	var test model.Test
	err := r.db.QueryRow(ctx,
		"SELECT id, test_name, test_type, duration, question_count, passing_score FROM tests WHERE id = $1", testID).
		Scan(&test.ID, &test.TestName, &test.TestType, &test.Duration, &test.QuestionCount, &test.PassingScore)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return &test, nil
}

// GetTestsWithPagination получает тесты с пагинацией
func (r *TestRepository) GetTestsWithPagination(ctx context.Context, page int, pageSize int) ([]model.Test, error) {
	offset := (page - 1) * pageSize
	rows, err := r.db.Query(ctx,
		"SELECT id, test_name, test_type, duration, question_count, passing_score FROM tests ORDER BY id LIMIT $1 OFFSET $2",
		pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query tests: %w", err)
	}
	return collectTests(rows)
}

// GetQuestionsByTestID получает все вопросы теста
func (r *TestRepository) GetQuestionsByTestID(ctx context.Context, testID int) ([]model.Question, error) {
	rows, err := r.db.Query(ctx, `
                SELECT id, test_id, question_text, test_options, correct_option, explanation, created_at
                FROM questions
                WHERE test_id = $1
                ORDER BY id
        `, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var options string
		if err := rows.Scan(&q.ID, &q.TestID, &q.QuestionText, &options, &q.CorrectOption, &q.Explanation, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		if err := json.Unmarshal([]byte(options), &q.TestOptions); err != nil {
			return nil, fmt.Errorf("failed to decode options of question %d: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate over rows: %w", err)
	}
	return questions, nil
}

// CreateTest добавляет тест в каталог вместе с вопросами
func (r *TestRepository) CreateTest(ctx context.Context, test model.Test, questions []model.Question) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var testID int
	err = tx.QueryRow(ctx,
		"INSERT INTO tests (test_name, test_type, duration, question_count, passing_score) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		test.TestName, test.TestType, test.Duration, test.QuestionCount, test.PassingScore).Scan(&testID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert test: %w", err)
	}

	for _, q := range questions {
		options, err := json.Marshal(q.TestOptions)
		if err != nil {
			return 0, fmt.Errorf("failed to encode options: %w", err)
		}
		_, err = tx.Exec(ctx,
			"INSERT INTO questions (test_id, question_text, test_options, correct_option, explanation) VALUES ($1, $2, $3, $4, $5)",
			testID, q.QuestionText, string(options), q.CorrectOption, q.Explanation)
		if err != nil {
			return 0, fmt.Errorf("failed to insert question: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit test: %w", err)
	}
	return testID, nil
}

// AssignTestToUser назначает тест существующему пользователю
func (r *TestRepository) AssignTestToUser(ctx context.Context, userID int, testID int, assignedByID int) (int, error) {
	var userTestID int
	err := r.db.QueryRow(ctx, `
                INSERT INTO user_tests (user_id, test_id, assigned_by, status, created_at, updated_at)
                VALUES ($1, $2, $3, 'assigned', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
                RETURNING id
        `, userID, testID, assignedByID).Scan(&userTestID)
	if err != nil {
		return 0, fmt.Errorf("failed to assign test to user: %w", err)
	}
	return userTestID, nil
}

// AssignPendingTest создает отложенное назначение теста
func (r *TestRepository) AssignPendingTest(ctx context.Context, telegramUsername string, testID int, assignedByID int) (int, error) {
	var userTestID int
	err := r.db.QueryRow(ctx, `
                INSERT INTO user_tests (pending_username, test_id, assigned_by, status, created_at, updated_at)
                VALUES ($1, $2, $3, 'pending', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
                RETURNING id
        `, telegramUsername, testID, assignedByID).Scan(&userTestID)
	if err != nil {
		return 0, fmt.Errorf("failed to assign pending test: %w", err)
	}
	return userTestID, nil
}

// ActivatePendingTests активирует отложенные тесты для нового пользователя
func (r *TestRepository) ActivatePendingTests(ctx context.Context, userID int, telegramUsername string) (int, error) {
	result, err := r.db.Exec(ctx, `
                UPDATE user_tests
                SET user_id = $1,
                        pending_username = NULL,
                        status = 'assigned',
                        updated_at = CURRENT_TIMESTAMP
                WHERE pending_username = $2 AND status = 'pending'
        `, userID, telegramUsername)
	if err != nil {
		return 0, fmt.Errorf("failed to activate pending tests: %w", err)
	}
	return int(result.RowsAffected()), nil
}

// GetAvailableTestsForUser получает список назначенных, но не начатых тестов пользователя
func (r *TestRepository) GetAvailableTestsForUser(ctx context.Context, userID int) ([]model.Test, error) {
	rows, err := r.db.Query(ctx, `
                SELECT t.id, t.test_name, t.test_type, t.duration, t.question_count, t.passing_score
                FROM tests t
                JOIN user_tests ut ON t.id = ut.test_id
                WHERE ut.user_id = $1 AND ut.status = 'assigned'
                ORDER BY ut.id
        `, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query available tests: %w", err)
	}
	return collectTests(rows)
}

// StartTest переводит самое раннее назначение теста в статус in_progress и возвращает его ID
func (r *TestRepository) StartTest(ctx context.Context, userID, testID int, questionIDs []int, startTime time.Time, deadline *time.Time) (int, error) {
	selected, err := json.Marshal(questionIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to encode selected questions: %w", err)
	}

	var userTestID int
	err = r.db.QueryRow(ctx, `
                UPDATE user_tests
                SET status = 'in_progress',
                        start_time = $3,
                        timer_deadline = $4,
                        selected_questions = $5,
                        current_question_index = 0,
                        correct_answers_count = 0,
                        updated_at = $3
                WHERE id = (
                        SELECT id FROM user_tests
                        WHERE user_id = $1 AND test_id = $2 AND status = 'assigned'
                        ORDER BY id
                        LIMIT 1
                )
                RETURNING id
        `, userID, testID, startTime, deadline, string(selected)).Scan(&userTestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, model.ErrNotAssigned
		}
		return 0, fmt.Errorf("failed to start test: %w", err)
	}
	return userTestID, nil
}

// GetUserTestByID получает запись user_test по ID
func (r *TestRepository) GetUserTestByID(ctx context.Context, userTestID int) (*model.UserTest, error) {
	ut, err := scanUserTest(r.db.QueryRow(ctx, "SELECT "+userTestColumns+" FROM user_tests WHERE id = $1", userTestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrUserTestNotFound
		}
		return nil, fmt.Errorf("failed to get user test: %w", err)
	}
	return ut, nil
}

// GetInProgressUserTest получает начатый тест пользователя
func (r *TestRepository) GetInProgressUserTest(ctx context.Context, userID int) (*model.UserTest, error) {
	ut, err := scanUserTest(r.db.QueryRow(ctx,
		"SELECT "+userTestColumns+" FROM user_tests WHERE user_id = $1 AND status = 'in_progress' ORDER BY id DESC LIMIT 1",
		userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrUserTestNotFound
		}
		return nil, fmt.Errorf("failed to get in-progress user test: %w", err)
	}
	return ut, nil
}

// GetUserTestsByUserID получает все тесты пользователя
func (r *TestRepository) GetUserTestsByUserID(ctx context.Context, userID int) ([]model.UserTest, error) {
	rows, err := r.db.Query(ctx, "SELECT "+userTestColumns+" FROM user_tests WHERE user_id = $1 ORDER BY id", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user tests: %w", err)
	}
	return collectUserTests(rows)
}

// GetActiveUserTests получает все тесты в статусе in_progress
func (r *TestRepository) GetActiveUserTests(ctx context.Context) ([]model.UserTest, error) {
	rows, err := r.db.Query(ctx, "SELECT "+userTestColumns+" FROM user_tests WHERE status = 'in_progress' ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query active user tests: %w", err)
	}
	return collectUserTests(rows)
}

// SaveTimerMessage сохраняет сообщение с таймером
func (r *TestRepository) SaveTimerMessage(ctx context.Context, userTestID int, chatID int64, messageID int) error {
	_, err := r.db.Exec(ctx,
		"UPDATE user_tests SET chat_id = $2, message_id = $3, updated_at = CURRENT_TIMESTAMP WHERE id = $1",
		userTestID, chatID, messageID)
	if err != nil {
		return fmt.Errorf("failed to save timer message: %w", err)
	}
	return nil
}

// SaveAnswer сохраняет ответ и переводит попытку к следующему вопросу одной транзакцией.
// Завершенная попытка не меняется.
func (r *TestRepository) SaveAnswer(ctx context.Context, answer model.Answer, currentQuestionIndex int, correctAnswersCount int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
                UPDATE user_tests
                SET current_question_index = $2, correct_answers_count = $3, updated_at = CURRENT_TIMESTAMP
                WHERE id = $1 AND status = 'in_progress'
        `, answer.UserTestID, currentQuestionIndex, correctAnswersCount)
	if err != nil {
		return fmt.Errorf("failed to update user test state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user test %d: %w", answer.UserTestID, model.ErrAlreadyFinished)
	}

	_, err = tx.Exec(ctx, `
                INSERT INTO answers (user_test_id, question_id, option_index, user_answer, is_correct, created_at)
                VALUES ($1, $2, $3, $4, $5, $6)
        `, answer.UserTestID, answer.QuestionID, answer.OptionIndex, answer.UserAnswer, answer.IsCorrect, answer.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit answer: %w", err)
	}
	return nil
}

// GetAnswersByUserTestID получает ответы пользователя по попытке
func (r *TestRepository) GetAnswersByUserTestID(ctx context.Context, userTestID int) ([]model.Answer, error) {
	rows, err := r.db.Query(ctx, `
                SELECT id, user_test_id, question_id, option_index, user_answer, is_correct, created_at
                FROM answers
                WHERE user_test_id = $1
                ORDER BY id
        `, userTestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query answers: %w", err)
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.ID, &a.UserTestID, &a.QuestionID, &a.OptionIndex, &a.UserAnswer, &a.IsCorrect, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate over rows: %w", err)
	}
	return answers, nil
}

// FinishUserTest завершает попытку. Возвращает false, если попытка уже была завершена.
func (r *TestRepository) FinishUserTest(ctx context.Context, result model.TestResult) (bool, error) {
	tag, err := r.db.Exec(ctx, `
                UPDATE user_tests
                SET status = 'finished',
                        end_time = $2,
                        time_taken = $3,
                        score_percentage = $4,
                        passed = $5,
                        finish_reason = $6,
                        correct_answers_count = $7,
                        updated_at = $2
                WHERE id = $1 AND status = 'in_progress'
        `, result.UserTestID, result.EndTime, result.TimeTaken, result.ScorePercentage, result.Passed,
		result.FinishReason, result.CorrectAnswers)
	if err != nil {
		return false, fmt.Errorf("failed to finish user test: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CreateTestLink сохраняет ссылку-приглашение
func (r *TestRepository) CreateTestLink(ctx context.Context, link model.TestLink) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO test_links (token, test_id, created_by, created_at) VALUES ($1, $2, $3, $4)",
		link.Token, link.TestID, link.CreatedBy, link.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save test link: %w", err)
	}
	return nil
}

// ConsumeTestLink помечает ссылку использованной и возвращает ее
func (r *TestRepository) ConsumeTestLink(ctx context.Context, token string, userID int, usedAt time.Time) (*model.TestLink, error) {
	var link model.TestLink
	err := r.db.QueryRow(ctx, `
                UPDATE test_links
                SET used_by = $2, used_at = $3
                WHERE token = $1 AND used_by IS NULL
                RETURNING token, test_id, created_by, used_by, created_at, used_at
        `, token, userID, usedAt).
		Scan(&link.Token, &link.TestID, &link.CreatedBy, &link.UsedBy, &link.CreatedAt, &link.UsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to consume test link: %w", err)
	}
	return &link, nil
}
