package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IT-Nick/proctor/internal/domain/model"
)

// TestRepository хранилище тестов и попыток в SQLite
type TestRepository struct {
	db *DB
}

// NewTestRepository создает репозиторий тестов
func NewTestRepository(db *DB) *TestRepository {
	return &TestRepository{db: db}
}

const testColumns = "id, test_name, test_type, duration, question_count, passing_score"

const userTestColumns = `
	id, user_id, test_id, assigned_by, pending_username, selected_questions,
	current_question_index, correct_answers_count, chat_id, message_id,
	timer_deadline, start_time, end_time, time_taken, score_percentage, passed,
	finish_reason, status, created_at, updated_at`

func scanTest(row scanner) (*model.Test, error) {
	var test model.Test
	if err := row.Scan(&test.ID, &test.TestName, &test.TestType, &test.Duration, &test.QuestionCount, &test.PassingScore); err != nil {
		return nil, err
	}
	return &test, nil
}

func scanUserTest(row scanner) (*model.UserTest, error) {
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

func (r *TestRepository) queryTests(ctx context.Context, query string, args ...any) ([]model.Test, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tests: %w", err)
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		test, err := scanTest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test: %w", err)
		}
		tests = append(tests, *test)
	}
	return tests, rows.Err()
}

func (r *TestRepository) queryUserTests(ctx context.Context, query string, args ...any) ([]model.UserTest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query user tests: %w", err)
	}
	defer rows.Close()

	var userTests []model.UserTest
	for rows.Next() {
		ut, err := scanUserTest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user test: %w", err)
		}
		userTests = append(userTests, *ut)
	}
	return userTests, rows.Err()
}

// GetTestByID получает тест по ID
func (r *TestRepository) GetTestByID(ctx context.Context, testID int) (*model.Test, error) {
	test, err := scanTest(r.db.QueryRowContext(ctx, "SELECT "+testColumns+" FROM tests WHERE id = ?", testID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return test, nil
}

// GetTestsWithPagination получает тесты с пагинацией
func (r *TestRepository) GetTestsWithPagination(ctx context.Context, page int, pageSize int) ([]model.Test, error) {
	return r.queryTests(ctx, "SELECT "+testColumns+" FROM tests ORDER BY id LIMIT ? OFFSET ?", pageSize, (page-1)*pageSize)
}

// GetQuestionsByTestID получает все вопросы теста
func (r *TestRepository) GetQuestionsByTestID(ctx context.Context, testID int) ([]model.Question, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, test_id, question_text, test_options, correct_option, explanation, created_at
		FROM questions
		WHERE test_id = ?
		ORDER BY id`, testID)
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
	return questions, rows.Err()
}

// CreateTest добавляет тест в каталог вместе с вопросами
func (r *TestRepository) CreateTest(ctx context.Context, test model.Test, questions []model.Question) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var testID int
	err = tx.QueryRowContext(ctx,
		"INSERT INTO tests (test_name, test_type, duration, question_count, passing_score) VALUES (?, ?, ?, ?, ?) RETURNING id",
		test.TestName, test.TestType, test.Duration, test.QuestionCount, test.PassingScore).Scan(&testID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert test: %w", err)
	}

	for _, q := range questions {
		options, err := json.Marshal(q.TestOptions)
		if err != nil {
			return 0, fmt.Errorf("failed to encode options: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO questions (test_id, question_text, test_options, correct_option, explanation) VALUES (?, ?, ?, ?, ?)",
			testID, q.QuestionText, string(options), q.CorrectOption, q.Explanation)
		if err != nil {
			return 0, fmt.Errorf("failed to insert question: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit test: %w", err)
	}
	return testID, nil
}

// AssignTestToUser назначает тест существующему пользователю
func (r *TestRepository) AssignTestToUser(ctx context.Context, userID int, testID int, assignedByID int) (int, error) {
	var userTestID int
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO user_tests (user_id, test_id, assigned_by, status) VALUES (?, ?, ?, 'assigned') RETURNING id",
		userID, testID, assignedByID).Scan(&userTestID)
	if err != nil {
		return 0, fmt.Errorf("failed to assign test to user: %w", err)
	}
	return userTestID, nil
}

// AssignPendingTest создает отложенное назначение теста
func (r *TestRepository) AssignPendingTest(ctx context.Context, telegramUsername string, testID int, assignedByID int) (int, error) {
	var userTestID int
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO user_tests (pending_username, test_id, assigned_by, status) VALUES (?, ?, ?, 'pending') RETURNING id",
		telegramUsername, testID, assignedByID).Scan(&userTestID)
	if err != nil {
		return 0, fmt.Errorf("failed to assign pending test: %w", err)
	}
	return userTestID, nil
}

// ActivatePendingTests активирует отложенные тесты для нового пользователя
func (r *TestRepository) ActivatePendingTests(ctx context.Context, userID int, telegramUsername string) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE user_tests
		SET user_id = ?, pending_username = NULL, status = 'assigned', updated_at = CURRENT_TIMESTAMP
		WHERE pending_username = ? AND status = 'pending'`, userID, telegramUsername)
	if err != nil {
		return 0, fmt.Errorf("failed to activate pending tests: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to activate pending tests: %w", err)
	}
	return int(n), nil
}

// GetAvailableTestsForUser получает список назначенных, но не начатых тестов пользователя
func (r *TestRepository) GetAvailableTestsForUser(ctx context.Context, userID int) ([]model.Test, error) {
	return r.queryTests(ctx, `
		SELECT t.id, t.test_name, t.test_type, t.duration, t.question_count, t.passing_score
		FROM tests t
		JOIN user_tests ut ON t.id = ut.test_id
		WHERE ut.user_id = ? AND ut.status = 'assigned'
		ORDER BY ut.id`, userID)
}

// StartTest переводит самое раннее назначение теста в статус in_progress и возвращает его ID
func (r *TestRepository) StartTest(ctx context.Context, userID, testID int, questionIDs []int, startTime time.Time, deadline *time.Time) (int, error) {
	selected, err := json.Marshal(questionIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to encode selected questions: %w", err)
	}

	var userTestID int
	err = r.db.QueryRowContext(ctx, `
		UPDATE user_tests
		SET status = 'in_progress',
			start_time = ?,
			timer_deadline = ?,
			selected_questions = ?,
			current_question_index = 0,
			correct_answers_count = 0,
			updated_at = ?
		WHERE id = (
			SELECT id FROM user_tests
			WHERE user_id = ? AND test_id = ? AND status = 'assigned'
			ORDER BY id
			LIMIT 1
		)
		RETURNING id`,
		startTime, deadline, string(selected), startTime, userID, testID).Scan(&userTestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, model.ErrNotAssigned
		}
		return 0, fmt.Errorf("failed to start test: %w", err)
	}
	return userTestID, nil
}

// GetUserTestByID получает запись user_test по ID
func (r *TestRepository) GetUserTestByID(ctx context.Context, userTestID int) (*model.UserTest, error) {
	ut, err := scanUserTest(r.db.QueryRowContext(ctx, "SELECT "+userTestColumns+" FROM user_tests WHERE id = ?", userTestID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserTestNotFound
		}
		return nil, fmt.Errorf("failed to get user test: %w", err)
	}
	return ut, nil
}

// GetInProgressUserTest получает начатый тест пользователя
func (r *TestRepository) GetInProgressUserTest(ctx context.Context, userID int) (*model.UserTest, error) {
	ut, err := scanUserTest(r.db.QueryRowContext(ctx,
		"SELECT "+userTestColumns+" FROM user_tests WHERE user_id = ? AND status = 'in_progress' ORDER BY id DESC LIMIT 1",
		userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserTestNotFound
		}
		return nil, fmt.Errorf("failed to get in-progress user test: %w", err)
	}
	return ut, nil
}

// GetUserTestsByUserID получает все тесты пользователя
func (r *TestRepository) GetUserTestsByUserID(ctx context.Context, userID int) ([]model.UserTest, error) {
	return r.queryUserTests(ctx, "SELECT "+userTestColumns+" FROM user_tests WHERE user_id = ? ORDER BY id", userID)
}

// GetActiveUserTests получает все тесты в статусе in_progress
func (r *TestRepository) GetActiveUserTests(ctx context.Context) ([]model.UserTest, error) {
	return r.queryUserTests(ctx, "SELECT "+userTestColumns+" FROM user_tests WHERE status = 'in_progress' ORDER BY id")
}

// SaveTimerMessage сохраняет сообщение с таймером
func (r *TestRepository) SaveTimerMessage(ctx context.Context, userTestID int, chatID int64, messageID int) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE user_tests SET chat_id = ?, message_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		chatID, messageID, userTestID)
	if err != nil {
		return fmt.Errorf("failed to save timer message: %w", err)
	}
	return nil
}

// SaveAnswer сохраняет ответ и переводит попытку к следующему вопросу одной транзакцией.
// Завершенная попытка не меняется.
func (r *TestRepository) SaveAnswer(ctx context.Context, answer model.Answer, currentQuestionIndex int, correctAnswersCount int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE user_tests
		SET current_question_index = ?, correct_answers_count = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'in_progress'`, currentQuestionIndex, correctAnswersCount, answer.UserTestID)
	if err != nil {
		return fmt.Errorf("failed to update user test state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user test state: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user test %d: %w", answer.UserTestID, model.ErrAlreadyFinished)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO answers (user_test_id, question_id, option_index, user_answer, is_correct, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		answer.UserTestID, answer.QuestionID, answer.OptionIndex, answer.UserAnswer, answer.IsCorrect, answer.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit answer: %w", err)
	}
	return nil
}

// GetAnswersByUserTestID получает ответы пользователя по попытке
func (r *TestRepository) GetAnswersByUserTestID(ctx context.Context, userTestID int) ([]model.Answer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_test_id, question_id, option_index, user_answer, is_correct, created_at
		FROM answers
		WHERE user_test_id = ?
		ORDER BY id`, userTestID)
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
	return answers, rows.Err()
}

// FinishUserTest завершает попытку. Возвращает false, если попытка уже была завершена.
func (r *TestRepository) FinishUserTest(ctx context.Context, result model.TestResult) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE user_tests
		SET status = 'finished',
			end_time = ?,
			time_taken = ?,
			score_percentage = ?,
			passed = ?,
			finish_reason = ?,
			correct_answers_count = ?,
			updated_at = ?
		WHERE id = ? AND status = 'in_progress'`,
		result.EndTime, result.TimeTaken, result.ScorePercentage, result.Passed, result.FinishReason,
		result.CorrectAnswers, result.EndTime, result.UserTestID)
	if err != nil {
		return false, fmt.Errorf("failed to finish user test: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to finish user test: %w", err)
	}
	return n == 1, nil
}

// CreateTestLink сохраняет ссылку-приглашение
func (r *TestRepository) CreateTestLink(ctx context.Context, link model.TestLink) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO test_links (token, test_id, created_by, created_at) VALUES (?, ?, ?, ?)",
		link.Token, link.TestID, link.CreatedBy, link.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save test link: %w", err)
	}
	return nil
}

// ConsumeTestLink помечает ссылку использованной и возвращает ее
func (r *TestRepository) ConsumeTestLink(ctx context.Context, token string, userID int, usedAt time.Time) (*model.TestLink, error) {
	var link model.TestLink
	err := r.db.QueryRowContext(ctx, `
		UPDATE test_links
		SET used_by = ?, used_at = ?
		WHERE token = ? AND used_by IS NULL
		RETURNING token, test_id, created_by, used_by, created_at, used_at`,
		userID, usedAt, token).
		Scan(&link.Token, &link.TestID, &link.CreatedBy, &link.UsedBy, &link.CreatedAt, &link.UsedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to consume test link: %w", err)
	}
	return &link, nil
}
