package service

import (
	"context"
	"fmt"
	"time"

	"github.com/IT-Nick/proctor/internal/domain/dto"
	"github.com/IT-Nick/proctor/internal/domain/model"
	"github.com/IT-Nick/proctor/internal/infra/timer"
)

const timeLayout = "2006-01-02 15:04:05"

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}

// questionInfos вопросы попытки вместе с ответами пользователя
func questionInfos(questions []model.Question, answers []model.Answer) []dto.QuestionInfo {
	infos := make([]dto.QuestionInfo, 0, len(questions))
	for _, q := range questions {
		info := dto.QuestionInfo{
			QuestionID:    q.ID,
			QuestionText:  q.QuestionText,
			CorrectAnswer: q.CorrectAnswer(),
			Explanation:   q.Explanation,
			TestOptions:   q.TestOptions,
		}
		if info.TestOptions == nil {
			info.TestOptions = []string{}
		}

		// Проверяем, есть ли ответ для этого вопроса
		for _, a := range answers {
			if a.QuestionID == q.ID {
				info.UserAnswer = a.UserAnswer
				info.IsCorrect = a.IsCorrect
				info.AnsweredAt = a.CreatedAt.Format(timeLayout)
				break
			}
		}
		infos = append(infos, info)
	}
	return infos
}

// GetUserTestReport получает полный отчет по тестам пользователя
func (s *TestService) GetUserTestReport(ctx context.Context, userID int) ([]dto.TestHistory, error) {
	userTests, err := s.testRepo.GetUserTestsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user tests: %w", err)
	}

	testHistory := make([]dto.TestHistory, 0, len(userTests))
	for i := range userTests {
		userTest := &userTests[i]
		a, err := s.attempt(ctx, userTest)
		if err != nil {
			return nil, err
		}

		answers, err := s.testRepo.GetAnswersByUserTestID(ctx, userTest.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get answers for user test %d: %w", userTest.ID, err)
		}

		// Получаем информацию о назначившем пользователе
		assignedByUser, err := s.userRepo.GetUserByID(ctx, userTest.AssignedBy)
		if err != nil {
			return nil, fmt.Errorf("failed to get assigned by user %d: %w", userTest.AssignedBy, err)
		}
		assignedByUsername := ""
		if assignedByUser != nil {
			assignedByUsername = assignedByUser.TelegramUsername
		}

		result := storedResult(a)
		testHistory = append(testHistory, dto.TestHistory{
			UserTestID:      userTest.ID,
			TestID:          a.Test.ID,
			TestName:        a.Test.TestName,
			TestType:        a.Test.TestType,
			Duration:        a.Test.Duration,
			QuestionCount:   a.Test.QuestionCount,
			Status:          userTest.Status,
			StartTime:       formatTime(userTest.StartTime),
			EndTime:         formatTime(userTest.EndTime),
			CorrectAnswers:  userTest.CorrectAnswersCount,
			TotalQuestions:  a.Total(),
			ScorePercentage: result.ScorePercentage,
			Passed:          result.Passed,
			TimeTaken:       result.TimeTaken,
			FinishReason:    result.FinishReason,
			TimerDeadline:   formatTime(userTest.TimerDeadline),
			AssignedBy:      assignedByUsername,
			Questions:       questionInfos(a.Questions, answers),
		})
	}

	return testHistory, nil
}

// GetActiveTests получает список активных тестов (пользователей, решающих тесты)
func (s *TestService) GetActiveTests(ctx context.Context) ([]dto.ActiveTestInfo, error) {
	attempts, err := s.GetActiveAttempts(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	activeTestInfos := make([]dto.ActiveTestInfo, 0, len(attempts))
	for _, a := range attempts {
		userTest := a.UserTest
		if userTest.UserID == nil {
			continue
		}
		user, err := s.userRepo.GetUserByID(ctx, *userTest.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to get user %d: %w", *userTest.UserID, err)
		}
		if user == nil {
			continue // Пропускаем, если пользователь не найден
		}

		var currentQuestion dto.QuestionInfoActive
		if q := a.CurrentQuestion(); q != nil {
			currentQuestion = dto.QuestionInfoActive{
				QuestionID:   q.ID,
				QuestionText: q.QuestionText,
				TestOptions:  q.TestOptions,
			}
		}

		answers, err := s.testRepo.GetAnswersByUserTestID(ctx, userTest.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get answers for user test %d: %w", userTest.ID, err)
		}
		previousAnswers := make([]dto.AnswerInfo, 0, len(answers))
		for _, answer := range answers {
			var questionText string
			for _, q := range a.Questions {
				if q.ID == answer.QuestionID {
					questionText = q.QuestionText
					break
				}
			}
			previousAnswers = append(previousAnswers, dto.AnswerInfo{
				QuestionID:   answer.QuestionID,
				QuestionText: questionText,
				UserAnswer:   answer.UserAnswer,
				IsCorrect:    answer.IsCorrect,
				AnsweredAt:   answer.CreatedAt.Format(timeLayout),
			})
		}

		// Оставшееся время по дедлайну. Запущенный таймер уточняет его в HTTP-обработчике.
		remainingTime := ""
		if userTest.TimerDeadline != nil {
			remainingTime = timer.FormatRemaining(int(userTest.TimerDeadline.Sub(now) / time.Second))
		}

		activeTestInfos = append(activeTestInfos, dto.ActiveTestInfo{
			UserTestID:       userTest.ID,
			TelegramUsername: user.TelegramUsername,
			FullName:         user.FullName(),
			TestID:           a.Test.ID,
			TestName:         a.Test.TestName,
			TestType:         a.Test.TestType,
			Duration:         a.Test.Duration,
			CurrentQuestion:  currentQuestion,
			PreviousAnswers:  previousAnswers,
			CorrectAnswers:   userTest.CorrectAnswersCount,
			TotalQuestions:   a.Total(),
			RemainingTime:    remainingTime,
			ElapsedSeconds:   a.ElapsedSeconds(now),
			Status:           userTest.Status,
		})
	}

	return activeTestInfos, nil
}

// GetAttemptResult собирает данные для отчета по одной попытке
func (s *TestService) GetAttemptResult(ctx context.Context, userTestID int) (*dto.AttemptReport, error) {
	a, err := s.GetAttempt(ctx, userTestID)
	if err != nil {
		return nil, err
	}
	userTest := a.UserTest

	answers, err := s.testRepo.GetAnswersByUserTestID(ctx, userTestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get answers for user test %d: %w", userTestID, err)
	}

	report := &dto.AttemptReport{
		UserTestID:     userTestID,
		TestName:       a.Test.TestName,
		TestType:       a.Test.TestType,
		Duration:       a.Test.Duration,
		PassingScore:   a.Test.PassingScore,
		Status:         userTest.Status,
		StartTime:      formatTime(userTest.StartTime),
		EndTime:        formatTime(userTest.EndTime),
		CorrectAnswers: userTest.CorrectAnswersCount,
		TotalQuestions: a.Total(),
		Questions:      questionInfos(a.Questions, answers),
	}

	result := storedResult(a)
	report.ScorePercentage = result.ScorePercentage
	report.Passed = result.Passed
	report.TimeTaken = result.TimeTaken
	report.FinishReason = result.FinishReason

	if userTest.UserID != nil {
		user, err := s.userRepo.GetUserByID(ctx, *userTest.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to get user %d: %w", *userTest.UserID, err)
		}
		if user != nil {
			report.TelegramUsername = user.TelegramUsername
			report.FullName = user.FullName()
		}
	} else if userTest.PendingUsername != nil {
		report.TelegramUsername = *userTest.PendingUsername
	}

	return report, nil
}
