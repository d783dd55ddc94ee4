package session

import (
	"context"
	"log"

	"github.com/IT-Nick/proctor/internal/domain/model"
	"gopkg.in/telebot.v4"
)

var finishReasonText = map[string]string{
	model.FinishCompleted: "все вопросы отвечены",
	model.FinishTimeout:   "время вышло",
}

// notifyCandidate сообщает кандидату результат попытки, завершенной таймером
func (s *Sessions) notifyCandidate(ctx context.Context, userTestID int, result *model.TestResult) {
	a, err := s.tests.GetAttempt(ctx, userTestID)
	if err != nil {
		log.Printf("Failed to load user test %d for notification: %v", userTestID, err)
		return
	}
	if a.UserTest.ChatID == nil {
		return
	}

	text := s.messages.Text(ctx, model.MsgTestFinished, result.CorrectAnswers, result.TotalQuestions, result.ScorePercentage)
	if _, err := s.bot.Send(telebot.ChatID(*a.UserTest.ChatID), text); err != nil {
		log.Printf("Failed to notify candidate of user test %d: %v", userTestID, err)
	}
}

// notifyAssigner сообщает результат HR, который назначил тест
func (s *Sessions) notifyAssigner(ctx context.Context, userTestID int, result *model.TestResult) {
	a, err := s.tests.GetAttempt(ctx, userTestID)
	if err != nil {
		log.Printf("Failed to load user test %d for notification: %v", userTestID, err)
		return
	}

	hr, err := s.users.GetUserByID(ctx, a.UserTest.AssignedBy)
	if err != nil || hr == nil || hr.TelegramID == nil {
		log.Printf("Assigner of user test %d is not reachable in Telegram", userTestID)
		return
	}

	candidate := "unknown"
	if a.UserTest.UserID != nil {
		if u, err := s.users.GetUserByID(ctx, *a.UserTest.UserID); err == nil && u != nil {
			candidate = u.TelegramUsername
		}
	}

	verdict := "не пройден"
	if result.Passed {
		verdict = "пройден"
	}
	reason := finishReasonText[result.FinishReason]
	if reason == "" {
		reason = result.FinishReason
	}

	text := s.messages.Text(ctx, model.MsgCandidateDone,
		candidate, a.Test.TestName, reason, result.CorrectAnswers, result.TotalQuestions, result.ScorePercentage, verdict)
	if _, err := s.bot.Send(telebot.ChatID(*hr.TelegramID), text); err != nil {
		log.Printf("Failed to notify assigner of user test %d: %v", userTestID, err)
	}
}
