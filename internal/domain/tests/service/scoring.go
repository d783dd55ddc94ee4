package service

import (
	"math"
	"math/rand"

	"github.com/IT-Nick/proctor/internal/domain/model"
)

// selectQuestions выбирает случайные count вопросов из пула. Если пул меньше, берутся все вопросы.
// count <= 0 означает весь пул.
func selectQuestions(pool []model.Question, count int) []model.Question {
	cpy := make([]model.Question, len(pool))
	copy(cpy, pool)
	rand.Shuffle(len(cpy), func(i, j int) {
		cpy[i], cpy[j] = cpy[j], cpy[i]
	})
	if count <= 0 || count > len(cpy) {
		count = len(cpy)
	}
	return cpy[:count]
}

// countCorrect количество правильных ответов на вопросы попытки. Учитывается первый ответ на вопрос.
func countCorrect(questions []model.Question, answers []model.Answer) int {
	inAttempt := make(map[int]bool, len(questions))
	for _, q := range questions {
		inAttempt[q.ID] = true
	}

	seen := make(map[int]bool, len(answers))
	correct := 0
	for _, a := range answers {
		if !inAttempt[a.QuestionID] || seen[a.QuestionID] {
			continue
		}
		seen[a.QuestionID] = true
		if a.IsCorrect {
			correct++
		}
	}
	return correct
}

// score процент правильных ответов (с точностью до сотых) и признак прохождения
func score(correct, total, passingScore int) (float64, bool) {
	if total <= 0 {
		return 0, false
	}
	raw := float64(correct) * 100 / float64(total)
	return math.Round(raw*100) / 100, raw >= float64(passingScore)
}
