package service

import (
	"testing"

	"github.com/IT-Nick/proctor/internal/domain/model"
	"github.com/stretchr/testify/assert"
)

func makePool(n int) []model.Question {
	qs := make([]model.Question, 0, n)
	for i := 1; i <= n; i++ {
		qs = append(qs, model.Question{ID: i})
	}
	return qs
}

func TestSelectQuestions(t *testing.T) {
	cases := []struct {
		name  string
		pool  int
		count int
		want  int
	}{
		{name: "subset", pool: 10, count: 4, want: 4},
		{name: "pool smaller than count", pool: 3, count: 5, want: 3},
		{name: "zero count takes all", pool: 6, count: 0, want: 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := makePool(tc.pool)
			got := selectQuestions(src, tc.count)
			assert.Len(t, got, tc.want)

			seen := map[int]bool{}
			for _, q := range got {
				assert.False(t, seen[q.ID], "question %d repeated", q.ID)
				seen[q.ID] = true
			}
			// Исходный пул не перемешивается
			for i, q := range src {
				assert.Equal(t, i+1, q.ID)
			}
		})
	}
}

func TestCountCorrect(t *testing.T) {
	questions := makePool(3)
	answers := []model.Answer{
		{QuestionID: 1, IsCorrect: true},
		{QuestionID: 1, IsCorrect: true}, // повторный ответ не считается
		{QuestionID: 2, IsCorrect: false},
		{QuestionID: 9, IsCorrect: true}, // вопрос не из попытки
		{QuestionID: 3, IsCorrect: true},
	}
	assert.Equal(t, 2, countCorrect(questions, answers))
}

func TestScore(t *testing.T) {
	p, passed := score(3, 4, 75)
	assert.Equal(t, 75.0, p)
	assert.True(t, passed)

	p, passed = score(2, 3, 67)
	assert.Equal(t, 66.67, p)
	assert.False(t, passed)

	p, passed = score(0, 0, 0)
	assert.Equal(t, 0.0, p)
	assert.False(t, passed)
}
