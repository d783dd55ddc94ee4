package model

// Test описывает тест из каталога
type Test struct {
	ID            int    `json:"id"`
	TestName      string `json:"test_name"`
	TestType      string `json:"test_type"`
	Duration      *int   `json:"duration,omitempty"` // в минутах, nil - без ограничения по времени
	QuestionCount int    `json:"question_count"`
	PassingScore  int    `json:"passing_score"` // в процентах
}

// HasTimeLimit сообщает, ограничен ли тест по времени
func (t Test) HasTimeLimit() bool {
	return t.Duration != nil
}
