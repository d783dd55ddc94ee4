package model

import "time"

// Question представляет вопрос теста
type Question struct {
	ID            int       `json:"id"`
	TestID        int       `json:"test_id"`
	QuestionText  string    `json:"question_text"`
	TestOptions   []string  `json:"test_options"`
	CorrectOption int       `json:"correct_option"`
	Explanation   string    `json:"explanation,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// CorrectAnswer текст правильного варианта ответа
func (q Question) CorrectAnswer() string {
	if q.CorrectOption < 0 || q.CorrectOption >= len(q.TestOptions) {
		return ""
	}
	return q.TestOptions[q.CorrectOption]
}
