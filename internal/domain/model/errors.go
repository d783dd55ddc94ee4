package model

import "errors"

var (
	// ErrTestNotFound тест не найден
	ErrTestNotFound = errors.New("test not found")
	// ErrUserTestNotFound назначение теста не найдено
	ErrUserTestNotFound = errors.New("user test not found")
	// ErrNotAssigned тест не назначен пользователю или уже начат
	ErrNotAssigned = errors.New("test is not assigned to user")
	// ErrAlreadyFinished попытка уже завершена
	ErrAlreadyFinished = errors.New("user test already finished")
	// ErrQuestionMismatch ответ пришел не на текущий вопрос
	ErrQuestionMismatch = errors.New("answer does not match current question")
	// ErrInvalidOption номер варианта ответа вне диапазона
	ErrInvalidOption = errors.New("answer option out of range")
	// ErrLinkNotFound ссылка не найдена или уже использована
	ErrLinkNotFound = errors.New("test link not found or already used")
	// ErrNoQuestions у теста нет вопросов
	ErrNoQuestions = errors.New("test has no questions")
)

// ErrMessageNotFound текст сообщения отсутствует в базе
var ErrMessageNotFound = errors.New("message not found")

// ErrUserNotFound пользователь не найден
var ErrUserNotFound = errors.New("user not found")

// ErrRoleNotFound роль не найдена
var ErrRoleNotFound = errors.New("role not found")
