package model

// Константы для кнопок. Привязаны к названиям обработчиков.
// Не следует добавлять/изменять константы без изменения логики в обработчике start
const (
	StartTestKey = "start_test"
	AnswerPrefix = "answer_"

	AssignPageKey   = "assign_page"
	AssignSelectKey = "assign_test"
)

// Ключи сообщений бота в таблице messages
const (
	MsgWelcome          = "welcome_message"
	MsgStartTest        = "start_test_message"
	MsgNoAvailableTests = "no_available_tests"
	MsgTimer            = "timer_message"
	MsgTimeIsUp         = "time_is_up"
	MsgTestFinished     = "test_finished"
	MsgCandidateDone    = "candidate_finished"
	MsgLinkAccepted     = "link_accepted"
	MsgLinkInvalid      = "link_invalid"
)
