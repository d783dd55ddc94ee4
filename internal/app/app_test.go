package app

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/IT-Nick/proctor/internal/app/handlers/http/assign_test_handler"
	"github.com/IT-Nick/proctor/internal/app/handlers/http/generate_test_link_handler"
	"github.com/IT-Nick/proctor/internal/domain/dto"
	"github.com/IT-Nick/proctor/internal/domain/model"
	"github.com/IT-Nick/proctor/internal/infra/config"
	"github.com/IT-Nick/proctor/internal/infra/sqlite"
	"github.com/IT-Nick/proctor/internal/infra/timer"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v4"
)

type testApp struct {
	*App
	srv    *httptest.Server
	testID int
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	repos := NewSQLiteRepositories(db)
	t.Cleanup(repos.Close)

	bot, err := telebot.NewBot(telebot.Settings{Token: "test", Offline: true})
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.TelegramBot.Username = "proctor_bot"
	cfg.TelegramBot.EditRate = 25
	cfg.TelegramBot.EditBurst = 5
	cfg.Timer.TickInterval = time.Second

	app := New(cfg, repos, bot, timer.NewManualScheduler())
	t.Cleanup(app.manager.StopAll)

	hrRole, err := repos.Users.GetRoleIDByName(ctx, model.RoleHR)
	require.NoError(t, err)
	candidateRole, err := repos.Users.GetRoleIDByName(ctx, model.RoleCandidate)
	require.NoError(t, err)
	_, err = repos.Users.CreateUser(ctx, "hr_anna", 1, "Анна", hrRole)
	require.NoError(t, err)
	_, err = repos.Users.CreateUser(ctx, "ivan", 2, "Иван", candidateRole)
	require.NoError(t, err)

	minutes := 10
	imported, err := app.testService.ImportCatalog(ctx, []model.CatalogTest{{
		Test: model.Test{TestName: "Go", TestType: "backend", Duration: &minutes, QuestionCount: 2, PassingScore: 50},
		Questions: []model.Question{
			{QuestionText: "2+2?", TestOptions: []string{"3", "4"}, CorrectOption: 1},
			{QuestionText: "len() возвращает?", TestOptions: []string{"int", "uint"}, CorrectOption: 0},
		},
	}})
	require.NoError(t, err)
	require.Equal(t, 1, imported)

	tests, err := app.testService.GetTestsWithPagination(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, tests, 1)

	srv := httptest.NewServer(app.routes())
	t.Cleanup(srv.Close)
	return &testApp{App: app, srv: srv, testID: tests[0].ID}
}

func (a *testApp) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(a.srv.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (a *testApp) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(a.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// startAttempt назначает и начинает тест кандидата ivan
func (a *testApp) startAttempt(t *testing.T) int {
	t.Helper()
	ctx := context.Background()
	resp := a.post(t, "/tests/assign", assign_test_handler.AssignTestRequest{Username: "ivan", TestID: a.testID, AssignedBy: "hr_anna"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	user, err := a.userService.GetUserByUsername(ctx, "ivan")
	require.NoError(t, err)
	attempt, err := a.testService.StartTest(ctx, user.ID, a.testID)
	require.NoError(t, err)
	require.NoError(t, a.testService.SaveTimerMessage(ctx, attempt.UserTest.ID, 2, 15))
	attempt, err = a.testService.GetAttempt(ctx, attempt.UserTest.ID)
	require.NoError(t, err)
	require.NoError(t, a.sessions.Start(ctx, attempt))
	return attempt.UserTest.ID
}

func TestAssignTest(t *testing.T) {
	a := newTestApp(t)

	resp := a.post(t, "/tests/assign", assign_test_handler.AssignTestRequest{Username: "ivan", TestID: a.testID, AssignedBy: "hr_anna"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var assigned assign_test_handler.AssignTestResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&assigned))
	assert.False(t, assigned.Pending)
	assert.NotZero(t, assigned.UserTestID)

	// Кандидат еще не писал боту
	resp = a.post(t, "/tests/assign", assign_test_handler.AssignTestRequest{Username: "newbie", TestID: a.testID, AssignedBy: "hr_anna"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&assigned))
	assert.True(t, assigned.Pending)

	resp = a.post(t, "/tests/assign", assign_test_handler.AssignTestRequest{Username: "ivan", TestID: a.testID, AssignedBy: "ivan"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = a.post(t, "/tests/assign", assign_test_handler.AssignTestRequest{Username: "ivan", TestID: 999, AssignedBy: "hr_anna"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = a.post(t, "/tests/assign", map[string]string{"username": "ivan"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body["error"])
}

func TestGenerateTestLink(t *testing.T) {
	a := newTestApp(t)

	resp := a.post(t, "/tests/link", generate_test_link_handler.GenerateTestLinkRequest{Username: "hr_anna", TestID: a.testID})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var link generate_test_link_handler.GenerateTestLinkResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&link))
	assert.True(t, strings.HasPrefix(link.Link, "https://t.me/proctor_bot?start=test_"), link.Link)

	png, err := base64.StdEncoding.DecodeString(link.QRCodePNG)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	resp = a.post(t, "/tests/link", generate_test_link_handler.GenerateTestLinkRequest{Username: "ivan", TestID: a.testID})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = a.post(t, "/tests/link", generate_test_link_handler.GenerateTestLinkRequest{Username: "hr_anna", TestID: 999})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateUserRole(t *testing.T) {
	a := newTestApp(t)

	resp := a.post(t, "/users/update_role", map[string]string{"username": "ivan", "role_name": model.RoleHR})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	user, err := a.userService.GetUserByUsername(context.Background(), "ivan")
	require.NoError(t, err)
	allowed, err := a.userService.HasPermission(context.Background(), user, model.PermissionAssignTests)
	require.NoError(t, err)
	assert.True(t, allowed)

	resp = a.post(t, "/users/update_role", map[string]string{"username": "ivan", "role_name": "superuser"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = a.post(t, "/users/update_role", map[string]string{"username": "nobody", "role_name": model.RoleHR})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestActiveTests(t *testing.T) {
	a := newTestApp(t)
	userTestID := a.startAttempt(t)

	resp := a.get(t, "/tests/active")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var active dto.ActiveTestsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&active))
	require.Equal(t, 1, active.TotalActiveUsers)
	info := active.ActiveTests[0]
	assert.Equal(t, userTestID, info.UserTestID)
	assert.Equal(t, "ivan", info.TelegramUsername)
	assert.Equal(t, 2, info.TotalQuestions)
	// Таймер еще не тикал
	assert.Equal(t, "10:00", info.RemainingTime)
	assert.Equal(t, 0, info.ElapsedSeconds)
}

func TestUserReportAndPDF(t *testing.T) {
	a := newTestApp(t)
	userTestID := a.startAttempt(t)
	ctx := context.Background()

	attempt, err := a.testService.GetAttempt(ctx, userTestID)
	require.NoError(t, err)
	q := attempt.CurrentQuestion()
	_, err = a.testService.SubmitAnswer(ctx, userTestID, q.ID, q.CorrectOption)
	require.NoError(t, err)
	_, finished, err := a.testService.FinishUserTest(ctx, userTestID, 42, model.FinishTimeout)
	require.NoError(t, err)
	require.True(t, finished)

	resp := a.post(t, "/users/report", map[string]string{"username": "ivan"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history dto.UserTestReportResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	require.Len(t, history.TestHistory, 1)
	assert.Equal(t, int64(2), history.TelegramID)
	assert.Equal(t, 1, history.TestHistory[0].CorrectAnswers)
	assert.Equal(t, 42, history.TestHistory[0].TimeTaken)
	assert.Equal(t, model.FinishTimeout, history.TestHistory[0].FinishReason)

	resp = a.get(t, "/user_tests/"+itoa(userTestID)+"/report.pdf")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	var pdf bytes.Buffer
	_, err = pdf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf.Bytes(), []byte("%PDF")))

	assert.Equal(t, http.StatusNotFound, a.get(t, "/user_tests/999/report.pdf").StatusCode)
	assert.Equal(t, http.StatusBadRequest, a.get(t, "/user_tests/abc/report.pdf").StatusCode)
	assert.Equal(t, http.StatusNotFound, a.post(t, "/users/report", map[string]string{"username": "nobody"}).StatusCode)

	// Завершенную попытку нельзя смотреть в реальном времени
	assert.Equal(t, http.StatusConflict, a.get(t, "/user_tests/"+itoa(userTestID)+"/timer").StatusCode)
}

func TestTimerWebSocket(t *testing.T) {
	a := newTestApp(t)
	userTestID := a.startAttempt(t)

	url := "ws" + strings.TrimPrefix(a.srv.URL, "http") + "/user_tests/" + itoa(userTestID) + "/timer"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return a.hub.Subscribers(userTestID) == 1 }, time.Second, 10*time.Millisecond)

	_, resp, err := websocket.DefaultDialer.Dial(strings.Replace(url, itoa(userTestID), "999", 1), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
