package timer_ws_handler

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/IT-Nick/proctor/internal/domain/model"
	testsService "github.com/IT-Nick/proctor/internal/domain/tests/service"
	"github.com/IT-Nick/proctor/internal/infra/websocket"
	httpError "github.com/IT-Nick/proctor/pkg/http"
)

// TimerWSHandler подписывает браузер на кадры таймера попытки
type TimerWSHandler struct {
	testService *testsService.TestService
	hub         *websocket.Hub
}

// NewTimerWSHandler создает новый экземпляр обработчика
func NewTimerWSHandler(testService *testsService.TestService, hub *websocket.Hub) *TimerWSHandler {
	return &TimerWSHandler{
		testService: testService,
		hub:         hub,
	}
}

// ServeHTTP метод для обработки запроса
func (h *TimerWSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userTestID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || userTestID <= 0 {
		httpError.ErrorResponse(w, http.StatusBadRequest, "Invalid user test id")
		return
	}

	attempt, err := h.testService.GetAttempt(r.Context(), userTestID)
	if testsService.IsNotFound(err) {
		httpError.ErrorResponse(w, http.StatusNotFound, fmt.Sprintf("User test %d not found", userTestID))
		return
	}
	if err != nil {
		httpError.ErrorResponse(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load user test: %v", err))
		return
	}
	if attempt.UserTest.Status != model.StatusInProgress {
		httpError.ErrorResponse(w, http.StatusConflict, fmt.Sprintf("User test %d is %s", userTestID, attempt.UserTest.Status))
		return
	}

	// Ответ при ошибке upgrade уже отправлен
	if err := h.hub.Subscribe(w, r, userTestID); err != nil {
		log.Printf("WebSocket upgrade for user test %d failed: %v", userTestID, err)
	}
}
