package active_tests_handler

import (
	"fmt"
	"net/http"

	"github.com/IT-Nick/proctor/internal/domain/dto"
	testsService "github.com/IT-Nick/proctor/internal/domain/tests/service"
	"github.com/IT-Nick/proctor/internal/infra/timer"
	httpError "github.com/IT-Nick/proctor/pkg/http"
)

// Timers оставшееся время запущенных таймеров
type Timers interface {
	Remaining(userTestID int) (remaining int, elapsed int, ok bool)
}

// ActiveTestsHandler структура для обработчика
type ActiveTestsHandler struct {
	testService *testsService.TestService
	timers      Timers
}

// NewActiveTestsHandler создает новый экземпляр обработчика
func NewActiveTestsHandler(testService *testsService.TestService, timers Timers) *ActiveTestsHandler {
	return &ActiveTestsHandler{
		testService: testService,
		timers:      timers,
	}
}

// ServeHTTP метод для обработки запроса
func (h *ActiveTestsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	activeTests, err := h.testService.GetActiveTests(r.Context())
	if err != nil {
		httpError.ErrorResponse(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get active tests: %v", err))
		return
	}

	// Запущенный таймер точнее дедлайна из базы
	if h.timers != nil {
		for i := range activeTests {
			if remaining, elapsed, ok := h.timers.Remaining(activeTests[i].UserTestID); ok {
				activeTests[i].RemainingTime = timer.FormatRemaining(remaining)
				activeTests[i].ElapsedSeconds = elapsed
			}
		}
	}

	httpError.JSONResponse(w, http.StatusOK, dto.ActiveTestsResponse{
		TotalActiveUsers: len(activeTests),
		ActiveTests:      activeTests,
	})
}
