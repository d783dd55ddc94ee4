package attempt_report_handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	testsService "github.com/IT-Nick/proctor/internal/domain/tests/service"
	"github.com/IT-Nick/proctor/internal/infra/report"
	httpError "github.com/IT-Nick/proctor/pkg/http"
)

// AttemptReportHandler отдает PDF-отчет по попытке
type AttemptReportHandler struct {
	testService *testsService.TestService
	generator   *report.Generator
}

// NewAttemptReportHandler создает новый экземпляр обработчика
func NewAttemptReportHandler(testService *testsService.TestService, generator *report.Generator) *AttemptReportHandler {
	return &AttemptReportHandler{
		testService: testService,
		generator:   generator,
	}
}

// ServeHTTP метод для обработки запроса
func (h *AttemptReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userTestID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || userTestID <= 0 {
		httpError.ErrorResponse(w, http.StatusBadRequest, "Invalid user test id")
		return
	}

	result, err := h.testService.GetAttemptResult(r.Context(), userTestID)
	if testsService.IsNotFound(err) {
		httpError.ErrorResponse(w, http.StatusNotFound, fmt.Sprintf("User test %d not found", userTestID))
		return
	}
	if err != nil {
		httpError.ErrorResponse(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load user test: %v", err))
		return
	}

	var buf bytes.Buffer
	if err := h.generator.Write(&buf, result); err != nil {
		httpError.ErrorResponse(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate report: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=user_test_%d.pdf", userTestID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
