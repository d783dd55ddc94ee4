package assign_test_handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/IT-Nick/proctor/internal/domain/model"
	testsService "github.com/IT-Nick/proctor/internal/domain/tests/service"
	usersService "github.com/IT-Nick/proctor/internal/domain/users/service"
	httpError "github.com/IT-Nick/proctor/pkg/http"
)

// AssignTestRequest структура для данных запроса
type AssignTestRequest struct {
	Username   string `json:"username"`
	TestID     int    `json:"test_id"`
	AssignedBy string `json:"assigned_by"`
}

// AssignTestResponse структура для ответа
type AssignTestResponse struct {
	UserTestID int  `json:"user_test_id"`
	Pending    bool `json:"pending"`
}

// AssignTestHandler назначает тест кандидату по username
type AssignTestHandler struct {
	userService *usersService.UserService
	testService *testsService.TestService
}

// NewAssignTestHandler создает новый экземпляр обработчика
func NewAssignTestHandler(userService *usersService.UserService, testService *testsService.TestService) *AssignTestHandler {
	return &AssignTestHandler{
		userService: userService,
		testService: testService,
	}
}

// ServeHTTP метод для обработки запроса
func (h *AssignTestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req AssignTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.TestID <= 0 || req.AssignedBy == "" {
		httpError.ErrorResponse(w, http.StatusBadRequest, "Missing username, test_id or assigned_by")
		return
	}

	ctx := r.Context()
	assigner, err := h.userService.GetUserByUsername(ctx, req.AssignedBy)
	if err != nil {
		httpError.ErrorResponse(w, http.StatusInternalServerError, fmt.Sprintf("Failed to find user: %v", err))
		return
	}
	allowed, err := h.userService.HasPermission(ctx, assigner, model.PermissionAssignTests)
	if err != nil {
		httpError.ErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve permissions")
		return
	}
	if !allowed {
		httpError.ErrorResponse(w, http.StatusForbidden, "User does not have permission to assign tests")
		return
	}

	userTestID, pending, err := h.testService.AssignTest(ctx, req.Username, req.TestID, req.AssignedBy)
	if errors.Is(err, model.ErrTestNotFound) {
		httpError.ErrorResponse(w, http.StatusNotFound, fmt.Sprintf("Test with ID %d not found", req.TestID))
		return
	}
	if err != nil {
		httpError.ErrorResponse(w, http.StatusInternalServerError, fmt.Sprintf("Failed to assign test: %v", err))
		return
	}

	httpError.JSONResponse(w, http.StatusOK, AssignTestResponse{UserTestID: userTestID, Pending: pending})
}
