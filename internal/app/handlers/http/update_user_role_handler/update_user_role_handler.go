package update_user_role_handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/IT-Nick/proctor/internal/domain/model"
	"github.com/IT-Nick/proctor/internal/domain/users/service"
	httpError "github.com/IT-Nick/proctor/pkg/http"
)

// UpdateUserRoleRequest структура для данных запроса
type UpdateUserRoleRequest struct {
	Username string `json:"username"`
	RoleName string `json:"role_name"`
}

// UpdateUserRoleHandler структура для обработчика
type UpdateUserRoleHandler struct {
	userService *service.UserService
}

// NewUpdateUserRoleHandler создает новый экземпляр обработчика
func NewUpdateUserRoleHandler(userService *service.UserService) *UpdateUserRoleHandler {
	return &UpdateUserRoleHandler{userService: userService}
}

// ServeHTTP метод для обработки запроса
func (h *UpdateUserRoleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var request UpdateUserRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		httpError.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if request.Username == "" || request.RoleName == "" {
		httpError.ErrorResponse(w, http.StatusBadRequest, "Missing username or role_name")
		return
	}

	userID, err := h.userService.UpdateUserRole(r.Context(), request.Username, request.RoleName)
	if errors.Is(err, model.ErrUserNotFound) || errors.Is(err, model.ErrRoleNotFound) {
		httpError.ErrorResponse(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		httpError.ErrorResponse(w, http.StatusInternalServerError, fmt.Sprintf("Failed to update user role: %v", err))
		return
	}

	httpError.JSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("User %s role updated to %s", request.Username, request.RoleName),
		"user_id": userID,
	})
}
