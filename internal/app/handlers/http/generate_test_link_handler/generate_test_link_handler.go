package generate_test_link_handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/IT-Nick/proctor/internal/domain/model"
	testsService "github.com/IT-Nick/proctor/internal/domain/tests/service"
	usersService "github.com/IT-Nick/proctor/internal/domain/users/service"
	httpError "github.com/IT-Nick/proctor/pkg/http"
	"github.com/skip2/go-qrcode"
)

const qrCodeSize = 256

// GenerateTestLinkHandler структура для обработчика
type GenerateTestLinkHandler struct {
	testService *testsService.TestService
	userService *usersService.UserService
	botUsername string
}

// NewGenerateTestLinkHandler создает новый экземпляр обработчика
func NewGenerateTestLinkHandler(
	testService *testsService.TestService,
	userService *usersService.UserService,
	botUsername string,
) *GenerateTestLinkHandler {
	return &GenerateTestLinkHandler{
		testService: testService,
		userService: userService,
		botUsername: botUsername,
	}
}

// ServeHTTP создает одноразовую ссылку-приглашение и QR-код к ней
func (h *GenerateTestLinkHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req GenerateTestLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Проверяем, что username и test_id указаны
	if req.Username == "" || req.TestID <= 0 {
		httpError.ErrorResponse(w, http.StatusBadRequest, "Missing username or test_id")
		return
	}

	ctx := r.Context()
	user, err := h.userService.GetUserByUsername(ctx, req.Username)
	if err != nil || user == nil {
		httpError.ErrorResponse(w, http.StatusUnauthorized, "User not found")
		return
	}

	allowed, err := h.userService.HasPermission(ctx, user, model.PermissionGenerateQR)
	if err != nil {
		httpError.ErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve permissions")
		return
	}
	if !allowed {
		httpError.ErrorResponse(w, http.StatusForbidden, "User does not have permission to generate test links")
		return
	}

	token, err := h.testService.CreateTestLink(ctx, req.TestID, req.Username)
	if errors.Is(err, model.ErrTestNotFound) {
		httpError.ErrorResponse(w, http.StatusNotFound, fmt.Sprintf("Test with ID %d not found", req.TestID))
		return
	}
	if err != nil {
		httpError.ErrorResponse(w, http.StatusInternalServerError, "Failed to save test link")
		return
	}

	link := fmt.Sprintf("https://t.me/%s?start=test_%d_%s", h.botUsername, req.TestID, token)

	png, err := qrcode.Encode(link, qrcode.Medium, qrCodeSize)
	if err != nil {
		httpError.ErrorResponse(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate QR code: %v", err))
		return
	}

	httpError.JSONResponse(w, http.StatusOK, GenerateTestLinkResponse{
		Link:      link,
		QRCodePNG: base64.StdEncoding.EncodeToString(png),
	})
}
