package generate_test_link_handler

// GenerateTestLinkRequest структура для данных запроса
type GenerateTestLinkRequest struct {
	Username string `json:"username"`
	TestID   int    `json:"test_id"`
}

// GenerateTestLinkResponse структура для ответа
type GenerateTestLinkResponse struct {
	Link      string `json:"link"`
	QRCodePNG string `json:"qr_code_png"` // PNG в base64
}
