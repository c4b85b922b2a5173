package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/qw31415/claude-vision-api/internal/domain"
)

// Chat handles text-only chat. Images in the body are ignored.
// POST /api/chat
func (h *Handler) Chat(c echo.Context) error {
	return h.chat(c, false)
}

// ChatMultimodal handles chat with text and images.
// POST /api/chat/multimodal
func (h *Handler) ChatMultimodal(c echo.Context) error {
	return h.chat(c, true)
}

func (h *Handler) chat(c echo.Context, multimodal bool) error {
	var req domain.ChatRequest
	if err := bindJSON(c, &req); err != nil {
		return invalidBody(c)
	}

	resp, err := h.service.Chat(c.Request().Context(), req, multimodal)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// ImageUpload analyzes one image.
// POST /api/image/upload
func (h *Handler) ImageUpload(c echo.Context) error {
	var req domain.ImageRequest
	if err := bindJSON(c, &req); err != nil {
		return invalidBody(c)
	}

	resp, err := h.service.AnalyzeImage(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}
