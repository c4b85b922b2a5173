// Package v1 provides the public API handlers.
package v1

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/qw31415/claude-vision-api/internal/service"
)

const (
	serviceName    = "Claude Vision API"
	serviceVersion = "1.0.0"
)

// AvailableEndpoints is the hint returned for unknown routes.
const AvailableEndpoints = "Available endpoints: /api/health, /api/chat, /api/chat/stream, /api/chat/ws, /api/image/upload, /api/chat/multimodal, /api/sessions/:id"

// Handler handles HTTP requests.
type Handler struct {
	service  *service.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterRoutes registers the API routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/health", h.Health)

	// Chat API
	e.POST("/api/chat", h.Chat)
	e.POST("/api/chat/multimodal", h.ChatMultimodal)
	e.POST("/api/chat/stream", h.ChatStream)
	e.GET("/api/chat/ws", h.ChatWebSocket)

	// Vision API
	e.POST("/api/image/upload", h.ImageUpload)

	// Session API
	e.GET("/api/sessions/:session_id", h.GetSession)
	e.DELETE("/api/sessions/:session_id", h.DeleteSession)
}

type healthResponse struct {
	Status    string   `json:"status"`
	Timestamp string   `json:"timestamp"`
	Service   string   `json:"service"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
	Features  []string `json:"features"`
}

// Health returns the service capabilities.
// GET /api/health
func (h *Handler) Health(c echo.Context) error {
	return c.JSONPretty(http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Service:   serviceName,
		Version:   serviceVersion,
		Endpoints: []string{
			"GET /api/health - Health check",
			"POST /api/chat - Text chat",
			"POST /api/chat/stream - Streaming text chat",
			"GET /api/chat/ws - Streaming chat over WebSocket",
			"POST /api/chat/multimodal - Multimodal chat (text + images)",
			"POST /api/image/upload - Image upload and analysis",
			"GET /api/sessions/:id - Session history",
			"DELETE /api/sessions/:id - Clear session",
		},
		Features: []string{
			"Text conversations",
			"Image analysis and vision",
			"Streaming responses",
			"Session management",
			"CORS support",
			"API key authentication",
		},
	}, "  ")
}
