package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/qw31415/claude-vision-api/internal/domain"
)

const (
	wsWriteTimeout   = 10 * time.Second
	wsMaxMessageSize = 32 << 20
)

// sseSink writes frames as server-sent events.
type sseSink struct {
	w *echo.Response
}

func (s *sseSink) Send(frame domain.StreamFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.w.Flush()
	return nil
}

// ChatStream relays the reply as server-sent events. Errors found before the
// upstream stream opens are answered as JSON.
// POST /api/chat/stream
func (h *Handler) ChatStream(c echo.Context) error {
	var req domain.ChatRequest
	if err := bindJSON(c, &req); err != nil {
		return invalidBody(c)
	}

	ctx := c.Request().Context()
	stream, err := h.service.OpenStream(ctx, req)
	if err != nil {
		return writeError(c, err)
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	if err := h.service.Relay(ctx, stream, &sseSink{w: res}); err != nil {
		// Can't change status code after writing response
		h.logger.Warn("stream ended with error",
			zap.String("session_id", stream.SessionID),
			zap.Error(err))
	}
	return nil
}

// wsSink writes frames as websocket text messages.
type wsSink struct {
	conn *websocket.Conn
}

func (s *wsSink) Send(frame domain.StreamFrame) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return s.conn.WriteJSON(frame)
}

// ChatWebSocket serves the streaming chat over a websocket. Each text message
// from the client is a chat request; its reply is sent back as the same
// frames the SSE endpoint emits. Failures before streaming starts become a
// single error frame.
// GET /api/chat/ws
func (h *Handler) ChatWebSocket(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("failed to upgrade websocket", zap.Error(err))
		return nil
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessageSize)

	ctx := c.Request().Context()
	sink := &wsSink{conn: conn}
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", zap.Error(err))
			}
			return nil
		}

		var req domain.ChatRequest
		if err := json.Unmarshal(message, &req); err != nil {
			if sendErr := sink.Send(domain.ErrorFrame("", "Invalid JSON body")); sendErr != nil {
				return nil
			}
			continue
		}

		stream, err := h.service.OpenStream(ctx, req)
		if err != nil {
			if sendErr := sink.Send(domain.ErrorFrame(req.SessionID, errorMessage(err))); sendErr != nil {
				return nil
			}
			continue
		}

		if err := h.service.Relay(ctx, stream, sink); err != nil {
			h.logger.Warn("stream ended with error",
				zap.String("session_id", stream.SessionID),
				zap.Error(err))
			if ctx.Err() != nil {
				return nil
			}
		}
	}
}
