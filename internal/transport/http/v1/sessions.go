package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// GetSession returns a session's stored messages. With ?limit=n only the
// newest n are returned.
// GET /api/sessions/:session_id
func (h *Handler) GetSession(c echo.Context) error {
	sessionID := c.Param("session_id")
	ctx := c.Request().Context()

	session, err := h.service.GetSession(ctx, sessionID)
	if err != nil {
		return writeError(c, err)
	}

	if l := c.QueryParam("limit"); l != "" {
		if limit, err := strconv.Atoi(l); err == nil && limit > 0 {
			messages, err := h.service.History(ctx, sessionID, limit)
			if err != nil {
				return writeError(c, err)
			}
			session.Messages = messages
		}
	}

	return c.JSON(http.StatusOK, session)
}

// DeleteSession clears a session.
// DELETE /api/sessions/:session_id
func (h *Handler) DeleteSession(c echo.Context) error {
	if err := h.service.ClearSession(c.Request().Context(), c.Param("session_id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
