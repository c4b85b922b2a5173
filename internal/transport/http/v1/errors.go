package v1

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/qw31415/claude-vision-api/internal/domain"
	"github.com/qw31415/claude-vision-api/internal/imageval"
)

// writeError maps a service error to its status and JSON body.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidImage):
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "Invalid Image", Message: imageval.Message(err)})
	case errors.Is(err, domain.ErrBadRequest):
		return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "Bad Request", Message: detail(err, domain.ErrBadRequest)})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, domain.ErrorResponse{Error: "Unauthorized", Message: detail(err, domain.ErrUnauthorized)})
	case errors.Is(err, domain.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, domain.ErrorResponse{Error: "Not Found", Message: "Session not found"})
	default:
		return c.JSON(http.StatusInternalServerError, domain.ErrorResponse{Error: "Internal Server Error", Message: err.Error()})
	}
}

// detail strips the sentinel prefix from a wrapped error message.
func detail(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == sentinel.Error() {
		return ""
	}
	return msg
}

func invalidBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: "Bad Request", Message: "Invalid JSON body"})
}

// bindJSON decodes the body as JSON regardless of Content-Type. An empty
// body leaves v untouched.
func bindJSON(c echo.Context, v interface{}) error {
	err := c.Echo().JSONSerializer.Deserialize(c, v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// errorMessage is the client-facing text of err, as writeError would show it.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidImage):
		return imageval.Message(err)
	case errors.Is(err, domain.ErrBadRequest):
		return detail(err, domain.ErrBadRequest)
	default:
		return err.Error()
	}
}
