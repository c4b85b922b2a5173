package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/qw31415/claude-vision-api/internal/domain"
	"github.com/qw31415/claude-vision-api/internal/metrics"
	"github.com/qw31415/claude-vision-api/internal/policy"
)

const (
	apiPrefix  = "/api/"
	healthPath = "/api/health"

	headerAPIKey    = "X-API-Key"
	headerSessionID = "X-Session-ID"
)

// CORS sets the cross-origin headers on every response and answers
// preflight requests directly.
func CORS() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderAccessControlAllowOrigin, "*")
			h.Set(echo.HeaderAccessControlAllowMethods, "GET, POST, PUT, DELETE, OPTIONS")
			h.Set(echo.HeaderAccessControlAllowHeaders, strings.Join([]string{
				echo.HeaderContentType, echo.HeaderAuthorization, headerAPIKey, headerSessionID,
			}, ", "))
			h.Set(echo.HeaderAccessControlMaxAge, "86400")

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusOK)
			}
			return next(c)
		}
	}
}

// Auth enforces the access policy on every /api/ path except health.
func Auth(engine *policy.Engine, m *metrics.Metrics, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if !strings.HasPrefix(path, apiPrefix) {
				return next(c)
			}

			decision, err := engine.Evaluate(c.Request().Context(), policy.Request{
				Path:   path,
				Public: path == healthPath,
				APIKey: apiKey(c.Request()),
			})
			if err != nil {
				return err
			}
			if !decision.Allowed() {
				m.AuthDenied(string(decision))
				logger.Debug("request denied", zap.String("path", path), zap.String("decision", string(decision)))
				return c.JSON(http.StatusUnauthorized, domain.ErrorResponse{
					Error:   "Unauthorized",
					Message: decision.Message(),
				})
			}
			return next(c)
		}
	}
}

// apiKey reads the key from X-API-Key, falling back to a bearer token.
func apiKey(r *http.Request) string {
	if key := r.Header.Get(headerAPIKey); key != "" {
		return key
	}
	return strings.TrimSpace(strings.TrimPrefix(r.Header.Get(echo.HeaderAuthorization), "Bearer "))
}
