// Package http provides the HTTP server implementation for the proxy.
package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/qw31415/claude-vision-api/internal/domain"
	"github.com/qw31415/claude-vision-api/internal/metrics"
	"github.com/qw31415/claude-vision-api/internal/policy"
	"github.com/qw31415/claude-vision-api/internal/service"
	v1 "github.com/qw31415/claude-vision-api/internal/transport/http/v1"
)

// NewServer creates and configures the HTTP server.
func NewServer(svc *service.Service, engine *policy.Engine, m *metrics.Metrics, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	if engine.OpenMode() {
		logger.Warn("No ALLOWED_API_KEYS configured. This is not recommended for production.")
	}

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger(logger))
	e.Use(CORS())
	e.Use(Auth(engine, m, logger))

	// Handlers
	v1Handler := v1.NewHandler(svc, logger)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	return e
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				logger.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	})
}

// errorHandler renders every unhandled error as the JSON error body. Unknown
// routes and wrong methods both answer 404.
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := domain.ErrorResponse{Error: "Internal Server Error", Message: err.Error()}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			switch he.Code {
			case http.StatusNotFound, http.StatusMethodNotAllowed:
				status = http.StatusNotFound
				body = domain.ErrorResponse{Error: "Not Found", Message: v1.AvailableEndpoints}
			default:
				status = he.Code
				body = domain.ErrorResponse{Error: http.StatusText(he.Code), Message: fmt.Sprint(he.Message)}
			}
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request error", zap.String("uri", c.Request().RequestURI), zap.Error(err))
		}

		if err := c.JSON(status, body); err != nil {
			logger.Error("failed to write error response", zap.Error(err))
		}
	}
}
