package middleware

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"imgupload/internal/logger"
)

// ErrorLocalKey holds an internal error cause that a handler already rendered as a response.
const ErrorLocalKey = "error_cause"

// Logger writes one structured entry per request with request_id, method, path, status and latency
// in milliseconds. Server errors log at error level. Requests that carry a cause (returned, or stored under
// ErrorLocalKey by a handler that already answered) log at warn level.
func Logger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		// Errors are rendered by the app ErrorHandler after this returns; mirror its status here.
		status := c.Response().StatusCode()
		if err != nil {
			status = fiberStatus(err)
		}

		cause := err
		if cause == nil {
			cause, _ = c.Locals(ErrorLocalKey).(error)
		}

		rid, _ := c.Locals(RequestIDLocalKey).(string)
		fields := []zap.Field{
			zap.String("request_id", rid),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Float64("latency", float64(time.Since(start).Microseconds())/1000),
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			log.Error("request", append(fields, zap.Error(cause))...)
		case cause != nil:
			log.Warn("request", append(fields, zap.Error(cause))...)
		default:
			log.Info("request", fields...)
		}

		return err
	}
}

// LoggerWithWriter logs requests as JSON lines to w, with "ts" rendered in loc.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	return Logger(logger.NewWithWriter(w, loc, zapcore.InfoLevel))
}
