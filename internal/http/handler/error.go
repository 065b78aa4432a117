package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"imgupload/internal/http/middleware"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
// The message is localized; code is a stable machine-readable value (e.g. "INVALID_TYPE", "NOT_FOUND").
// A non-nil cause is handed to the request logger instead of the client. args fill the message's verbs.
func writeError(c *fiber.Ctx, status int, code string, key messageKey, cause error, args ...any) error {
	if cause != nil {
		c.Locals(middleware.ErrorLocalKey, cause)
	}
	return c.Status(status).JSON(errorPayload{
		Error:     message(c, key, args...),
		Code:      code,
		RequestID: requestIDFromCtx(c),
	})
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
// Oversized bodies are rejected by the server before routing and arrive here as 413.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", msgBadRequest, nil)
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", msgRouteNotFound, nil)
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", msgMethodNotAllowed, nil)
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", msgTooLarge, nil, sizeLabel(c.App().Config().BodyLimit))
		case fiber.StatusTooManyRequests:
			return writeError(c, status, "RATE_LIMITED", msgRateLimited, nil)
		default:
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", msgInternal, err)
		}
	}
}
