package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS lets browser clients on other origins call the API. allowOrigins is a comma separated list;
// empty or "*" allows any origin. Credentials are never allowed, so the wildcard stays valid.
func CORS(allowOrigins string) fiber.Handler {
	allowOrigins = strings.TrimSpace(allowOrigins)
	if allowOrigins == "" {
		allowOrigins = "*"
	}
	return cors.New(cors.Config{
		AllowOrigins:  allowOrigins,
		AllowMethods:  strings.Join([]string{fiber.MethodGet, fiber.MethodPost, fiber.MethodDelete, fiber.MethodHead, fiber.MethodOptions}, ","),
		AllowHeaders:  "Origin, Content-Type, Accept, Accept-Language, " + RequestIDHeader,
		ExposeHeaders: RequestIDHeader,
	})
}
