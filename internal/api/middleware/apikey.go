package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/markme/facecheck/internal/domain"
)

// HeaderAPIKey carries the shared API key.
const HeaderAPIKey = "X-API-Key"

// APIKey rejects requests that do not present the expected key, either in
// X-API-Key or as a Bearer token.
func APIKey(expected string) fiber.Handler {
	want := []byte(expected)

	return func(c *fiber.Ctx) error {
		got := strings.TrimSpace(c.Get(HeaderAPIKey))
		if got == "" {
			got = extractBearerToken(c)
		}

		if got == "" || len(want) == 0 || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			return domain.ErrUnauthorized
		}

		return c.Next()
	}
}

// extractBearerToken extracts token from Authorization header
func extractBearerToken(c *fiber.Ctx) string {
	auth := c.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
