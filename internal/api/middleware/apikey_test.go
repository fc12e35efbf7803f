package middleware

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestAPIKey(t *testing.T) {
	const key = "fc_test_key"

	tests := []struct {
		name           string
		headers        map[string]string
		expectedStatus int
	}{
		{name: "valid X-API-Key", headers: map[string]string{HeaderAPIKey: key}, expectedStatus: 200},
		{name: "valid bearer token", headers: map[string]string{"Authorization": "Bearer " + key}, expectedStatus: 200},
		{name: "missing key", headers: nil, expectedStatus: 401},
		{name: "wrong key", headers: map[string]string{HeaderAPIKey: "fc_other"}, expectedStatus: 401},
		{name: "key prefix only", headers: map[string]string{HeaderAPIKey: "fc_test"}, expectedStatus: 401},
		{name: "basic auth", headers: map[string]string{"Authorization": "Basic " + key}, expectedStatus: 401},
		{name: "empty bearer", headers: map[string]string{"Authorization": "Bearer "}, expectedStatus: 401},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{
				ErrorHandler: ErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil))),
			})
			app.Use(APIKey(key))
			app.Get("/test", func(c *fiber.Ctx) error {
				return c.SendString("OK")
			})

			req := httptest.NewRequest("GET", "/test", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			resp, err := app.Test(req)
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestAPIKey_EmptyExpectedRejectsEverything(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil))),
	})
	app.Use(APIKey(""))
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(HeaderAPIKey, "")

	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}
