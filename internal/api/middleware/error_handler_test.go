package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markme/facecheck/internal/domain"
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
		wantLogged bool
	}{
		{
			name:       "app error",
			err:        domain.ErrTooManyImages.WithMessage("Maximum 4 images allowed"),
			wantStatus: 400,
			wantCode:   "TOO_MANY_IMAGES",
			wantMsg:    "Maximum 4 images allowed",
		},
		{
			name:       "wrapped app error",
			err:        fmt.Errorf("generate embedding: %w", domain.ErrNoFaceDetected),
			wantStatus: 422,
			wantCode:   "NO_FACE_DETECTED",
			wantMsg:    domain.ErrNoFaceDetected.Message,
		},
		{
			name:       "server side app error is logged",
			err:        domain.ErrExtractorUnavailable.WithError(errors.New("dial tcp")),
			wantStatus: 503,
			wantCode:   "EXTRACTOR_UNAVAILABLE",
			wantMsg:    domain.ErrExtractorUnavailable.Message,
			wantLogged: true,
		},
		{
			name:       "fiber error",
			err:        fiber.ErrMethodNotAllowed,
			wantStatus: 405,
			wantCode:   "HTTP_ERROR",
			wantMsg:    "Method Not Allowed",
		},
		{
			name:       "unknown error hides details",
			err:        errors.New("mongo: server selection timeout"),
			wantStatus: 500,
			wantCode:   "INTERNAL_ERROR",
			wantMsg:    "An unexpected error occurred",
			wantLogged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			app := fiber.New(fiber.Config{
				ErrorHandler: ErrorHandler(slog.New(slog.NewTextHandler(&logs, nil))),
			})
			app.Get("/test", func(c *fiber.Ctx) error {
				return tt.err
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			raw, _ := io.ReadAll(resp.Body)
			var body errorBody
			require.NoError(t, json.Unmarshal(raw, &body))
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Equal(t, tt.wantMsg, body.Error.Message)

			assert.Equal(t, tt.wantLogged, logs.Len() > 0)
		})
	}
}

func TestRecover(t *testing.T) {
	app := fiber.New()
	app.Use(Recover(slog.New(slog.NewTextHandler(io.Discard, nil))))
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("nil embedding")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/panic", nil))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
}

func TestLogger(t *testing.T) {
	var logs bytes.Buffer
	app := fiber.New()
	app.Use(Logger(slog.New(slog.NewTextHandler(&logs, nil))))
	app.Get("/ok", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, logs.String(), "path=/ok")
	assert.Contains(t, logs.String(), "status=200")
}
