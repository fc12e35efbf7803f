package api

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/markme/facecheck/internal/api/docs"
	"github.com/markme/facecheck/internal/api/handler"
	"github.com/markme/facecheck/internal/api/middleware"
)

// bodyLimit leaves room for a 10MB photo plus the multipart envelope.
const bodyLimit = 16 * 1024 * 1024

type Dependencies struct {
	APIKey      string
	Attendance  handler.AttendanceService
	Embeddings  handler.EmbeddingService
	ReadyChecks map[string]handler.Check

	// RateLimitPerMinute applies per client IP to the routes that call the
	// embedding extractor. Zero disables it.
	RateLimitPerMinute int
	Version            string
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	rateLimiter *middleware.RateLimiter
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Facecheck API",
		BodyLimit:    bodyLimit,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key",
	}))

	// Swagger documentation (no auth required)
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var (
		version string
		checks  map[string]handler.Check
	)
	if r.deps != nil {
		version = r.deps.Version
		checks = r.deps.ReadyChecks
	}

	// Health check endpoints (no auth required)
	healthHandler := handler.NewHealthHandler(version, checks)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	// Only configure authenticated routes if dependencies were provided
	if r.deps == nil {
		return
	}

	v1 := r.app.Group("/v1")
	v1.Use(middleware.APIKey(r.deps.APIKey))

	r.rateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Max:    r.deps.RateLimitPerMinute,
		Window: time.Minute,
	})
	limited := r.rateLimiter.Handler()

	if r.deps.Embeddings != nil {
		embeddingHandler := handler.NewEmbeddingHandler(r.deps.Embeddings, r.logger)
		v1.Post("/generate-embedding", limited, embeddingHandler.GenerateEmbedding)
		v1.Post("/recognize", limited, embeddingHandler.Recognize)
	}

	if r.deps.Attendance != nil {
		attendanceHandler := handler.NewAttendanceHandler(r.deps.Attendance, r.logger)
		v1.Post("/mark-attendance", limited, attendanceHandler.MarkAttendance)
		v1.Post("/refresh-classroom-cache/:classroom_id", attendanceHandler.RefreshClassroom)
		v1.Get("/debug/classroom/:classroom_id", attendanceHandler.InspectClassroom)
		v1.Get("/attendance", attendanceHandler.ListAttendance)
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	// Stop rate limiter cleanup goroutine
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
