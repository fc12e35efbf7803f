package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/markme/facecheck/internal/domain"
	"github.com/markme/facecheck/internal/service"
)

// EmbeddingService interface for the service
type EmbeddingService interface {
	GenerateEmbedding(ctx context.Context, req service.GenerateEmbeddingRequest) error
	RecognizeBulk(ctx context.Context, req service.RecognizeRequest) ([]string, error)
}

// EmbeddingHandler handles precomputed embedding requests
type EmbeddingHandler struct {
	service EmbeddingService
	logger  *slog.Logger
}

func NewEmbeddingHandler(service EmbeddingService, logger *slog.Logger) *EmbeddingHandler {
	return &EmbeddingHandler{
		service: service,
		logger:  logger,
	}
}

type GenerateEmbeddingRequest struct {
	ImageURL  string `json:"imageUrl"`
	StudentID string `json:"studentId"`
	ClassID   string `json:"classId"`
}

type GenerateEmbeddingResponse struct {
	Message string `json:"message"`
}

type RecognizeRequest struct {
	ClassID   string   `json:"classId"`
	ImageURLs []string `json:"imageUrls"`
}

type RecognizeResponse struct {
	PresentStudentIDs []string `json:"presentStudentIds"`
}

// GenerateEmbedding POST /v1/generate-embedding - store a student's reference embedding
func (h *EmbeddingHandler) GenerateEmbedding(c *fiber.Ctx) error {
	var req GenerateEmbeddingRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	err := h.service.GenerateEmbedding(c.Context(), service.GenerateEmbeddingRequest{
		ImageURL:  req.ImageURL,
		StudentID: req.StudentID,
		ClassID:   req.ClassID,
	})
	if err != nil {
		return err
	}

	return c.JSON(GenerateEmbeddingResponse{
		Message: fmt.Sprintf("Embedding saved for student %s", req.StudentID),
	})
}

// Recognize POST /v1/recognize - which students of a class appear in the images
func (h *EmbeddingHandler) Recognize(c *fiber.Ctx) error {
	var req RecognizeRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	ids, err := h.service.RecognizeBulk(c.Context(), service.RecognizeRequest{
		ClassID:   req.ClassID,
		ImageURLs: req.ImageURLs,
	})
	if err != nil {
		return err
	}

	return c.JSON(RecognizeResponse{PresentStudentIDs: ids})
}
