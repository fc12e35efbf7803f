package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/markme/facecheck/internal/audit"
	"github.com/markme/facecheck/internal/domain"
	"github.com/markme/facecheck/internal/imagesource"
	"github.com/markme/facecheck/internal/provider"
	"github.com/markme/facecheck/internal/recognition"
)

type EmbeddingStore interface {
	SaveEmbedding(ctx context.Context, studentID, classID string, embedding []float64) error
	GetKnownEmbeddings(ctx context.Context, classID string) (map[string][]float64, error)
}

type ImageLoader interface {
	Load(ctx context.Context, src imagesource.Source) (*imagesource.Image, error)
}

type EmbeddingConfig struct {
	// Threshold is the cosine similarity a probe has to exceed.
	Threshold float64
	MaxImages int
	Workers   int
	Dimension int
}

type GenerateEmbeddingRequest struct {
	ImageURL  string
	StudentID string
	ClassID   string
}

type RecognizeRequest struct {
	ClassID   string
	ImageURLs []string
}

// EmbeddingService keeps the precomputed per-student embeddings and answers
// bulk presence queries against them.
type EmbeddingService struct {
	store  EmbeddingStore
	images ImageLoader
	faces  provider.FaceProvider
	policy recognition.Policy
	config EmbeddingConfig
	logger *slog.Logger
	audit  audit.Logger
}

func NewEmbeddingService(
	store EmbeddingStore,
	images ImageLoader,
	faces provider.FaceProvider,
	config EmbeddingConfig,
	logger *slog.Logger,
) *EmbeddingService {
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &EmbeddingService{
		store:  store,
		images: images,
		faces:  faces,
		policy: recognition.SimilarityPolicy(config.Threshold),
		config: config,
		logger: logger,
		audit:  &audit.NoOpLogger{},
	}
}

// WithAudit records every stored embedding and bulk recognition on l.
func (s *EmbeddingService) WithAudit(l audit.Logger) *EmbeddingService {
	s.audit = l
	return s
}

// GenerateEmbedding stores the embedding of the first face found in the
// image as the student's reference.
func (s *EmbeddingService) GenerateEmbedding(ctx context.Context, req GenerateEmbeddingRequest) (err error) {
	studentID := strings.TrimSpace(req.StudentID)
	if studentID == "" {
		return domain.ErrValidationFailed.WithMessage("studentId is required")
	}
	classID := strings.TrimSpace(req.ClassID)
	if classID == "" {
		return domain.ErrValidationFailed.WithMessage("classId is required")
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		return domain.ErrValidationFailed.WithMessage("imageUrl is required")
	}

	defer func() {
		event := audit.Event{
			EventType:   audit.EventEmbeddingSaved,
			StudentID:   studentID,
			ClassroomID: classID,
			Success:     err == nil,
		}
		if err != nil {
			event.Error = err.Error()
		}
		_ = s.audit.Log(ctx, event)
	}()

	img, err := s.images.Load(ctx, imagesource.Source{URL: req.ImageURL})
	if err != nil {
		return loadError(err)
	}

	faces, err := s.faces.DetectFaces(ctx, img.Data)
	if err != nil {
		return extractorError(err)
	}
	if len(faces) == 0 {
		return domain.ErrNoFaceDetected
	}

	embedding := faces[0].Embedding
	if s.config.Dimension > 0 && len(embedding) != s.config.Dimension {
		return domain.ErrDimensionMismatch.WithError(
			fmt.Errorf("extractor returned %d values, want %d", len(embedding), s.config.Dimension))
	}

	if err := s.store.SaveEmbedding(ctx, studentID, classID, embedding); err != nil {
		return err
	}

	s.logger.Info("embedding saved", "student_id", studentID, "class_id", classID, "faces", len(faces))
	return nil
}

// RecognizeBulk returns the ids of the students of a class seen in any of the
// images. Images that fail to load or hold no face are skipped.
func (s *EmbeddingService) RecognizeBulk(ctx context.Context, req RecognizeRequest) ([]string, error) {
	classID := strings.TrimSpace(req.ClassID)
	if classID == "" {
		return nil, domain.ErrValidationFailed.WithMessage("classId is required")
	}
	if len(req.ImageURLs) == 0 {
		return nil, domain.ErrValidationFailed.WithMessage("imageUrls must be a non-empty list")
	}
	if len(req.ImageURLs) > s.config.MaxImages {
		return nil, domain.ErrTooManyImages.WithMessage(fmt.Sprintf("Maximum %d images allowed", s.config.MaxImages))
	}

	known, err := s.store.GetKnownEmbeddings(ctx, classID)
	if err != nil {
		return nil, err
	}
	if len(known) == 0 {
		s.logger.Info("no known embeddings for class", "class_id", classID)
		return []string{}, nil
	}

	presence := recognition.NewPresence(s.policy)

	var g errgroup.Group
	g.SetLimit(s.config.Workers)
	for i, url := range req.ImageURLs {
		g.Go(func() error {
			s.observe(ctx, presence, known, i, url)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := presence.IDs()
	s.logger.Info("bulk recognition done", "class_id", classID, "images", len(req.ImageURLs), "present", len(ids))

	_ = s.audit.Log(ctx, audit.Event{
		EventType:   audit.EventPresenceRecognized,
		ClassroomID: classID,
		Success:     true,
		Metadata: map[string]string{
			"images":  strconv.Itoa(len(req.ImageURLs)),
			"present": strings.Join(ids, ","),
		},
	})

	return ids, nil
}

func (s *EmbeddingService) observe(ctx context.Context, presence *recognition.Presence, known map[string][]float64, index int, url string) {
	log := s.logger.With("image", index)

	img, err := s.images.Load(ctx, imagesource.Source{URL: url})
	if err != nil {
		log.Warn("skipping image, load failed", "error", err)
		return
	}

	faces, err := s.faces.DetectFaces(ctx, img.Data)
	if err != nil {
		log.Warn("skipping image, detection failed", "error", err)
		return
	}
	if len(faces) == 0 {
		log.Warn("skipping image, no face detected")
		return
	}

	probes := make([][]float64, 0, len(faces))
	for _, f := range faces {
		if len(f.Embedding) > 0 {
			probes = append(probes, f.Embedding)
		}
	}

	added := presence.Observe(probes, known)
	log.Debug("image processed", "faces", len(faces), "new_present", added)
}

func loadError(err error) error {
	switch {
	case errors.Is(err, imagesource.ErrDecodeFailed), errors.Is(err, imagesource.ErrInvalidData):
		return domain.ErrInvalidImage.WithError(err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return domain.ErrImageUnavailable.WithError(err)
	}
}
