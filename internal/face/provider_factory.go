package face

import (
	"fmt"

	"github.com/markme/facecheck/internal/config"
	"github.com/markme/facecheck/internal/provider"
	"github.com/markme/facecheck/internal/provider/deepface"
	"github.com/markme/facecheck/internal/provider/mock"
)

// ProviderType defines supported embedding extractor types
type ProviderType string

const (
	// ProviderTypeDeepFace calls a DeepFace REST service
	ProviderTypeDeepFace ProviderType = "deepface"
	// ProviderTypeMock is the deterministic in-process extractor for dev/test
	ProviderTypeMock ProviderType = "mock"
)

// NewFaceProvider creates the extractor selected by PROVIDER_TYPE, wrapped so
// no more than EXTRACTOR_CONCURRENCY calls reach it at once.
//
// Environment variables:
//   - PROVIDER_TYPE: "deepface" or "mock" (default: "deepface")
//   - DEEPFACE_URL, DEEPFACE_MODEL, DEEPFACE_DETECTOR: DeepFace settings
//   - EMBEDDING_DIM: embedding size produced by the mock
//   - EXTRACTOR_CONCURRENCY: concurrent calls allowed (default: 1)
func NewFaceProvider(cfg *config.Config) (provider.FaceProvider, error) {
	var prov provider.FaceProvider

	switch ProviderType(cfg.ProviderType) {
	case ProviderTypeDeepFace, "":
		prov = createDeepFaceProvider(cfg)

	case ProviderTypeMock:
		prov = mock.New(cfg.EmbeddingDim)

	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s)",
			cfg.ProviderType, ProviderTypeDeepFace, ProviderTypeMock)
	}

	return provider.NewLimited(prov, cfg.ExtractorConcurrency), nil
}

// createDeepFaceProvider creates a DeepFace provider instance
func createDeepFaceProvider(cfg *config.Config) *deepface.Provider {
	deepfaceConfig := deepface.DefaultConfig()

	if cfg.DeepFaceURL != "" {
		deepfaceConfig.BaseURL = cfg.DeepFaceURL
	}
	if cfg.DeepFaceModel != "" {
		deepfaceConfig.Model = cfg.DeepFaceModel
	}
	if cfg.DeepFaceDetector != "" {
		deepfaceConfig.Detector = cfg.DeepFaceDetector
	}

	return deepface.NewProvider(deepfaceConfig)
}
