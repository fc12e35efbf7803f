package mock

import (
	"context"
	"crypto/sha256"
	"math"

	"github.com/markme/facecheck/internal/domain"
	"github.com/markme/facecheck/internal/provider"
)

const (
	defaultDimension = 512
	// minFaceBytes is the size under which an image is treated as faceless.
	minFaceBytes = 1000
)

// Provider is an in-process FaceProvider for tests and local development.
// The same encoded bytes always produce the same embedding.
type Provider struct {
	dimension int
}

// New creates a mock provider. dimension <= 0 uses 512.
func New(dimension int) *Provider {
	if dimension <= 0 {
		dimension = defaultDimension
	}
	return &Provider{dimension: dimension}
}

// DetectFaces reports one face for any image of at least minFaceBytes and
// none for smaller ones.
func (p *Provider) DetectFaces(ctx context.Context, image []byte) ([]provider.DetectedFace, error) {
	if len(image) == 0 {
		return nil, domain.ErrInvalidImage
	}

	if len(image) < minFaceBytes {
		return []provider.DetectedFace{}, nil
	}

	return []provider.DetectedFace{
		{
			BoundingBox: provider.BoundingBox{
				X:      0.1,
				Y:      0.1,
				Width:  0.8,
				Height: 0.8,
			},
			Confidence: 0.99,
			Embedding:  generateEmbedding(image, p.dimension),
		},
	}, nil
}

// generateEmbedding spreads the SHA-256 of the encoded image over dimension
// values and scales the result to unit length.
func generateEmbedding(image []byte, dimension int) []float64 {
	hash := sha256.Sum256(image)
	embedding := make([]float64, dimension)
	hashLen := len(hash)

	for i := 0; i < dimension; i++ {
		idx := i % hashLen
		//nolint:gosec // idx is always < hashLen due to modulo operation
		embedding[i] = (float64(hash[idx])/255.0)*2 - 1
	}

	norm := 0.0
	for _, v := range embedding {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return embedding
	}

	for i := range embedding {
		embedding[i] /= norm
	}

	return embedding
}

var _ provider.FaceProvider = (*Provider)(nil)
