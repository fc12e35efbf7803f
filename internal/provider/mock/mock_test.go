package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/markme/facecheck/internal/domain"
	"github.com/markme/facecheck/internal/recognition"
)

func TestProvider_DetectFaces(t *testing.T) {
	p := New(0)
	ctx := context.Background()

	tests := []struct {
		name      string
		image     []byte
		wantFaces int
		wantErr   bool
	}{
		{
			name:      "valid image",
			image:     make([]byte, 5000),
			wantFaces: 1,
			wantErr:   false,
		},
		{
			name:      "image too small has no face",
			image:     make([]byte, 100),
			wantFaces: 0,
			wantErr:   false,
		},
		{
			name:    "empty image",
			image:   nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			faces, err := p.DetectFaces(ctx, tt.image)
			if (err != nil) != tt.wantErr {
				t.Errorf("DetectFaces() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && !errors.Is(err, domain.ErrInvalidImage) {
				t.Errorf("DetectFaces() error = %v, want ErrInvalidImage", err)
			}
			if len(faces) != tt.wantFaces {
				t.Errorf("DetectFaces() got %d faces, want %d", len(faces), tt.wantFaces)
			}
		})
	}
}

func TestProvider_EmbeddingShape(t *testing.T) {
	p := New(128)

	image := make([]byte, 5000)
	for i := range image {
		image[i] = byte(i % 256)
	}

	faces, err := p.DetectFaces(context.Background(), image)
	if err != nil {
		t.Fatalf("DetectFaces() error = %v", err)
	}

	embedding := faces[0].Embedding
	if len(embedding) != 128 {
		t.Errorf("embedding length = %d, want 128", len(embedding))
	}

	var norm float64
	for _, v := range embedding {
		norm += v * v
	}
	if norm < 0.99 || norm > 1.01 {
		t.Errorf("embedding not normalized, norm = %f", norm)
	}
}

func TestProvider_Deterministic(t *testing.T) {
	p := New(0)
	ctx := context.Background()

	image := []byte("test image content that is long enough to be valid")
	image = append(image, make([]byte, 1000)...)

	f1, _ := p.DetectFaces(ctx, image)
	f2, _ := p.DetectFaces(ctx, image)

	similarity, err := recognition.CosineSimilarity(f1[0].Embedding, f2[0].Embedding)
	if err != nil {
		t.Fatalf("CosineSimilarity() error = %v", err)
	}
	if similarity < 0.99 {
		t.Errorf("same image similarity = %f, want ~1.0", similarity)
	}

	other := make([]byte, 5000)
	for i := range other {
		other[i] = byte((i * 7) % 256)
	}
	f3, _ := p.DetectFaces(ctx, other)

	diff, _ := recognition.CosineSimilarity(f1[0].Embedding, f3[0].Embedding)
	if diff >= similarity {
		t.Errorf("different images should have lower similarity")
	}
}
