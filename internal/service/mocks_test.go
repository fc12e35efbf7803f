package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/markme/facecheck/internal/audit"
	"github.com/markme/facecheck/internal/domain"
	"github.com/markme/facecheck/internal/imagesource"
	"github.com/markme/facecheck/internal/provider"
	"github.com/markme/facecheck/internal/reference"
)

type MockReferenceCache struct {
	mock.Mock
}

func (m *MockReferenceCache) Get(ctx context.Context, raw string) ([]domain.ReferenceEntry, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReferenceEntry), args.Error(1)
}

func (m *MockReferenceCache) Global(ctx context.Context) ([]domain.ReferenceEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReferenceEntry), args.Error(1)
}

func (m *MockReferenceCache) Invalidate(raw string) {
	m.Called(raw)
}

func (m *MockReferenceCache) Refresh(ctx context.Context, raw string) (*reference.BuildReport, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reference.BuildReport), args.Error(1)
}

type MockFaceProvider struct {
	mock.Mock
}

func (m *MockFaceProvider) DetectFaces(ctx context.Context, image []byte) ([]provider.DetectedFace, error) {
	args := m.Called(ctx, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.DetectedFace), args.Error(1)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Mark(ctx context.Context, mark domain.AttendanceMark) (bool, error) {
	args := m.Called(ctx, mark)
	return args.Bool(0), args.Error(1)
}

func (m *MockRecorder) ListByDate(ctx context.Context, day time.Time) ([]domain.AttendanceEntry, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AttendanceEntry), args.Error(1)
}

type MockEmbeddingStore struct {
	mock.Mock
}

func (m *MockEmbeddingStore) SaveEmbedding(ctx context.Context, studentID, classID string, embedding []float64) error {
	args := m.Called(ctx, studentID, classID, embedding)
	return args.Error(0)
}

func (m *MockEmbeddingStore) GetKnownEmbeddings(ctx context.Context, classID string) (map[string][]float64, error) {
	args := m.Called(ctx, classID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]float64), args.Error(1)
}

type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) Load(ctx context.Context, src imagesource.Source) (*imagesource.Image, error) {
	args := m.Called(ctx, src)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*imagesource.Image), args.Error(1)
}

// recordingAudit keeps every audit event it receives.
type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAudit) Log(_ context.Context, event audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingAudit) ofType(t audit.EventType) []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []audit.Event
	for _, e := range r.events {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pngBytes(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 90, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func detected(embeddings ...[]float64) []provider.DetectedFace {
	faces := make([]provider.DetectedFace, 0, len(embeddings))
	for i, e := range embeddings {
		faces = append(faces, provider.DetectedFace{
			BoundingBox: provider.BoundingBox{X: float64(i * 100), Width: 80, Height: 80},
			Confidence:  0.99,
			Embedding:   e,
		})
	}
	return faces
}
