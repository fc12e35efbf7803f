package provider

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Limited caps the number of concurrent DetectFaces calls on the wrapped
// provider. Model backends are generally not reentrant, so the default
// deployment runs with a limit of 1.
type Limited struct {
	next FaceProvider
	sem  *semaphore.Weighted
}

// NewLimited wraps next so at most n calls run at once. n < 1 is treated as 1.
func NewLimited(next FaceProvider, n int) *Limited {
	if n < 1 {
		n = 1
	}
	return &Limited{
		next: next,
		sem:  semaphore.NewWeighted(int64(n)),
	}
}

func (l *Limited) DetectFaces(ctx context.Context, image []byte) ([]DetectedFace, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for extractor: %w", err)
	}
	defer l.sem.Release(1)

	return l.next.DetectFaces(ctx, image)
}

// Ping forwards to the wrapped provider when it can check itself. Providers
// without a health endpoint are always considered up.
func (l *Limited) Ping(ctx context.Context) error {
	if p, ok := l.next.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

var _ FaceProvider = (*Limited)(nil)
