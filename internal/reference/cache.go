package reference

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/markme/facecheck/internal/domain"
	"github.com/markme/facecheck/internal/imagesource"
	"github.com/markme/facecheck/internal/provider"
)

// LowReferenceHint lists the usual reasons a classroom ends up with too few
// usable references.
const LowReferenceHint = "check that students have a photoId, that the photos collection holds the referenced _id, " +
	"that the photo path or URL is reachable and that the embedding service can find a face in it"

// Store is the read side of the school data the cache is built from.
type Store interface {
	FindStudents(ctx context.Context, filter domain.StudentFilter) ([]domain.StudentRecord, error)
	FindPhoto(ctx context.Context, ref string) (*domain.PhotoRecord, error)
}

type ImageLoader interface {
	Load(ctx context.Context, src imagesource.Source) (*imagesource.Image, error)
}

type Config struct {
	// Dimension rejects reference embeddings of any other length. Zero
	// accepts every length.
	Dimension int
	// MinReferences is the count below which a build logs a warning.
	MinReferences int
	// Workers bounds how many reference photos are processed at once.
	Workers int
}

// BuildReport describes one rebuild of a cache entry.
type BuildReport struct {
	Key                string                  `json:"classroom_id"`
	Entries            []domain.ReferenceEntry `json:"-"`
	StudentsFound      int                     `json:"students_found"`
	Built              int                     `json:"reference_count"`
	SkippedNoImage     int                     `json:"skipped_no_image"`
	SkippedNoEmbedding int                     `json:"skipped_no_embedding"`
	FallbackQuery      bool                    `json:"fallback_query"`
}

// Cache memoizes reference sets per classroom key. Entries are replaced
// whole and never mutated; an empty build leaves no entry behind.
type Cache struct {
	store  Store
	images ImageLoader
	faces  provider.FaceProvider
	config Config
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string][]domain.ReferenceEntry

	group    singleflight.Group
	rebuilds atomic.Int64
}

func NewCache(store Store, images ImageLoader, faces provider.FaceProvider, config Config, logger *slog.Logger) *Cache {
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &Cache{
		store:   store,
		images:  images,
		faces:   faces,
		config:  config,
		logger:  logger,
		entries: make(map[string][]domain.ReferenceEntry),
	}
}

// Get returns the reference set for a raw classroom id, building it on a
// miss. An empty id resolves to the global set.
func (c *Cache) Get(ctx context.Context, raw string) ([]domain.ReferenceEntry, error) {
	return c.get(ctx, keyOf(raw))
}

// Global returns the reference set of all active students.
func (c *Cache) Global(ctx context.Context) ([]domain.ReferenceEntry, error) {
	return c.get(ctx, domain.GlobalClassroomKey())
}

// Invalidate drops the entry for a raw classroom id, or the global entry when
// raw is empty.
func (c *Cache) Invalidate(raw string) {
	key := keyOf(raw)

	c.mu.Lock()
	delete(c.entries, key.Key)
	c.mu.Unlock()

	// a build already in flight must not satisfy callers that come after this
	c.group.Forget(key.Key)
}

// Refresh invalidates and rebuilds the entry for a raw classroom id.
func (c *Cache) Refresh(ctx context.Context, raw string) (*BuildReport, error) {
	key := keyOf(raw)
	c.Invalidate(key.Key)
	return c.rebuild(ctx, key)
}

// Rebuilds returns how many builds have run since the cache was created.
func (c *Cache) Rebuilds() int64 {
	return c.rebuilds.Load()
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// keyOf owns its key string: cached keys must not share memory with the caller.
func keyOf(raw string) domain.ClassroomKey {
	key := domain.NormalizeClassroomKey(strings.Clone(raw))
	if key.IsEmpty() {
		return domain.GlobalClassroomKey()
	}
	return key
}

func (c *Cache) get(ctx context.Context, key domain.ClassroomKey) ([]domain.ReferenceEntry, error) {
	if entries, ok := c.lookup(key.Key); ok {
		return entries, nil
	}

	report, err := c.rebuild(ctx, key)
	if err != nil {
		return nil, err
	}
	return report.Entries, nil
}

// lookup treats an empty cached list as a miss and removes it.
func (c *Cache) lookup(key string) ([]domain.ReferenceEntry, bool) {
	c.mu.RLock()
	entries, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if len(entries) > 0 {
		return entries, true
	}

	c.mu.Lock()
	if current, ok := c.entries[key]; ok && len(current) == 0 {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	return nil, false
}

func (c *Cache) rebuild(ctx context.Context, key domain.ClassroomKey) (*BuildReport, error) {
	v, err, _ := c.group.Do(key.Key, func() (any, error) {
		return c.build(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*BuildReport), nil
}

type outcome int

const (
	outcomeEmbedded outcome = iota
	outcomeNoImage
	outcomeNoEmbedding
)

type studentResult struct {
	outcome outcome
	entry   domain.ReferenceEntry
}

func (c *Cache) build(ctx context.Context, key domain.ClassroomKey) (*BuildReport, error) {
	c.rebuilds.Add(1)

	filter := domain.StudentFilter{ActiveOnly: true}
	if !key.IsGlobal() {
		k := key
		filter.Classroom = &k
	}

	students, err := c.store.FindStudents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find active students for %s: %w", key, err)
	}

	report := &BuildReport{Key: key.Key}

	if len(students) == 0 {
		filter.ActiveOnly = false
		students, err = c.store.FindStudents(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("find students for %s: %w", key, err)
		}
		report.FallbackQuery = true
		c.logger.Info("no active students, retried without isActive filter",
			"classroom", key.Key,
			"found", len(students),
		)
	}
	report.StudentsFound = len(students)

	results := make([]studentResult, len(students))

	var g errgroup.Group
	g.SetLimit(c.config.Workers)
	for i, student := range students {
		g.Go(func() error {
			results[i] = c.embedStudent(ctx, key, student)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build references for %s: %w", key, err)
	}

	entries := make([]domain.ReferenceEntry, 0, len(results))
	for _, r := range results {
		switch r.outcome {
		case outcomeEmbedded:
			entries = append(entries, r.entry)
		case outcomeNoImage:
			report.SkippedNoImage++
		case outcomeNoEmbedding:
			report.SkippedNoEmbedding++
		}
	}
	report.Entries = entries
	report.Built = len(entries)

	c.mu.Lock()
	if len(entries) > 0 {
		c.entries[key.Key] = entries
	} else {
		delete(c.entries, key.Key)
	}
	c.mu.Unlock()

	c.logger.Info("reference cache built",
		"classroom", key.Key,
		"found", report.StudentsFound,
		"built", report.Built,
		"skipped_no_image", report.SkippedNoImage,
		"skipped_no_embedding", report.SkippedNoEmbedding,
		"fallback_query", report.FallbackQuery,
	)

	if report.Built < c.config.MinReferences {
		c.logger.Warn("few usable references",
			"classroom", key.Key,
			"built", report.Built,
			"min", c.config.MinReferences,
			"hint", LowReferenceHint,
		)
	}

	return report, nil
}

func (c *Cache) embedStudent(ctx context.Context, key domain.ClassroomKey, student domain.StudentRecord) studentResult {
	log := c.logger.With("classroom", key.Key, "student_id", student.ID)

	if student.PhotoRef == "" {
		log.Debug("student has no photoId")
		return studentResult{outcome: outcomeNoImage}
	}

	photo, err := c.store.FindPhoto(ctx, student.PhotoRef)
	if err != nil {
		log.Warn("photo lookup failed", "photo_id", student.PhotoRef, "error", err)
		return studentResult{outcome: outcomeNoImage}
	}
	if !photo.HasSource() {
		log.Debug("photo not found or has no path", "photo_id", student.PhotoRef)
		return studentResult{outcome: outcomeNoImage}
	}

	src := imagesource.Source{Path: photo.Path, URL: photo.URL}
	img, err := c.images.Load(ctx, src)
	if err != nil {
		log.Warn("reference image load failed", "source", src.String(), "error", err)
		return studentResult{outcome: outcomeNoImage}
	}

	faces, err := c.faces.DetectFaces(ctx, img.Data)
	if err != nil {
		log.Warn("reference embedding failed", "error", err)
		return studentResult{outcome: outcomeNoEmbedding}
	}
	if len(faces) == 0 {
		log.Debug("no face in reference photo")
		return studentResult{outcome: outcomeNoEmbedding}
	}

	// first face in detector order
	embedding := faces[0].Embedding
	if len(embedding) == 0 || (c.config.Dimension > 0 && len(embedding) != c.config.Dimension) {
		log.Warn("reference embedding has unexpected dimension", "dimension", len(embedding), "want", c.config.Dimension)
		return studentResult{outcome: outcomeNoEmbedding}
	}

	return studentResult{
		outcome: outcomeEmbedded,
		entry: domain.ReferenceEntry{
			StudentID: student.ID,
			Name:      student.DisplayName(),
			Embedding: embedding,
		},
	}
}
