package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/markme/facecheck/internal/domain"
)

// EmbeddingRepository stores the precomputed embedding of each student. There
// is exactly one row per student; saving again replaces it.
type EmbeddingRepository struct {
	pool PgxPool
}

func NewEmbeddingRepository(pool PgxPool) *EmbeddingRepository {
	return &EmbeddingRepository{pool: pool}
}

func (r *EmbeddingRepository) SaveEmbedding(ctx context.Context, studentID, classID string, embedding []float64) error {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return domain.ErrValidationFailed.WithMessage("studentId is required")
	}
	if len(embedding) == 0 {
		return domain.ErrValidationFailed.WithMessage("embedding is empty")
	}

	query := `
		INSERT INTO student_embeddings (student_id, class_id, embedding, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (student_id) DO UPDATE
		SET class_id = EXCLUDED.class_id, embedding = EXCLUDED.embedding, updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, studentID, classID, toVector(embedding)); err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}

	return nil
}

// GetKnownEmbeddings returns student id -> embedding for a class. An unknown
// class yields an empty map.
func (r *EmbeddingRepository) GetKnownEmbeddings(ctx context.Context, classID string) (map[string][]float64, error) {
	query := `
		SELECT student_id, embedding
		FROM student_embeddings
		WHERE class_id = $1
		ORDER BY student_id
	`

	rows, err := r.pool.Query(ctx, query, classID)
	if err != nil {
		return nil, fmt.Errorf("get known embeddings: %w", err)
	}
	defer rows.Close()

	known := make(map[string][]float64)
	for rows.Next() {
		var studentID string
		var embedding *pgvector.Vector

		if err := rows.Scan(&studentID, &embedding); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}

		if embedding == nil || len(embedding.Slice()) == 0 {
			continue
		}
		known[studentID] = fromVector(*embedding)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}

	return known, nil
}

func toVector(embedding []float64) pgvector.Vector {
	floats := make([]float32, len(embedding))
	for i, v := range embedding {
		floats[i] = float32(v)
	}
	return pgvector.NewVector(floats)
}

func fromVector(v pgvector.Vector) []float64 {
	out := make([]float64, len(v.Slice()))
	for i, f := range v.Slice() {
		out[i] = float64(f)
	}
	return out
}
