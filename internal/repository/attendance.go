package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/markme/facecheck/internal/domain"
)

// AttendanceRepository is the attendance log: one entry per name per day.
type AttendanceRepository struct {
	pool PgxPool
	now  func() time.Time
}

func NewAttendanceRepository(pool PgxPool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool, now: time.Now}
}

// Mark records a recognised student. It reports false when the name was
// already marked that day.
func (r *AttendanceRepository) Mark(ctx context.Context, mark domain.AttendanceMark) (bool, error) {
	name := strings.TrimSpace(mark.Name)
	if name == "" || name == domain.UnknownStudent {
		return false, domain.ErrValidationFailed.WithMessage("attendance requires a known student name")
	}

	at := mark.At
	if at.IsZero() {
		at = r.now()
	}

	query := `
		INSERT INTO attendance_log (id, student_id, name, attended_on, marked_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name, attended_on) DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query, uuid.New(), mark.StudentID, name, dateOf(at), at)
	if err != nil {
		return false, fmt.Errorf("mark attendance: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// ListByDate returns the entries of one day ordered by marking time.
func (r *AttendanceRepository) ListByDate(ctx context.Context, day time.Time) ([]domain.AttendanceEntry, error) {
	query := `
		SELECT id, student_id, name, attended_on, marked_at
		FROM attendance_log
		WHERE attended_on = $1
		ORDER BY marked_at, name
	`

	rows, err := r.pool.Query(ctx, query, dateOf(day))
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.AttendanceEntry, error) {
		var e domain.AttendanceEntry
		err := row.Scan(&e.ID, &e.StudentID, &e.Name, &e.AttendedOn, &e.MarkedAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan attendance: %w", err)
	}

	return entries, nil
}

// dateOf truncates t to midnight UTC of its local calendar day.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
