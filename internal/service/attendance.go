package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/markme/facecheck/internal/audit"
	"github.com/markme/facecheck/internal/domain"
	"github.com/markme/facecheck/internal/imagesource"
	"github.com/markme/facecheck/internal/provider"
	"github.com/markme/facecheck/internal/recognition"
	"github.com/markme/facecheck/internal/reference"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"

	// inspectSampleSize caps the names returned by InspectClassroom.
	inspectSampleSize = 10
)

type ReferenceCache interface {
	Get(ctx context.Context, raw string) ([]domain.ReferenceEntry, error)
	Global(ctx context.Context) ([]domain.ReferenceEntry, error)
	Invalidate(raw string)
	Refresh(ctx context.Context, raw string) (*reference.BuildReport, error)
}

type AttendanceRecorder interface {
	Mark(ctx context.Context, mark domain.AttendanceMark) (bool, error)
	ListByDate(ctx context.Context, day time.Time) ([]domain.AttendanceEntry, error)
}

type AttendanceConfig struct {
	// Threshold is the cosine distance a face has to stay under.
	Threshold      float64
	GlobalFallback bool
	Dimension      int
	MaxDimension   int
}

// MarkRequest is one uploaded classroom photo. ClassroomID is the raw id as
// received and may be empty.
type MarkRequest struct {
	Image       []byte
	ClassroomID string
	Refresh     bool
}

type MarkReport struct {
	Status             string                       `json:"status"`
	Message            string                       `json:"message,omitempty"`
	RecognizedStudents []string                     `json:"recognized_students"`
	Matches            []recognition.MatchResult    `json:"matches"`
	Debug              []recognition.CandidateScore `json:"debug"`
	Threshold          float64                      `json:"threshold"`
	Metric             recognition.Metric           `json:"metric"`
	ReferenceCount     int                          `json:"reference_count"`
	Scope              string                       `json:"scope"`
	Diagnostic         string                       `json:"diagnostic,omitempty"`
	Marked             []string                     `json:"marked,omitempty"`
}

type ClassroomInspection struct {
	ClassroomID    string   `json:"classroomId"`
	ReferenceCount int      `json:"reference_count"`
	StudentsSample []string `json:"students_sample"`
}

// AttendanceService recognises the faces of one classroom photo against the
// cached reference sets and records who was seen.
type AttendanceService struct {
	cache    ReferenceCache
	faces    provider.FaceProvider
	recorder AttendanceRecorder
	policy   recognition.Policy
	config   AttendanceConfig
	logger   *slog.Logger
	audit    audit.Logger
	now      func() time.Time
}

func NewAttendanceService(
	cache ReferenceCache,
	faces provider.FaceProvider,
	recorder AttendanceRecorder,
	config AttendanceConfig,
	logger *slog.Logger,
) *AttendanceService {
	return &AttendanceService{
		cache:    cache,
		faces:    faces,
		recorder: recorder,
		policy:   recognition.DistancePolicy(config.Threshold),
		config:   config,
		logger:   logger,
		audit:    &audit.NoOpLogger{},
		now:      time.Now,
	}
}

// WithAudit records every attendance write and classroom rebuild on l.
func (s *AttendanceService) WithAudit(l audit.Logger) *AttendanceService {
	s.audit = l
	return s
}

func (s *AttendanceService) MarkAttendance(ctx context.Context, req MarkRequest) (*MarkReport, error) {
	if len(req.Image) == 0 {
		return nil, domain.ErrValidationFailed.WithMessage("file is required")
	}

	img, err := imagesource.Decode(req.Image, s.config.MaxDimension)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithMessage("Uploaded file is not a valid image").WithError(err)
	}

	detected, err := s.faces.DetectFaces(ctx, img.Data)
	if err != nil {
		return nil, extractorError(err)
	}

	key := domain.NormalizeClassroomKey(req.ClassroomID)
	if req.Refresh {
		s.cache.Invalidate(key.Key)
	}

	refs, scope, diagnostic, err := s.references(ctx, key)
	if err != nil {
		return nil, err
	}

	s.logger.Info("references loaded",
		"scope", scope,
		"references", len(refs),
		"faces", len(detected),
		"threshold", s.policy.Threshold,
	)

	report := &MarkReport{
		Status:             StatusSuccess,
		RecognizedStudents: []string{},
		Matches:            []recognition.MatchResult{},
		Debug:              []recognition.CandidateScore{},
		Threshold:          s.policy.Threshold,
		Metric:             s.policy.Metric,
		ReferenceCount:     len(refs),
		Scope:              scope,
		Diagnostic:         diagnostic,
	}

	if len(refs) == 0 {
		report.Status = StatusError
		report.Message = "No student references found"
		report.Diagnostic = "No students with usable photos or embeddings. " + reference.LowReferenceHint
		return report, nil
	}

	probes := make([]recognition.ProbeFace, 0, len(detected))
	for i, f := range detected {
		probe := recognition.ProbeFace{
			Index: i,
			Region: domain.FaceRegion{
				X:      f.BoundingBox.X,
				Y:      f.BoundingBox.Y,
				Width:  f.BoundingBox.Width,
				Height: f.BoundingBox.Height,
			},
		}
		if len(f.Embedding) > 0 && (s.config.Dimension == 0 || len(f.Embedding) == s.config.Dimension) {
			probe.Embedding = f.Embedding
		} else {
			s.logger.Warn("probe face has no usable embedding", "face", i, "dimension", len(f.Embedding))
		}
		probes = append(probes, probe)
	}

	results, scores := recognition.MatchFaces(s.policy, probes, refs)
	report.Matches = results
	if scores != nil {
		report.Debug = scores
	}

	at := s.now()
	for _, r := range results {
		report.RecognizedStudents = append(report.RecognizedStudents, r.Name)

		if !r.Matched {
			if r.Score != nil {
				s.logger.Debug("face unknown", "face", r.Face, "best", r.BestCandidate, "score", *r.Score)
			}
			continue
		}

		added, err := s.recorder.Mark(ctx, domain.AttendanceMark{StudentID: r.StudentID, Name: r.Name, At: at})
		s.auditMark(ctx, key, scope, r, added, err)
		if err != nil {
			s.logger.Warn("attendance mark failed", "student_id", r.StudentID, "error", err)
			continue
		}
		if added {
			report.Marked = append(report.Marked, r.Name)
		}
	}

	s.logger.Info("faces recognised", "scope", scope, "recognized", report.RecognizedStudents)

	return report, nil
}

// references resolves the reference set for a request and the scope label
// reported with it.
func (s *AttendanceService) references(ctx context.Context, key domain.ClassroomKey) ([]domain.ReferenceEntry, string, string, error) {
	if key.IsEmpty() {
		refs, err := s.cache.Global(ctx)
		if err != nil {
			return nil, "", "", fmt.Errorf("load global references: %w", err)
		}
		return refs, domain.ScopeGlobal, "", nil
	}

	refs, err := s.cache.Get(ctx, key.Key)
	if err != nil {
		return nil, "", "", fmt.Errorf("load references for classroom %s: %w", key, err)
	}
	if len(refs) > 0 || !s.config.GlobalFallback {
		return refs, domain.ClassroomScope(key.Key), "", nil
	}

	s.logger.Warn("classroom has no references, falling back to global", "classroom", key.Key)

	refs, err = s.cache.Global(ctx)
	if err != nil {
		return nil, "", "", fmt.Errorf("load global references: %w", err)
	}

	diagnostic := fmt.Sprintf("classroom %s has no usable references, matched against all active students instead. %s",
		key.Key, reference.LowReferenceHint)
	return refs, domain.ScopeGlobalFallback, diagnostic, nil
}

// RefreshClassroom drops and rebuilds the reference set of one classroom.
func (s *AttendanceService) RefreshClassroom(ctx context.Context, classroomID string) (*reference.BuildReport, error) {
	report, err := s.cache.Refresh(ctx, classroomID)

	event := audit.Event{
		EventType:   audit.EventReferencesRebuilt,
		ClassroomID: domain.NormalizeClassroomKey(classroomID).Key,
		Success:     err == nil,
	}
	if err != nil {
		event.Error = err.Error()
	} else {
		event.Metadata = map[string]string{
			"students_found":  strconv.Itoa(report.StudentsFound),
			"reference_count": strconv.Itoa(report.Built),
		}
	}
	_ = s.audit.Log(ctx, event)

	if err != nil {
		return nil, fmt.Errorf("refresh classroom %s: %w", classroomID, err)
	}
	return report, nil
}

func (s *AttendanceService) auditMark(ctx context.Context, key domain.ClassroomKey, scope string, r recognition.MatchResult, added bool, err error) {
	event := audit.Event{
		EventType:   audit.EventAttendanceMarked,
		StudentID:   r.StudentID,
		ClassroomID: key.Key,
		Success:     err == nil,
		Metadata: map[string]string{
			"name":  r.Name,
			"scope": scope,
			"new":   strconv.FormatBool(added),
		},
	}
	if r.Score != nil {
		event.Metadata["score"] = strconv.FormatFloat(*r.Score, 'f', 4, 64)
	}
	if err != nil {
		event.Error = err.Error()
	}
	_ = s.audit.Log(ctx, event)
}

// InspectClassroom rebuilds a classroom and returns a sample of the names it
// resolved to.
func (s *AttendanceService) InspectClassroom(ctx context.Context, classroomID string) (*ClassroomInspection, error) {
	report, err := s.RefreshClassroom(ctx, classroomID)
	if err != nil {
		return nil, err
	}

	n := min(len(report.Entries), inspectSampleSize)
	sample := make([]string, 0, n)
	for _, e := range report.Entries[:n] {
		sample = append(sample, e.Name)
	}

	return &ClassroomInspection{
		ClassroomID:    report.Key,
		ReferenceCount: report.Built,
		StudentsSample: sample,
	}, nil
}

// ListAttendance returns the log entries for the day of t.
func (s *AttendanceService) ListAttendance(ctx context.Context, day time.Time) ([]domain.AttendanceEntry, error) {
	if day.IsZero() {
		day = s.now()
	}
	return s.recorder.ListByDate(ctx, day)
}

// extractorError keeps AppErrors and cancellations as they are and reports
// anything else as an unavailable extractor.
func extractorError(err error) error {
	var appErr *domain.AppError
	if errors.As(err, &appErr) || errors.Is(err, context.Canceled) {
		return err
	}
	return domain.ErrExtractorUnavailable.WithError(err)
}
