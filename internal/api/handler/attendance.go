package handler

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/markme/facecheck/internal/domain"
	"github.com/markme/facecheck/internal/reference"
	"github.com/markme/facecheck/internal/service"
)

const (
	maxImageSize = 10 * 1024 * 1024 // 10MB

	dateLayout = "2006-01-02"
)

// AttendanceService interface for the service
type AttendanceService interface {
	MarkAttendance(ctx context.Context, req service.MarkRequest) (*service.MarkReport, error)
	RefreshClassroom(ctx context.Context, classroomID string) (*reference.BuildReport, error)
	InspectClassroom(ctx context.Context, classroomID string) (*service.ClassroomInspection, error)
	ListAttendance(ctx context.Context, day time.Time) ([]domain.AttendanceEntry, error)
}

// AttendanceHandler handles classroom photo and cache requests
type AttendanceHandler struct {
	service AttendanceService
	logger  *slog.Logger
	now     func() time.Time
}

func NewAttendanceHandler(service AttendanceService, logger *slog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		service: service,
		logger:  logger,
		now:     time.Now,
	}
}

// RefreshResponse response for the cache refresh endpoint
type RefreshResponse struct {
	Status string `json:"status"`
	*reference.BuildReport
}

// AttendanceListResponse response for the attendance log endpoint
type AttendanceListResponse struct {
	Date    string                   `json:"date"`
	Entries []domain.AttendanceEntry `json:"entries"`
}

// MarkAttendance POST /v1/mark-attendance - recognise the faces of a classroom photo
func (h *AttendanceHandler) MarkAttendance(c *fiber.Ctx) error {
	imageBytes, err := extractImage(c, "file")
	if err != nil {
		return err
	}

	form := formValues(c)
	classroomID := domain.ResolveClassroomID(form["classroomId"], form["classroomIdObject"], form)
	refresh := strings.EqualFold(strings.TrimSpace(form["refresh"]), "true")

	report, err := h.service.MarkAttendance(c.Context(), service.MarkRequest{
		Image:       imageBytes,
		ClassroomID: classroomID,
		Refresh:     refresh,
	})
	if err != nil {
		return err
	}

	return c.JSON(report)
}

// RefreshClassroom POST /v1/refresh-classroom-cache/:classroom_id - rebuild one classroom
func (h *AttendanceHandler) RefreshClassroom(c *fiber.Ctx) error {
	classroomID := classroomParam(c)
	if classroomID == "" {
		return domain.ErrValidationFailed.WithMessage("classroom_id is required")
	}

	report, err := h.service.RefreshClassroom(c.Context(), classroomID)
	if err != nil {
		return err
	}

	return c.JSON(RefreshResponse{Status: "ok", BuildReport: report})
}

// InspectClassroom GET /v1/debug/classroom/:classroom_id - rebuild and sample one classroom
func (h *AttendanceHandler) InspectClassroom(c *fiber.Ctx) error {
	classroomID := classroomParam(c)
	if classroomID == "" {
		return domain.ErrValidationFailed.WithMessage("classroom_id is required")
	}

	inspection, err := h.service.InspectClassroom(c.Context(), classroomID)
	if err != nil {
		return err
	}

	return c.JSON(inspection)
}

// ListAttendance GET /v1/attendance?date=YYYY-MM-DD - attendance log of one day
func (h *AttendanceHandler) ListAttendance(c *fiber.Ctx) error {
	// the log is keyed by the server's local calendar day, as marks are
	day := h.now()
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return domain.ErrValidationFailed.WithMessage("date must be YYYY-MM-DD")
		}
		day = parsed
	}

	entries, err := h.service.ListAttendance(c.Context(), day)
	if err != nil {
		return err
	}

	if entries == nil {
		entries = []domain.AttendanceEntry{}
	}

	return c.JSON(AttendanceListResponse{Date: day.Format(dateLayout), Entries: entries})
}

// extractImage reads an uploaded image from the named form field
func extractImage(c *fiber.Ctx, field string) ([]byte, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return nil, domain.ErrValidationFailed.WithMessage(field + " is required")
	}

	if file.Size == 0 || file.Size > maxImageSize {
		return nil, domain.ErrInvalidImage
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	imageBytes, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	return imageBytes, nil
}

// formValues flattens the multipart text fields to their first value
// classroomParam copies the route param out of the request buffer; the id
// outlives the request as a reference cache key.
func classroomParam(c *fiber.Ctx) string {
	return strings.TrimSpace(utils.CopyString(c.Params("classroom_id")))
}

func formValues(c *fiber.Ctx) map[string]string {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return map[string]string{}
	}

	values := make(map[string]string, len(form.Value))
	for name, v := range form.Value {
		if len(v) > 0 {
			values[name] = v[0]
		}
	}
	return values
}
