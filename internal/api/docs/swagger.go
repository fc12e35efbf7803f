package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// GenerateEmbeddingResponse represents a stored reference embedding
type GenerateEmbeddingResponse struct {
	Message string `json:"message" example:"Embedding saved for student S1"`
}

// RecognizeResponse represents the students found in a batch of images
type RecognizeResponse struct {
	PresentStudentIDs []string `json:"presentStudentIds" example:"S1,S3"`
}

// CandidateScore is one face/reference comparison
type CandidateScore struct {
	Face      int     `json:"face" example:"0"`
	StudentID string  `json:"student_id" example:"64abc0000000000000000007"`
	Candidate string  `json:"candidate" example:"Ana Souza"`
	Score     float64 `json:"score" example:"0.31"`
}

// FaceMatch is the decision for one detected face
type FaceMatch struct {
	Face          int     `json:"face" example:"0"`
	StudentID     string  `json:"student_id" example:"64abc0000000000000000007"`
	Name          string  `json:"name" example:"Ana Souza"`
	BestCandidate string  `json:"best_candidate,omitempty" example:"Ana Souza"`
	Score         float64 `json:"score,omitempty" example:"0.31"`
	Matched       bool    `json:"matched" example:"true"`
}

// MarkAttendanceResponse represents the recognition result of a classroom photo
type MarkAttendanceResponse struct {
	Status             string           `json:"status" example:"success"`
	Message            string           `json:"message,omitempty" example:""`
	RecognizedStudents []string         `json:"recognized_students" example:"Ana Souza,Unknown"`
	Matches            []FaceMatch      `json:"matches"`
	Debug              []CandidateScore `json:"debug"`
	Threshold          float64          `json:"threshold" example:"0.55"`
	Metric             string           `json:"metric" example:"distance"`
	ReferenceCount     int              `json:"reference_count" example:"28"`
	Scope              string           `json:"scope" example:"classroom 64abc0000000000000000001"`
	Diagnostic         string           `json:"diagnostic,omitempty" example:""`
	Marked             []string         `json:"marked,omitempty" example:"Ana Souza"`
}

// RefreshClassroomResponse represents a classroom reference rebuild
type RefreshClassroomResponse struct {
	Status             string `json:"status" example:"ok"`
	ClassroomID        string `json:"classroom_id" example:"64abc0000000000000000001"`
	StudentsFound      int    `json:"students_found" example:"30"`
	ReferenceCount     int    `json:"reference_count" example:"28"`
	SkippedNoImage     int    `json:"skipped_no_image" example:"1"`
	SkippedNoEmbedding int    `json:"skipped_no_embedding" example:"1"`
	FallbackQuery      bool   `json:"fallback_query" example:"false"`
}

// ClassroomInspectionResponse represents the debug view of one classroom
type ClassroomInspectionResponse struct {
	ClassroomID    string   `json:"classroomId" example:"64abc0000000000000000001"`
	ReferenceCount int      `json:"reference_count" example:"28"`
	StudentsSample []string `json:"students_sample" example:"Ana Souza,Bruno Lima"`
}

// AttendanceEntry is one row of the attendance log
type AttendanceEntry struct {
	ID         string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	StudentID  string `json:"student_id,omitempty" example:"64abc0000000000000000007"`
	Name       string `json:"name" example:"Ana Souza"`
	AttendedOn string `json:"attended_on" example:"2026-03-02T00:00:00Z"`
	MarkedAt   string `json:"marked_at" example:"2026-03-02T08:15:00Z"`
}

// AttendanceListResponse represents the attendance log of one day
type AttendanceListResponse struct {
	Date    string            `json:"date" example:"2026-03-02"`
	Entries []AttendanceEntry `json:"entries"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

var (
	errUnauthorized = response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized")
	errRateLimited  = response.New(ErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Message: "Too many requests"}, "429", "Too Many Requests")
	errInternal     = response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")
	errExtractor    = response.New(ErrorResponse{Code: "EXTRACTOR_UNAVAILABLE", Message: "Face embedding service is unavailable"}, "503", "Service Unavailable")
)

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Facecheck Attendance API",
		Version:     "v1.0.0",
		Description: "Classroom attendance by face recognition: reference embeddings, bulk presence and classroom photo marking",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// Embeddings

		// POST /v1/generate-embedding
		endpoint.New(
			endpoint.POST,
			"/generate-embedding",
			endpoint.WithTags("Embeddings"),
			endpoint.WithSummary("Store a student's reference embedding"),
			endpoint.WithDescription(`JSON body {"imageUrl", "studentId", "classId"}. The first face found in the image becomes the student's reference for the class, replacing any previous one.`),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(GenerateEmbeddingResponse{}, "200", "Embedding saved"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request"}, "400", "Bad Request"),
				errUnauthorized,
				response.New(ErrorResponse{Code: "NO_FACE_DETECTED", Message: "No face detected in the image"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "IMAGE_UNAVAILABLE", Message: "Image could not be loaded from the given source"}, "422", "Unprocessable Entity"),
				errRateLimited,
				errInternal,
				errExtractor,
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// POST /v1/recognize
		endpoint.New(
			endpoint.POST,
			"/recognize",
			endpoint.WithTags("Embeddings"),
			endpoint.WithSummary("Find which students of a class appear in a set of images"),
			endpoint.WithDescription(`JSON body {"classId", "imageUrls"}. Images that cannot be loaded or analysed are skipped. Returns the distinct present student ids.`),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RecognizeResponse{}, "200", "Recognition completed"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "TOO_MANY_IMAGES", Message: "Maximum 4 images allowed"}, "400", "Bad Request"),
				errUnauthorized,
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "classId is required"}, "422", "Unprocessable Entity"),
				errRateLimited,
				errInternal,
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// Attendance

		// POST /v1/mark-attendance
		endpoint.New(
			endpoint.POST,
			"/mark-attendance",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Recognise the students in a classroom photo"),
			endpoint.WithDescription("Multipart form with the photo under 'file'. The classroom is read from 'classroomId', 'classroomIdObject' or any field whose name contains 'classroomid'. Without a classroom, or when it has no references, the global reference set is used. Set 'refresh' to true to rebuild the classroom references first."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(MarkAttendanceResponse{}, "200", "Recognition completed"),
			}),
			endpoint.WithErrors([]response.Response{
				errUnauthorized,
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "file is required"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Uploaded file is not a valid image"}, "422", "Unprocessable Entity"),
				errRateLimited,
				errInternal,
				errExtractor,
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// POST /v1/refresh-classroom-cache/{classroom_id}
		endpoint.New(
			endpoint.POST,
			"/refresh-classroom-cache/{classroom_id}",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Rebuild the reference set of a classroom"),
			endpoint.WithDescription("Drops the cached references of the classroom and builds them again from the roster"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("classroom_id", parameter.Path, parameter.WithDescription("Classroom id, plain or ObjectId hex")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RefreshClassroomResponse{}, "200", "Classroom rebuilt"),
			}),
			endpoint.WithErrors([]response.Response{
				errUnauthorized,
				errInternal,
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/debug/classroom/{classroom_id}
		endpoint.New(
			endpoint.GET,
			"/debug/classroom/{classroom_id}",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("Inspect the reference set of a classroom"),
			endpoint.WithDescription("Rebuilds the classroom references and returns their count and a sample of student names"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("classroom_id", parameter.Path, parameter.WithDescription("Classroom id, plain or ObjectId hex")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ClassroomInspectionResponse{}, "200", "Classroom inspected"),
			}),
			endpoint.WithErrors([]response.Response{
				errUnauthorized,
				errInternal,
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/attendance
		endpoint.New(
			endpoint.GET,
			"/attendance",
			endpoint.WithTags("Attendance"),
			endpoint.WithSummary("List the attendance log of a day"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("date", parameter.Query, parameter.WithDescription("Day as YYYY-MM-DD (default: today, UTC)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AttendanceListResponse{}, "200", "Attendance log"),
			}),
			endpoint.WithErrors([]response.Response{
				errUnauthorized,
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "date must be YYYY-MM-DD"}, "422", "Unprocessable Entity"),
				errInternal,
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
