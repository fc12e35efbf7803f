package domain

import "strings"

// UnknownStudent is reported for faces that match no reference and used as
// the display name of students whose name is missing.
const UnknownStudent = "Unknown"

// StudentRecord is a student document read from the reference store. The
// store is loosely validated, so every field may be empty.
type StudentRecord struct {
	ID       string
	Name     string
	PhotoRef string
	IsActive *bool
}

// DisplayName returns the trimmed name, or UnknownStudent when blank.
func (s StudentRecord) DisplayName() string {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return UnknownStudent
	}
	return name
}

// PhotoRecord locates a student's reference photo. URL may be an http(s)
// URL or a data URL; Path is a local filesystem path.
type PhotoRecord struct {
	Path string
	URL  string
}

// HasSource reports whether the photo points anywhere at all.
func (p *PhotoRecord) HasSource() bool {
	return p != nil && (p.Path != "" || p.URL != "")
}

// StudentFilter selects students from the reference store. A nil Classroom
// means all classrooms.
type StudentFilter struct {
	Classroom  *ClassroomKey
	ActiveOnly bool
}

// ReferenceEntry is one student's reference embedding. Entries are immutable
// once built.
type ReferenceEntry struct {
	StudentID string    `json:"student_id"`
	Name      string    `json:"name"`
	Embedding []float64 `json:"-"`
}

// FaceRegion is the bounding box of a detected face in pixels.
type FaceRegion struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}
