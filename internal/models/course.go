package models

import "time"

// CourseStatus is the publication state of a course template.
type CourseStatus string

const (
	CourseStatusActive   CourseStatus = "active"
	CourseStatusInactive CourseStatus = "inactive"
	CourseStatusDraft    CourseStatus = "draft"
)

// Valid reports whether s is one of the known statuses.
func (s CourseStatus) Valid() bool {
	switch s {
	case CourseStatusActive, CourseStatusInactive, CourseStatusDraft:
		return true
	}
	return false
}

// CourseDuration is the nominal length of a course, e.g. 6 months.
type CourseDuration struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

// CourseOwner is the backend user that created a course.
type CourseOwner struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// Course is a reusable template hierarchy without completion state.
type Course struct {
	ID          string          `json:"_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	CourseCode  string          `json:"courseCode"`
	Duration    CourseDuration  `json:"duration"`
	Status      CourseStatus    `json:"status"`
	CreatedBy   *CourseOwner    `json:"createdBy,omitempty"`
	Subjects    []CourseSubject `json:"subjects"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// CourseSubject is a subject inside a course template.
type CourseSubject struct {
	ID          string        `json:"_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Order       int           `json:"order"`
	Topics      []CourseTopic `json:"topics"`
}

// CourseTopic groups template lectures.
type CourseTopic struct {
	ID             string          `json:"_id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Order          int             `json:"order"`
	EstimatedHours float64         `json:"estimatedHours"`
	Lectures       []CourseLecture `json:"lectures"`
}

// CourseLecture is a template lecture.
type CourseLecture struct {
	ID              string `json:"_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Order           int    `json:"order"`
	DurationMinutes int    `json:"durationMinutes"`
}

// CourseFilter mirrors the list parameters accepted by the backend.
type CourseFilter struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
	Search    string
	Status    string
}
