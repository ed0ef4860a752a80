package models

import "time"

// Batch is a scheduled instance of a course with faculty assigned per subject
// and completion tracked per lecture.
type Batch struct {
	ID               string         `json:"_id"`
	Name             string         `json:"name"`
	CourseTemplateID string         `json:"courseTemplateId,omitempty"`
	StartDate        time.Time      `json:"startDate"`
	EndDate          time.Time      `json:"endDate"`
	Subjects         []BatchSubject `json:"subjects"`
	CreatedAt        *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt        *time.Time     `json:"updatedAt,omitempty"`
}

// BatchSubject carries its own faculty assignment and a precomputed lecture
// total supplied by the backend.
type BatchSubject struct {
	ID            string       `json:"_id"`
	SubjectID     string       `json:"subjectId"`
	Title         string       `json:"title"`
	FacultyID     string       `json:"facultyId"`
	TotalLectures int          `json:"totalLectures"`
	Topics        []BatchTopic `json:"topics"`
}

// BatchTopic groups the lectures of a subject.
type BatchTopic struct {
	ID        string         `json:"_id"`
	TopicID   string         `json:"topicId"`
	Title     string         `json:"title"`
	FacultyID string         `json:"facultyId,omitempty"`
	Lectures  []BatchLecture `json:"lectures"`
}

// BatchLecture is a tracked lecture. Completion is derived from CompletedAt
// and CompletedBy and never stored separately.
type BatchLecture struct {
	ID          string     `json:"_id"`
	LectureID   string     `json:"lectureId"`
	Title       string     `json:"title"`
	Order       int        `json:"order"`
	FacultyID   string     `json:"facultyId,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CompletedBy string     `json:"completedBy,omitempty"`
}

// IsComplete requires both completion fields to be present.
func (l BatchLecture) IsComplete() bool {
	return l.CompletedAt != nil && !l.CompletedAt.IsZero() && l.CompletedBy != ""
}

// Matches reports whether id names the lecture instance or its template.
func (l BatchLecture) Matches(id string) bool {
	return id != "" && (l.ID == id || l.LectureID == id)
}

// Matches reports whether id names the topic instance or its template.
func (t BatchTopic) Matches(id string) bool {
	return id != "" && (t.ID == id || t.TopicID == id)
}

// Matches reports whether id names the subject instance or its template.
func (s BatchSubject) Matches(id string) bool {
	return id != "" && (s.ID == id || s.SubjectID == id)
}

// BatchFilter mirrors the list parameters accepted by the backend.
type BatchFilter struct {
	Page   int
	Limit  int
	Search string
}
