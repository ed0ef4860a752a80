package dto

import "github.com/noah-isme/lecture-progress-api/internal/models"

// CreateCourseRequest creates a course template.
type CreateCourseRequest struct {
	Title       string                `json:"title" validate:"required"`
	Description string                `json:"description"`
	CourseCode  string                `json:"courseCode" validate:"required"`
	Duration    models.CourseDuration `json:"duration"`
	Status      models.CourseStatus   `json:"status" validate:"required,oneof=active inactive draft"`
}

// UpdateCourseRequest replaces the editable course fields.
type UpdateCourseRequest struct {
	CourseID    string                `json:"courseId" validate:"required"`
	Title       string                `json:"title" validate:"required"`
	Description string                `json:"description"`
	CourseCode  string                `json:"courseCode" validate:"required"`
	Duration    models.CourseDuration `json:"duration"`
	Status      models.CourseStatus   `json:"status" validate:"required,oneof=active inactive draft"`
}

// AddSubjectRequest appends a subject to a course.
type AddSubjectRequest struct {
	CourseID    string `json:"courseId" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

// UpdateSubjectRequest edits a course subject.
type UpdateSubjectRequest struct {
	CourseID    string `json:"courseId" validate:"required"`
	SubjectID   string `json:"subjectId" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

// DeleteSubjectRequest removes a course subject.
type DeleteSubjectRequest struct {
	CourseID  string `json:"courseId" validate:"required"`
	SubjectID string `json:"subjectId" validate:"required"`
}

// AddTopicRequest appends a topic to a subject.
type AddTopicRequest struct {
	CourseID       string  `json:"courseId" validate:"required"`
	SubjectID      string  `json:"subjectId" validate:"required"`
	Title          string  `json:"title" validate:"required"`
	Description    string  `json:"description"`
	Order          int     `json:"order"`
	EstimatedHours float64 `json:"estimatedHours"`
}

// UpdateTopicRequest edits a topic.
type UpdateTopicRequest struct {
	CourseID       string  `json:"courseId" validate:"required"`
	SubjectID      string  `json:"subjectId" validate:"required"`
	TopicID        string  `json:"topicId" validate:"required"`
	Title          string  `json:"title" validate:"required"`
	Description    string  `json:"description"`
	EstimatedHours float64 `json:"estimatedHours"`
}

// DeleteTopicRequest removes a topic.
type DeleteTopicRequest struct {
	CourseID  string `json:"courseId" validate:"required"`
	SubjectID string `json:"subjectId" validate:"required"`
	TopicID   string `json:"topicId" validate:"required"`
}

// AddLectureRequest appends a lecture to a topic.
type AddLectureRequest struct {
	CourseID    string `json:"courseId" validate:"required"`
	SubjectID   string `json:"subjectId" validate:"required"`
	TopicID     string `json:"topicId" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

// UpdateLectureRequest edits a lecture.
type UpdateLectureRequest struct {
	CourseID        string `json:"courseId" validate:"required"`
	SubjectID       string `json:"subjectId" validate:"required"`
	TopicID         string `json:"topicId" validate:"required"`
	LectureID       string `json:"lectureId" validate:"required"`
	Title           string `json:"title" validate:"required"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"durationMinutes"`
}

// DeleteLectureRequest removes a lecture.
type DeleteLectureRequest struct {
	CourseID  string `json:"courseId" validate:"required"`
	SubjectID string `json:"subjectId" validate:"required"`
	TopicID   string `json:"topicId" validate:"required"`
	LectureID string `json:"lectureId" validate:"required"`
}

// CreateBatchRequest schedules a batch from a course template. Faculty
// assignments map subject ids to faculty ids.
type CreateBatchRequest struct {
	Name               string            `json:"name" validate:"required"`
	CourseTemplateID   string            `json:"courseTemplateId" validate:"required"`
	StartDate          string            `json:"startDate" validate:"required"`
	FacultyAssignments map[string]string `json:"facultyAssignments"`
}

// CreateUserRequest registers a backend account.
type CreateUserRequest struct {
	Email          string                 `json:"email" validate:"required,email"`
	Password       string                 `json:"password" validate:"required"`
	FirstName      string                 `json:"firstName" validate:"required"`
	LastName       string                 `json:"lastName" validate:"required"`
	Role           models.UserRole        `json:"role" validate:"required,oneof=business faculty"`
	PhoneNumber    string                 `json:"phoneNumber" validate:"required"`
	FacultyProfile *models.FacultyProfile `json:"facultyProfile,omitempty"`
}

// CourseSummary decorates a course with template counts.
type CourseSummary struct {
	models.Course
	SubjectCount int `json:"subjectCount"`
	TopicCount   int `json:"topicCount"`
	LectureCount int `json:"lectureCount"`
}

// BatchDetail decorates a batch with its schedule status and completion.
type BatchDetail struct {
	models.Batch
	Status        string           `json:"status"`
	DaysRemaining int              `json:"daysRemaining"`
	Progress      models.Aggregate `json:"progress"`
}

// CourseScoped is implemented by course edit payloads so the course id can be
// taken from the route.
type CourseScoped interface {
	SetCourseID(id string)
}

func (r *AddSubjectRequest) SetCourseID(id string)    { r.CourseID = id }
func (r *UpdateSubjectRequest) SetCourseID(id string) { r.CourseID = id }
func (r *DeleteSubjectRequest) SetCourseID(id string) { r.CourseID = id }
func (r *AddTopicRequest) SetCourseID(id string)      { r.CourseID = id }
func (r *UpdateTopicRequest) SetCourseID(id string)   { r.CourseID = id }
func (r *DeleteTopicRequest) SetCourseID(id string)   { r.CourseID = id }
func (r *AddLectureRequest) SetCourseID(id string)    { r.CourseID = id }
func (r *UpdateLectureRequest) SetCourseID(id string) { r.CourseID = id }
func (r *DeleteLectureRequest) SetCourseID(id string) { r.CourseID = id }
