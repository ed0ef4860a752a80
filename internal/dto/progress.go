package dto

import (
	"time"

	"github.com/noah-isme/lecture-progress-api/internal/models"
)

// SubjectProgress is one subject of a batch with its completion.
type SubjectProgress struct {
	SubjectID    string           `json:"subjectId"`
	SubjectTitle string           `json:"subjectTitle"`
	FacultyID    string           `json:"facultyId"`
	Progress     models.Aggregate `json:"progress"`
}

// BatchProgress pairs a batch snapshot with its computed completion.
type BatchProgress struct {
	Batch    models.Batch      `json:"batch"`
	Progress models.Aggregate  `json:"progress"`
	Subjects []SubjectProgress `json:"subjects"`
}

// CompleteLectureResponse is returned when a completion has been accepted.
// AlreadyCompleted is set when the lecture was complete before the request.
type CompleteLectureResponse struct {
	Mutation         *models.MutationRecord `json:"mutation,omitempty"`
	Batch            *BatchProgress         `json:"batch,omitempty"`
	AlreadyCompleted bool                   `json:"alreadyCompleted,omitempty"`
}

// FacultyBatchesResponse is the faculty workspace. Stale and LastError travel
// in the response meta.
type FacultyBatchesResponse struct {
	Batches   []BatchProgress `json:"batches"`
	LoadedAt  time.Time       `json:"loadedAt"`
	Stale     bool            `json:"-"`
	LastError string          `json:"-"`
}

// FacultyProgressBatch is one batch of the faculty progress view.
type FacultyProgressBatch struct {
	BatchID           string            `json:"batchId"`
	BatchName         string            `json:"batchName"`
	CompletionRate    float64           `json:"completionRate"`
	TotalLectures     int               `json:"totalLectures"`
	CompletedLectures int               `json:"completedLectures"`
	Subjects          []SubjectProgress `json:"subjects"`
}

// FacultyProgressSummary rolls the faculty progress view up.
type FacultyProgressSummary struct {
	TotalBatches      int     `json:"totalBatches"`
	TotalSubjects     int     `json:"totalSubjects"`
	CompletedSubjects int     `json:"completedSubjects"`
	AverageCompletion float64 `json:"averageCompletion"`
}

// FacultyProgressResponse is the payload of the faculty progress view.
type FacultyProgressResponse struct {
	Batches   []FacultyProgressBatch   `json:"batches"`
	Summary   FacultyProgressSummary   `json:"summary"`
	Analytics *models.FacultyAnalytics `json:"analytics,omitempty"`
	Stale     bool                     `json:"-"`
	LastError string                   `json:"-"`
}

// FacultyOverviewResponse is the faculty landing page payload.
type FacultyOverviewResponse struct {
	Analytics      models.FacultyAnalytics  `json:"analytics"`
	RecentActivity []models.CompletionEvent `json:"recentActivity"`
}

// BusinessOverviewResponse is the business dashboard payload.
type BusinessOverviewResponse struct {
	Analytics       models.BusinessAnalytics      `json:"analytics"`
	Items           []models.BusinessOverviewItem `json:"items"`
	OverallProgress models.Aggregate              `json:"overallProgress"`
	ActiveTeachers  int                           `json:"activeTeachers"`
	RecentActivity  []models.CompletionEvent      `json:"recentActivity"`
}

// LectureTrackingQuery narrows the lecture tracking report.
type LectureTrackingQuery struct {
	Search  string `form:"search"`
	Faculty string `form:"faculty"`
	Batch   string `form:"batch"`
}

// FilterOption is a selectable value in the tracking filters.
type FilterOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// LectureTrackingSummary rolls the filtered tracking rows up.
type LectureTrackingSummary struct {
	TotalSubjects     int     `json:"totalSubjects"`
	TotalLectures     int     `json:"totalLectures"`
	CompletedLectures int     `json:"completedLectures"`
	AverageCompletion float64 `json:"averageCompletion"`
}

// LectureTrackingResponse is the lecture tracking report.
type LectureTrackingResponse struct {
	Items          []models.BusinessOverviewItem `json:"items"`
	FacultyOptions []FilterOption                `json:"facultyOptions"`
	BatchOptions   []FilterOption                `json:"batchOptions"`
	Summary        LectureTrackingSummary        `json:"summary"`
	RecentActivity []models.CompletionEvent      `json:"recentActivity"`
	AppliedFilters LectureTrackingQuery          `json:"appliedFilters"`
}

// FacultyLecturesResponse details the completed lectures of one batch subject.
type FacultyLecturesResponse struct {
	BatchID      string                   `json:"batchId"`
	SubjectID    string                   `json:"subjectId"`
	Range        models.DateRange         `json:"range"`
	Lectures     []models.CompletionEvent `json:"lectures"`
	Stats        models.ActivityStats     `json:"stats"`
	AllTimeStats models.ActivityStats     `json:"allTimeStats"`
	Topics       []models.TopicGroup      `json:"topics"`
	GeneratedAt  time.Time                `json:"generatedAt"`
}
