package models

import "time"

// AggregationMode selects how child completion is rolled up.
type AggregationMode string

const (
	// SumThenRate sums lecture counts and derives one rate from the totals.
	SumThenRate AggregationMode = "sum-then-rate"
	// AverageOfRates takes the mean of child rates, ignoring empty children.
	AverageOfRates AggregationMode = "average-of-rates"
)

// Aggregate is the completion triple computed for any hierarchy node.
type Aggregate struct {
	TotalLectures     int     `json:"totalLectures"`
	CompletedLectures int     `json:"completedLectures"`
	CompletionRate    float64 `json:"completionRate"`
}

// Remaining returns the number of lectures still to be delivered.
func (a Aggregate) Remaining() int {
	if a.CompletedLectures >= a.TotalLectures {
		return 0
	}
	return a.TotalLectures - a.CompletedLectures
}

// CompletionEvent records one lecture becoming complete. It is derived from
// batch data or read from the backend activity feed.
type CompletionEvent struct {
	BatchID      string    `json:"batchId"`
	BatchName    string    `json:"batchName"`
	SubjectID    string    `json:"subjectId"`
	SubjectTitle string    `json:"subjectTitle"`
	FacultyID    string    `json:"facultyId,omitempty"`
	TopicID      string    `json:"topicId"`
	TopicTitle   string    `json:"topicTitle"`
	LectureID    string    `json:"lectureId"`
	LectureTitle string    `json:"lectureTitle"`
	CompletedAt  time.Time `json:"completedAt"`
	CompletedBy  string    `json:"completedBy,omitempty"`
}

// LectureCompleted identifies the lecture that was just marked complete.
type LectureCompleted struct {
	BatchID   string `json:"batchId" validate:"required"`
	SubjectID string `json:"subjectId" validate:"required"`
	TopicID   string `json:"topicId" validate:"required"`
	LectureID string `json:"lectureId" validate:"required"`
}

// DateRange bounds completion events. A nil bound is open.
type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool {
	return r.Start == nil && r.End == nil
}

// ActivityStats summarises a set of completion events.
type ActivityStats struct {
	TotalLectures         int        `json:"totalLectures"`
	UniqueTopics          int        `json:"uniqueTopics"`
	ActiveDays            int        `json:"activeDays"`
	AverageLecturesPerDay float64    `json:"averageLecturesPerDay"`
	MostRecent            *time.Time `json:"mostRecent,omitempty"`
}

// TopicGroup collects completion events of one topic, newest first.
type TopicGroup struct {
	TopicID    string            `json:"topicId"`
	TopicTitle string            `json:"topicTitle"`
	MostRecent time.Time         `json:"mostRecent"`
	Lectures   []CompletionEvent `json:"lectures"`
}
