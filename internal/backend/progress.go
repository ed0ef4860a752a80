package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/noah-isme/lecture-progress-api/internal/models"
	"github.com/noah-isme/lecture-progress-api/internal/progress"
)

// EventQuery narrows a completion event feed. Empty fields match everything.
type EventQuery struct {
	BatchID   string
	SubjectID string
	FacultyID string
}

// FetchFacultyBatches returns every batch with a subject assigned to the caller.
func (c *Client) FetchFacultyBatches(ctx context.Context, token string) ([]models.Batch, error) {
	var batches []models.Batch
	if _, err := c.do(ctx, call{operation: "fetch_faculty_batches", method: http.MethodGet, path: "/batch/get/subjects", token: token}, &batches); err != nil {
		return nil, err
	}
	return progress.Normalize(batches), nil
}

// FetchBatchHierarchy returns one batch with its full subject tree.
func (c *Client) FetchBatchHierarchy(ctx context.Context, token, batchID string) (models.Batch, error) {
	var batch models.Batch
	if _, err := c.do(ctx, call{operation: "fetch_batch", method: http.MethodGet, path: "/batch/" + url.PathEscape(batchID), token: token}, &batch); err != nil {
		return models.Batch{}, err
	}
	progress.Normalize([]models.Batch{batch})
	return batch, nil
}

// SubmitLectureCompletion persists a completion. The response carries no
// hierarchy; callers re-fetch.
func (c *Client) SubmitLectureCompletion(ctx context.Context, token string, event models.LectureCompleted) error {
	_, err := c.do(ctx, call{operation: "complete_lecture", method: http.MethodPost, path: "/batch/complete/lecture", token: token, body: event}, nil)
	return err
}

// FetchCompletionEvents reads the completion feed. A batch and subject pair
// targets the per-subject feed; anything else reads the institution activity
// feed. Results are filtered locally as the backend may ignore the filters.
func (c *Client) FetchCompletionEvents(ctx context.Context, token string, q EventQuery) ([]models.CompletionEvent, error) {
	req := call{operation: "fetch_activity", method: http.MethodGet, path: "/batch/business/activity", token: token}
	if q.BatchID != "" && q.SubjectID != "" {
		query := url.Values{}
		query.Set("batchId", q.BatchID)
		query.Set("subjectId", q.SubjectID)
		if q.FacultyID != "" {
			query.Set("facultyId", q.FacultyID)
		}
		req = call{operation: "fetch_completed_lectures", method: http.MethodGet, path: "/batch/faculty/completed-lectures", query: query, token: token}
	}

	var events []models.CompletionEvent
	if _, err := c.do(ctx, req, &events); err != nil {
		return nil, err
	}
	return progress.FilterEvents(events, q.BatchID, q.SubjectID), nil
}

// FetchFacultyAnalytics returns the caller's teaching summary.
func (c *Client) FetchFacultyAnalytics(ctx context.Context, token string) (models.FacultyAnalytics, error) {
	var analytics models.FacultyAnalytics
	_, err := c.do(ctx, call{operation: "fetch_faculty_analytics", method: http.MethodGet, path: "/batch/faculty/analytics", token: token}, &analytics)
	return analytics, err
}

// FetchFacultyRecentActivity returns the caller's latest completions.
func (c *Client) FetchFacultyRecentActivity(ctx context.Context, token string) ([]models.CompletionEvent, error) {
	var events []models.CompletionEvent
	_, err := c.do(ctx, call{operation: "fetch_faculty_activity", method: http.MethodGet, path: "/batch/faculty/recent-activity", token: token}, &events)
	return events, err
}

// FetchBusinessOverview returns one row per batch subject.
func (c *Client) FetchBusinessOverview(ctx context.Context, token string) ([]models.BusinessOverviewItem, error) {
	var items []models.BusinessOverviewItem
	_, err := c.do(ctx, call{operation: "fetch_business_overview", method: http.MethodGet, path: "/batch/business/overview", token: token}, &items)
	return items, err
}

// FetchBusinessAnalytics returns the institution summary.
func (c *Client) FetchBusinessAnalytics(ctx context.Context, token string) (models.BusinessAnalytics, error) {
	var analytics models.BusinessAnalytics
	_, err := c.do(ctx, call{operation: "fetch_business_analytics", method: http.MethodGet, path: "/batch/business/analytics", token: token}, &analytics)
	return analytics, err
}
