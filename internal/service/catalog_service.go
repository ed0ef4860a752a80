package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lecture-progress-api/internal/backend"
	"github.com/noah-isme/lecture-progress-api/internal/dto"
	"github.com/noah-isme/lecture-progress-api/internal/models"
	"github.com/noah-isme/lecture-progress-api/internal/progress"
	appErrors "github.com/noah-isme/lecture-progress-api/pkg/errors"
)

// Batch schedule statuses.
const (
	BatchUpcoming  = "upcoming"
	BatchActive    = "active"
	BatchExpiring  = "expiring"
	BatchCompleted = "completed"
)

const expiringWindowDays = 7

type catalogBackend interface {
	ListCourses(ctx context.Context, token string, filter models.CourseFilter) ([]models.Course, *models.Pagination, error)
	GetCourse(ctx context.Context, token, courseID string) (models.Course, error)
	CreateCourse(ctx context.Context, token string, req dto.CreateCourseRequest) (models.Course, error)
	UpdateCourse(ctx context.Context, token string, req dto.UpdateCourseRequest) (models.Course, error)
	MutateCourse(ctx context.Context, token string, edit backend.CourseEdit, payload interface{}) error
	ListBatches(ctx context.Context, token string, filter models.BatchFilter) ([]models.Batch, *models.Pagination, error)
	FetchBatchHierarchy(ctx context.Context, token, batchID string) (models.Batch, error)
	CreateBatch(ctx context.Context, token string, req dto.CreateBatchRequest) (models.Batch, error)
	ListFaculty(ctx context.Context, token string) ([]models.User, error)
	CreateUser(ctx context.Context, token string, req dto.CreateUserRequest) (models.User, error)
}

// CatalogService forwards course, batch and faculty management to the
// backend after checking required fields.
type CatalogService struct {
	backend   catalogBackend
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewCatalogService constructs the catalog service.
func NewCatalogService(backend catalogBackend, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{backend: backend, validator: validate, logger: logger, now: time.Now}
}

// ListCourses pages through course templates.
func (s *CatalogService) ListCourses(ctx context.Context, principal *models.Principal, filter models.CourseFilter) ([]dto.CourseSummary, *models.Pagination, error) {
	if filter.Status != "" && !models.CourseStatus(filter.Status).Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid course status")
	}
	if order := strings.ToLower(filter.SortOrder); order != "" && order != "asc" && order != "desc" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "sortOrder must be asc or desc")
	}
	courses, page, err := s.backend.ListCourses(ctx, principal.Token, filter)
	if err != nil {
		return nil, nil, err
	}
	out := make([]dto.CourseSummary, len(courses))
	for i, course := range courses {
		out[i] = summarizeCourse(course)
	}
	return out, page, nil
}

// GetCourse returns a course with its subject, topic and lecture counts.
func (s *CatalogService) GetCourse(ctx context.Context, principal *models.Principal, courseID string) (*dto.CourseSummary, error) {
	if courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course id is required")
	}
	course, err := s.backend.GetCourse(ctx, principal.Token, courseID)
	if err != nil {
		return nil, err
	}
	summary := summarizeCourse(course)
	return &summary, nil
}

// CreateCourse creates a course template.
func (s *CatalogService) CreateCourse(ctx context.Context, principal *models.Principal, req dto.CreateCourseRequest) (*dto.CourseSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.backend.CreateCourse(ctx, principal.Token, req)
	if err != nil {
		return nil, err
	}
	summary := summarizeCourse(course)
	return &summary, nil
}

// UpdateCourse edits the course named by courseID.
func (s *CatalogService) UpdateCourse(ctx context.Context, principal *models.Principal, courseID string, req dto.UpdateCourseRequest) (*dto.CourseSummary, error) {
	req.CourseID = courseID
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.backend.UpdateCourse(ctx, principal.Token, req)
	if err != nil {
		return nil, err
	}
	summary := summarizeCourse(course)
	return &summary, nil
}

// EditCourse applies a subject, topic or lecture edit and returns the course
// as re-read from the backend.
func (s *CatalogService) EditCourse(ctx context.Context, principal *models.Principal, courseID string, edit backend.CourseEdit, payload interface{}) (*dto.CourseSummary, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid "+strings.ReplaceAll(string(edit), "_", " ")+" payload")
	}
	if err := s.backend.MutateCourse(ctx, principal.Token, edit, payload); err != nil {
		return nil, err
	}
	s.logger.Info("course edited", zap.String("course_id", courseID), zap.String("edit", string(edit)), zap.String("user_id", principal.UserID))
	return s.GetCourse(ctx, principal, courseID)
}

// ListBatches pages through batches with their schedule status and progress.
func (s *CatalogService) ListBatches(ctx context.Context, principal *models.Principal, filter models.BatchFilter) ([]dto.BatchDetail, *models.Pagination, error) {
	batches, page, err := s.backend.ListBatches(ctx, principal.Token, filter)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	out := make([]dto.BatchDetail, len(batches))
	for i, batch := range batches {
		out[i] = describeBatch(batch, now)
	}
	return out, page, nil
}

// GetBatch returns one batch hierarchy with its completion.
func (s *CatalogService) GetBatch(ctx context.Context, principal *models.Principal, batchID string) (*dto.BatchDetail, error) {
	if batchID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "batch id is required")
	}
	batch, err := s.backend.FetchBatchHierarchy(ctx, principal.Token, batchID)
	if err != nil {
		return nil, err
	}
	detail := describeBatch(batch, s.now())
	return &detail, nil
}

// CreateBatch schedules a batch from a course template.
func (s *CatalogService) CreateBatch(ctx context.Context, principal *models.Principal, req dto.CreateBatchRequest) (*dto.BatchDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}
	if _, err := time.Parse("2006-01-02", req.StartDate); err != nil {
		if _, err := time.Parse(time.RFC3339, req.StartDate); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start date")
		}
	}
	batch, err := s.backend.CreateBatch(ctx, principal.Token, req)
	if err != nil {
		return nil, err
	}
	detail := describeBatch(batch, s.now())
	return &detail, nil
}

// ListFaculty returns the faculty accounts.
func (s *CatalogService) ListFaculty(ctx context.Context, principal *models.Principal) ([]models.User, error) {
	return s.backend.ListFaculty(ctx, principal.Token)
}

// CreateFaculty registers a faculty account.
func (s *CatalogService) CreateFaculty(ctx context.Context, principal *models.Principal, req dto.CreateUserRequest) (*models.User, error) {
	if req.Role == "" {
		req.Role = models.RoleFaculty
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	user, err := s.backend.CreateUser(ctx, principal.Token, req)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func summarizeCourse(course models.Course) dto.CourseSummary {
	summary := dto.CourseSummary{Course: course, SubjectCount: len(course.Subjects)}
	for _, subject := range course.Subjects {
		summary.TopicCount += len(subject.Topics)
		for _, topic := range subject.Topics {
			summary.LectureCount += len(topic.Lectures)
		}
	}
	return summary
}

func describeBatch(batch models.Batch, now time.Time) dto.BatchDetail {
	return dto.BatchDetail{
		Batch:         batch,
		Status:        batchStatus(batch, now),
		DaysRemaining: daysRemaining(batch.EndDate, now),
		Progress:      progress.OfBatch(batch, models.SumThenRate),
	}
}

// batchStatus places now within the batch schedule. Batches within a week of
// their end date are expiring.
func batchStatus(batch models.Batch, now time.Time) string {
	switch {
	case !batch.StartDate.IsZero() && now.Before(batch.StartDate):
		return BatchUpcoming
	case !batch.EndDate.IsZero() && now.After(batch.EndDate):
		return BatchCompleted
	case !batch.EndDate.IsZero() && daysRemaining(batch.EndDate, now) <= expiringWindowDays:
		return BatchExpiring
	}
	return BatchActive
}

// daysRemaining rounds the time left up to whole days.
func daysRemaining(end, now time.Time) int {
	if end.IsZero() {
		return 0
	}
	return int(math.Ceil(end.Sub(now).Hours() / 24))
}
