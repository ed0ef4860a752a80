package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lecture-progress-api/internal/backend"
	"github.com/noah-isme/lecture-progress-api/internal/dto"
	"github.com/noah-isme/lecture-progress-api/internal/models"
	appErrors "github.com/noah-isme/lecture-progress-api/pkg/errors"
)

type fakeCatalogSrv struct {
	courseFilter models.CourseFilter
	batchFilter  models.BatchFilter
	courseID     string
	edit         backend.CourseEdit
	payload      interface{}
	createdUser  dto.CreateUserRequest
}

func (f *fakeCatalogSrv) ListCourses(_ context.Context, _ *models.Principal, filter models.CourseFilter) ([]dto.CourseSummary, *models.Pagination, error) {
	f.courseFilter = filter
	return []dto.CourseSummary{}, &models.Pagination{Page: filter.Page, PageSize: filter.Limit}, nil
}

func (f *fakeCatalogSrv) GetCourse(_ context.Context, _ *models.Principal, courseID string) (*dto.CourseSummary, error) {
	if courseID != "c1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return &dto.CourseSummary{Course: models.Course{ID: courseID}}, nil
}

func (f *fakeCatalogSrv) CreateCourse(_ context.Context, _ *models.Principal, req dto.CreateCourseRequest) (*dto.CourseSummary, error) {
	return &dto.CourseSummary{Course: models.Course{ID: "c-new", Title: req.Title}}, nil
}

func (f *fakeCatalogSrv) UpdateCourse(_ context.Context, _ *models.Principal, courseID string, req dto.UpdateCourseRequest) (*dto.CourseSummary, error) {
	f.courseID = courseID
	return &dto.CourseSummary{Course: models.Course{ID: courseID, Title: req.Title}}, nil
}

func (f *fakeCatalogSrv) EditCourse(_ context.Context, _ *models.Principal, courseID string, edit backend.CourseEdit, payload interface{}) (*dto.CourseSummary, error) {
	f.courseID = courseID
	f.edit = edit
	f.payload = payload
	return &dto.CourseSummary{Course: models.Course{ID: courseID}}, nil
}

func (f *fakeCatalogSrv) ListBatches(_ context.Context, _ *models.Principal, filter models.BatchFilter) ([]dto.BatchDetail, *models.Pagination, error) {
	f.batchFilter = filter
	return []dto.BatchDetail{}, nil, nil
}

func (f *fakeCatalogSrv) GetBatch(_ context.Context, _ *models.Principal, batchID string) (*dto.BatchDetail, error) {
	return &dto.BatchDetail{Batch: models.Batch{ID: batchID}, Status: "active"}, nil
}

func (f *fakeCatalogSrv) CreateBatch(_ context.Context, _ *models.Principal, req dto.CreateBatchRequest) (*dto.BatchDetail, error) {
	return &dto.BatchDetail{Batch: models.Batch{ID: "b-new", Name: req.Name}}, nil
}

func (f *fakeCatalogSrv) ListFaculty(context.Context, *models.Principal) ([]models.User, error) {
	return []models.User{{ID: "fac-1", Role: models.RoleFaculty}}, nil
}

func (f *fakeCatalogSrv) CreateFaculty(_ context.Context, _ *models.Principal, req dto.CreateUserRequest) (*models.User, error) {
	f.createdUser = req
	return &models.User{ID: "u-new", Email: req.Email, Role: models.RoleFaculty}, nil
}

func TestCatalogHandlerListCoursesParsesQuery(t *testing.T) {
	srv := &fakeCatalogSrv{}
	handler := NewCatalogHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/catalog/courses?page=2&limit=25&search=eng&status=active&sortBy=title&sortOrder=desc", "", businessPrincipal)

	handler.ListCourses(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.CourseFilter{
		Page:      2,
		Limit:     25,
		Search:    "eng",
		Status:    "active",
		SortBy:    "title",
		SortOrder: "desc",
	}, srv.courseFilter)
}

func TestCatalogHandlerListBatchesDefaultsPaging(t *testing.T) {
	srv := &fakeCatalogSrv{}
	handler := NewCatalogHandler(srv)
	c, _ := newTestContext(http.MethodGet, "/catalog/batches?page=abc&limit=0", "", businessPrincipal)

	handler.ListBatches(c)

	assert.Equal(t, 1, srv.batchFilter.Page)
	assert.Equal(t, 10, srv.batchFilter.Limit)
}

func TestCatalogHandlerGetCourseNotFound(t *testing.T) {
	handler := NewCatalogHandler(&fakeCatalogSrv{})
	c, rec := newTestContext(http.MethodGet, "/catalog/courses/missing", "", businessPrincipal)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.GetCourse(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogHandlerCreateCourse(t *testing.T) {
	handler := NewCatalogHandler(&fakeCatalogSrv{})
	c, rec := newTestContext(http.MethodPost, "/catalog/courses", `{"title":"Data","courseCode":"DS-1","status":"draft"}`, businessPrincipal)

	handler.CreateCourse(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCatalogHandlerUpdateCourseUsesPathID(t *testing.T) {
	srv := &fakeCatalogSrv{}
	handler := NewCatalogHandler(srv)
	c, rec := newTestContext(http.MethodPut, "/catalog/courses/c1", `{"title":"Renamed"}`, businessPrincipal)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	handler.UpdateCourse(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "c1", srv.courseID)
}

func TestCatalogHandlerEditCourseScopesPayload(t *testing.T) {
	srv := &fakeCatalogSrv{}
	handler := NewCatalogHandler(srv)
	edit := handler.EditCourse(backend.AddTopic, func() dto.CourseScoped { return &dto.AddTopicRequest{} })
	c, rec := newTestContext(http.MethodPost, "/catalog/courses/c1/topics", `{"courseId":"other","subjectId":"cs1","title":"Statics"}`, businessPrincipal)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	edit(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, backend.AddTopic, srv.edit)
	payload, ok := srv.payload.(*dto.AddTopicRequest)
	require.True(t, ok)
	assert.Equal(t, "c1", payload.CourseID)
	assert.Equal(t, "cs1", payload.SubjectID)
	assert.Equal(t, "Statics", payload.Title)
}

func TestCatalogHandlerEditCourseRejectsMalformedBody(t *testing.T) {
	srv := &fakeCatalogSrv{}
	handler := NewCatalogHandler(srv)
	edit := handler.EditCourse(backend.DeleteLecture, func() dto.CourseScoped { return &dto.DeleteLectureRequest{} })
	c, rec := newTestContext(http.MethodDelete, "/catalog/courses/c1/lectures", `[`, businessPrincipal)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}

	edit(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, srv.payload)
}

func TestCatalogHandlerCreateBatchAndFaculty(t *testing.T) {
	srv := &fakeCatalogSrv{}
	handler := NewCatalogHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/catalog/batches", `{"name":"Fall","courseTemplateId":"c1","startDate":"2024-09-01"}`, businessPrincipal)
	handler.CreateBatch(c)
	assert.Equal(t, http.StatusCreated, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/catalog/faculty", `{"email":"ken@example.edu","firstName":"Ken"}`, businessPrincipal)
	handler.CreateFaculty(c)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "ken@example.edu", srv.createdUser.Email)
}

func TestCatalogHandlerGetBatchAndListFaculty(t *testing.T) {
	handler := NewCatalogHandler(&fakeCatalogSrv{})

	c, rec := newTestContext(http.MethodGet, "/catalog/batches/b1", "", businessPrincipal)
	c.Params = gin.Params{{Key: "id", Value: "b1"}}
	handler.GetBatch(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/catalog/faculty", "", businessPrincipal)
	handler.ListFaculty(c)
	assert.Equal(t, http.StatusOK, rec.Code)
}
