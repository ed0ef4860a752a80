package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lecture-progress-api/internal/dto"
	"github.com/noah-isme/lecture-progress-api/internal/middleware"
	"github.com/noah-isme/lecture-progress-api/internal/models"
	appErrors "github.com/noah-isme/lecture-progress-api/pkg/errors"
)

type fakeFacultySrv struct {
	batches    *dto.FacultyBatchesResponse
	complete   *dto.CompleteLectureResponse
	completeFn func(models.LectureCompleted) error
	mutation   *models.MutationRecord
	progress   *dto.FacultyProgressResponse
	err        error

	lastSearch string
	lastEvent  models.LectureCompleted
	refreshed  bool
}

func (f *fakeFacultySrv) Batches(_ context.Context, _ *models.Principal, search string) (*dto.FacultyBatchesResponse, error) {
	f.lastSearch = search
	return f.batches, f.err
}

func (f *fakeFacultySrv) Refresh(context.Context, *models.Principal) (*dto.FacultyBatchesResponse, error) {
	f.refreshed = true
	return f.batches, f.err
}

func (f *fakeFacultySrv) CompleteLecture(_ context.Context, _ *models.Principal, event models.LectureCompleted) (*dto.CompleteLectureResponse, error) {
	f.lastEvent = event
	if f.completeFn != nil {
		if err := f.completeFn(event); err != nil {
			return nil, err
		}
	}
	return f.complete, nil
}

func (f *fakeFacultySrv) Mutation(_ *models.Principal, lectureID string) (*models.MutationRecord, error) {
	if f.mutation == nil || f.mutation.LectureID != lectureID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no completion tracked for lecture")
	}
	return f.mutation, nil
}

func (f *fakeFacultySrv) Progress(context.Context, *models.Principal) (*dto.FacultyProgressResponse, error) {
	return f.progress, f.err
}

func (f *fakeFacultySrv) Overview(context.Context, *models.Principal) (*dto.FacultyOverviewResponse, error) {
	return &dto.FacultyOverviewResponse{Analytics: models.FacultyAnalytics{}}, f.err
}

const completeBody = `{"batchId":"b1","subjectId":"s1","topicId":"t1","lectureId":"l1"}`

func TestFacultyHandlerBatchesRequiresPrincipal(t *testing.T) {
	handler := NewFacultyHandler(&fakeFacultySrv{})
	c, rec := newTestContext(http.MethodGet, "/faculty/batches", "", nil)

	handler.Batches(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFacultyHandlerBatchesTrimsSearch(t *testing.T) {
	srv := &fakeFacultySrv{batches: &dto.FacultyBatchesResponse{Batches: []dto.BatchProgress{}}}
	handler := NewFacultyHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/faculty/batches?search=%20physics%20", "", facultyPrincipal)

	handler.Batches(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "physics", srv.lastSearch)
	envelope := decodeEnvelope(t, rec)
	assert.Nil(t, envelope.Meta["stale"])
}

func TestFacultyHandlerBatchesReportsStaleSnapshot(t *testing.T) {
	srv := &fakeFacultySrv{batches: &dto.FacultyBatchesResponse{Stale: true, LastError: "backend temporarily unavailable"}}
	handler := NewFacultyHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/faculty/batches", "", facultyPrincipal)

	handler.Batches(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope.Meta["stale"])
	assert.Equal(t, "backend temporarily unavailable", envelope.Meta["lastError"])
	assert.Equal(t, true, middleware.ExtractMeta(c)["stale"])
}

func TestFacultyHandlerRefresh(t *testing.T) {
	srv := &fakeFacultySrv{batches: &dto.FacultyBatchesResponse{}}
	handler := NewFacultyHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/faculty/batches/refresh", "", facultyPrincipal)

	handler.Refresh(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, srv.refreshed)
}

func TestFacultyHandlerCompleteLectureAccepted(t *testing.T) {
	srv := &fakeFacultySrv{complete: &dto.CompleteLectureResponse{
		Mutation: &models.MutationRecord{ID: "m1", LectureID: "l1", State: models.MutationPredicted},
	}}
	handler := NewFacultyHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/faculty/lectures/complete", completeBody, facultyPrincipal)

	handler.CompleteLecture(c)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, models.LectureCompleted{BatchID: "b1", SubjectID: "s1", TopicID: "t1", LectureID: "l1"}, srv.lastEvent)

	var data dto.CompleteLectureResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	require.NotNil(t, data.Mutation)
	assert.Equal(t, models.MutationPredicted, data.Mutation.State)
}

func TestFacultyHandlerCompleteLectureAlreadyComplete(t *testing.T) {
	srv := &fakeFacultySrv{complete: &dto.CompleteLectureResponse{AlreadyCompleted: true}}
	handler := NewFacultyHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/faculty/lectures/complete", completeBody, facultyPrincipal)

	handler.CompleteLecture(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFacultyHandlerCompleteLectureRejectsMalformedBody(t *testing.T) {
	handler := NewFacultyHandler(&fakeFacultySrv{})
	c, rec := newTestContext(http.MethodPost, "/faculty/lectures/complete", `{"batchId":`, facultyPrincipal)

	handler.CompleteLecture(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, envelope.Error.Code)
}

func TestFacultyHandlerCompleteLectureConflict(t *testing.T) {
	srv := &fakeFacultySrv{completeFn: func(models.LectureCompleted) error {
		return appErrors.Clone(appErrors.ErrConflict, "completion already in flight")
	}}
	handler := NewFacultyHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/faculty/lectures/complete", completeBody, facultyPrincipal)

	handler.CompleteLecture(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestFacultyHandlerMutation(t *testing.T) {
	srv := &fakeFacultySrv{mutation: &models.MutationRecord{ID: "m1", LectureID: "l1", State: models.MutationConfirmed}}
	handler := NewFacultyHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/faculty/mutations/l1", "", facultyPrincipal)
	c.Params = gin.Params{{Key: "lectureId", Value: "l1"}}
	handler.Mutation(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/faculty/mutations/l2", "", facultyPrincipal)
	c.Params = gin.Params{{Key: "lectureId", Value: "l2"}}
	handler.Mutation(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFacultyHandlerProgressSurfacesAuthExpiry(t *testing.T) {
	srv := &fakeFacultySrv{err: appErrors.ErrAuthExpired}
	handler := NewFacultyHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/faculty/progress", "", facultyPrincipal)

	handler.Progress(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrAuthExpired.Code, envelope.Error.Code)
}

func TestFacultyHandlerOverview(t *testing.T) {
	handler := NewFacultyHandler(&fakeFacultySrv{})
	c, rec := newTestContext(http.MethodGet, "/faculty/overview", "", facultyPrincipal)

	handler.Overview(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}
