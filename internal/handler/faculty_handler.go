package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lecture-progress-api/internal/dto"
	"github.com/noah-isme/lecture-progress-api/internal/middleware"
	"github.com/noah-isme/lecture-progress-api/internal/models"
	appErrors "github.com/noah-isme/lecture-progress-api/pkg/errors"
	"github.com/noah-isme/lecture-progress-api/pkg/response"
)

type facultyService interface {
	Batches(ctx context.Context, principal *models.Principal, search string) (*dto.FacultyBatchesResponse, error)
	Refresh(ctx context.Context, principal *models.Principal) (*dto.FacultyBatchesResponse, error)
	CompleteLecture(ctx context.Context, principal *models.Principal, event models.LectureCompleted) (*dto.CompleteLectureResponse, error)
	Mutation(principal *models.Principal, lectureID string) (*models.MutationRecord, error)
	Progress(ctx context.Context, principal *models.Principal) (*dto.FacultyProgressResponse, error)
	Overview(ctx context.Context, principal *models.Principal) (*dto.FacultyOverviewResponse, error)
}

// FacultyHandler serves the faculty workspace endpoints.
type FacultyHandler struct {
	service facultyService
}

// NewFacultyHandler constructs the handler.
func NewFacultyHandler(service facultyService) *FacultyHandler {
	return &FacultyHandler{service: service}
}

// Batches godoc
// @Summary Faculty workspace
// @Description Batches assigned to the caller with completion aggregates.
// @Tags Faculty
// @Produce json
// @Param search query string false "Batch name or subject title"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /faculty/batches [get]
func (h *FacultyHandler) Batches(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	resp, err := h.service.Batches(c.Request.Context(), principal, strings.TrimSpace(c.Query("search")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil, snapshotMeta(c, resp.Stale, resp.LastError))
}

// Refresh godoc
// @Summary Re-fetch the faculty workspace
// @Tags Faculty
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /faculty/batches/refresh [post]
func (h *FacultyHandler) Refresh(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	resp, err := h.service.Refresh(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil, snapshotMeta(c, resp.Stale, resp.LastError))
}

// CompleteLecture godoc
// @Summary Mark a lecture complete
// @Description Applies the completion immediately and confirms it with the backend in the background.
// @Tags Faculty
// @Accept json
// @Produce json
// @Param payload body models.LectureCompleted true "Lecture identity"
// @Success 202 {object} response.Envelope
// @Success 200 {object} response.Envelope "Lecture was already complete"
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /faculty/lectures/complete [post]
func (h *FacultyHandler) CompleteLecture(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req models.LectureCompleted
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	resp, err := h.service.CompleteLecture(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if resp.AlreadyCompleted {
		response.JSON(c, http.StatusOK, resp, nil)
		return
	}
	response.Accepted(c, resp, nil)
}

// Mutation godoc
// @Summary Completion status of a lecture
// @Tags Faculty
// @Produce json
// @Param lectureId path string true "Lecture ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /faculty/mutations/{lectureId} [get]
func (h *FacultyHandler) Mutation(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	record, err := h.service.Mutation(principal, c.Param("lectureId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Progress godoc
// @Summary Faculty progress view
// @Tags Faculty
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /faculty/progress [get]
func (h *FacultyHandler) Progress(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	resp, err := h.service.Progress(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil, snapshotMeta(c, resp.Stale, resp.LastError))
}

// Overview godoc
// @Summary Faculty overview
// @Tags Faculty
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /faculty/overview [get]
func (h *FacultyHandler) Overview(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	resp, err := h.service.Overview(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

func snapshotMeta(c *gin.Context, stale bool, lastError string) map[string]interface{} {
	middleware.SetStale(c, stale)
	meta := responseMeta(c)
	if stale {
		meta["stale"] = true
		meta["lastError"] = lastError
	}
	return meta
}
