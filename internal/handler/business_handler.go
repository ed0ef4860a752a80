package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lecture-progress-api/internal/dto"
	"github.com/noah-isme/lecture-progress-api/internal/middleware"
	"github.com/noah-isme/lecture-progress-api/internal/models"
	"github.com/noah-isme/lecture-progress-api/internal/service"
	appErrors "github.com/noah-isme/lecture-progress-api/pkg/errors"
	"github.com/noah-isme/lecture-progress-api/pkg/response"
)

type businessService interface {
	Overview(ctx context.Context, principal *models.Principal) (*dto.BusinessOverviewResponse, bool, error)
	Analytics(ctx context.Context, principal *models.Principal) (*models.BusinessAnalytics, bool, error)
	LectureTracking(ctx context.Context, principal *models.Principal, query dto.LectureTrackingQuery) (*dto.LectureTrackingResponse, bool, error)
	FacultyLectures(ctx context.Context, principal *models.Principal, batchID, subjectID, start, end string) (*dto.FacultyLecturesResponse, error)
	ExportLectureTracking(ctx context.Context, principal *models.Principal, query dto.LectureTrackingQuery, format string) (*service.ExportFile, error)
	Mutations(ctx context.Context, filter models.MutationFilter) ([]models.MutationRecord, *models.Pagination, error)
}

// BusinessHandler serves the business dashboard endpoints.
type BusinessHandler struct {
	service businessService
}

// NewBusinessHandler constructs the handler.
func NewBusinessHandler(service businessService) *BusinessHandler {
	return &BusinessHandler{service: service}
}

// Overview godoc
// @Summary Business dashboard overview
// @Tags Business
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /business/overview [get]
func (h *BusinessHandler) Overview(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	resp, cacheHit, err := h.service.Overview(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, resp, nil, responseMeta(c))
}

// Analytics godoc
// @Summary Business analytics
// @Tags Business
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /business/analytics [get]
func (h *BusinessHandler) Analytics(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	resp, cacheHit, err := h.service.Analytics(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, resp, nil, responseMeta(c))
}

// LectureTracking godoc
// @Summary Lecture tracking report
// @Tags Business
// @Produce json
// @Param search query string false "Faculty, subject or batch"
// @Param faculty query string false "Faculty ID or full name"
// @Param batch query string false "Batch ID or name"
// @Success 200 {object} response.Envelope
// @Router /business/lecture-tracking [get]
func (h *BusinessHandler) LectureTracking(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var query dto.LectureTrackingQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query"))
		return
	}
	resp, cacheHit, err := h.service.LectureTracking(c.Request.Context(), principal, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, resp, nil, responseMeta(c))
}

// FacultyLectures godoc
// @Summary Completed lectures of a batch subject
// @Tags Business
// @Produce json
// @Param batchId path string true "Batch ID"
// @Param subjectId path string true "Subject ID"
// @Param start query string false "Start date (YYYY-MM-DD)"
// @Param end query string false "End date, inclusive (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /business/faculty-lectures/{batchId}/{subjectId} [get]
func (h *BusinessHandler) FacultyLectures(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	resp, err := h.service.FacultyLectures(c.Request.Context(), principal, c.Param("batchId"), c.Param("subjectId"), c.Query("start"), c.Query("end"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// ExportLectureTracking godoc
// @Summary Export the lecture tracking report
// @Tags Business
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /business/reports/lecture-tracking [get]
func (h *BusinessHandler) ExportLectureTracking(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var query dto.LectureTrackingQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query"))
		return
	}
	file, err := h.service.ExportLectureTracking(c.Request.Context(), principal, query, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// Mutations godoc
// @Summary Mutation ledger
// @Tags Business
// @Produce json
// @Param state query string false "predicted, pending_confirmation, confirmed or rolled_back"
// @Param actorId query string false "Faculty user ID"
// @Param batchId query string false "Batch ID"
// @Param page query int false "Page" default(1)
// @Param page_size query int false "Page size" default(50)
// @Success 200 {object} response.Envelope
// @Router /business/mutations [get]
// @Router /users/{id}/mutations [get]
func (h *BusinessHandler) Mutations(c *gin.Context) {
	filter := models.MutationFilter{
		State:   models.MutationState(c.Query("state")),
		ActorID: c.Query("actorId"),
		BatchID: c.Query("batchId"),
		Limit:   50,
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "50")); err == nil && size > 0 {
		filter.Limit = size
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 1 {
		filter.Offset = (page - 1) * filter.Limit
	}
	if id := c.Param("id"); id != "" {
		filter.ActorID = id
	}

	records, pagination, err := h.service.Mutations(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}
