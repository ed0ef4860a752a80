package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lecture-progress-api/internal/backend"
	"github.com/noah-isme/lecture-progress-api/internal/dto"
	"github.com/noah-isme/lecture-progress-api/internal/models"
	appErrors "github.com/noah-isme/lecture-progress-api/pkg/errors"
	"github.com/noah-isme/lecture-progress-api/pkg/response"
)

type catalogService interface {
	ListCourses(ctx context.Context, principal *models.Principal, filter models.CourseFilter) ([]dto.CourseSummary, *models.Pagination, error)
	GetCourse(ctx context.Context, principal *models.Principal, courseID string) (*dto.CourseSummary, error)
	CreateCourse(ctx context.Context, principal *models.Principal, req dto.CreateCourseRequest) (*dto.CourseSummary, error)
	UpdateCourse(ctx context.Context, principal *models.Principal, courseID string, req dto.UpdateCourseRequest) (*dto.CourseSummary, error)
	EditCourse(ctx context.Context, principal *models.Principal, courseID string, edit backend.CourseEdit, payload interface{}) (*dto.CourseSummary, error)
	ListBatches(ctx context.Context, principal *models.Principal, filter models.BatchFilter) ([]dto.BatchDetail, *models.Pagination, error)
	GetBatch(ctx context.Context, principal *models.Principal, batchID string) (*dto.BatchDetail, error)
	CreateBatch(ctx context.Context, principal *models.Principal, req dto.CreateBatchRequest) (*dto.BatchDetail, error)
	ListFaculty(ctx context.Context, principal *models.Principal) ([]models.User, error)
	CreateFaculty(ctx context.Context, principal *models.Principal, req dto.CreateUserRequest) (*models.User, error)
}

// CatalogHandler exposes course, batch and faculty management.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(service catalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// ListCourses godoc
// @Summary List courses
// @Tags Catalog
// @Produce json
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(10)
// @Param search query string false "Title or code"
// @Param status query string false "active, inactive or draft"
// @Param sortBy query string false "Sort field"
// @Param sortOrder query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /catalog/courses [get]
func (h *CatalogHandler) ListCourses(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	filter := models.CourseFilter{
		Search:    c.Query("search"),
		Status:    c.Query("status"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	filter.Page, filter.Limit = pageParams(c)

	courses, pagination, err := h.service.ListCourses(c.Request.Context(), principal, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// GetCourse godoc
// @Summary Get course
// @Tags Catalog
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /catalog/courses/{id} [get]
func (h *CatalogHandler) GetCourse(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	course, err := h.service.GetCourse(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// CreateCourse godoc
// @Summary Create course
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateCourseRequest true "Course"
// @Success 201 {object} response.Envelope
// @Router /catalog/courses [post]
func (h *CatalogHandler) CreateCourse(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	course, err := h.service.CreateCourse(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// UpdateCourse godoc
// @Summary Update course
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.UpdateCourseRequest true "Course"
// @Success 200 {object} response.Envelope
// @Router /catalog/courses/{id} [put]
func (h *CatalogHandler) UpdateCourse(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	course, err := h.service.UpdateCourse(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// EditCourse returns a handler applying one structural course edit. The
// payload is bound from JSON and scoped to the :id route parameter.
func (h *CatalogHandler) EditCourse(edit backend.CourseEdit, newPayload func() dto.CourseScoped) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFromContext(c)
		if !ok {
			return
		}
		payload := newPayload()
		if err := c.ShouldBindJSON(payload); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
			return
		}
		courseID := c.Param("id")
		payload.SetCourseID(courseID)

		course, err := h.service.EditCourse(c.Request.Context(), principal, courseID, edit, payload)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, course, nil)
	}
}

// ListBatches godoc
// @Summary List batches
// @Tags Catalog
// @Produce json
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(10)
// @Param search query string false "Batch name"
// @Success 200 {object} response.Envelope
// @Router /catalog/batches [get]
func (h *CatalogHandler) ListBatches(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	filter := models.BatchFilter{Search: c.Query("search")}
	filter.Page, filter.Limit = pageParams(c)

	batches, pagination, err := h.service.ListBatches(c.Request.Context(), principal, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batches, pagination)
}

// GetBatch godoc
// @Summary Get batch with completion
// @Tags Catalog
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /catalog/batches/{id} [get]
func (h *CatalogHandler) GetBatch(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	batch, err := h.service.GetBatch(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batch, nil)
}

// CreateBatch godoc
// @Summary Create batch
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateBatchRequest true "Batch"
// @Success 201 {object} response.Envelope
// @Router /catalog/batches [post]
func (h *CatalogHandler) CreateBatch(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	batch, err := h.service.CreateBatch(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, batch)
}

// ListFaculty godoc
// @Summary List faculty
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/faculty [get]
func (h *CatalogHandler) ListFaculty(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	users, err := h.service.ListFaculty(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, nil)
}

// CreateFaculty godoc
// @Summary Register faculty
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateUserRequest true "User"
// @Success 201 {object} response.Envelope
// @Router /catalog/faculty [post]
func (h *CatalogHandler) CreateFaculty(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	user, err := h.service.CreateFaculty(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

func pageParams(c *gin.Context) (page, limit int) {
	page, limit = 1, 10
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "10")); err == nil && v > 0 {
		limit = v
	}
	return page, limit
}
