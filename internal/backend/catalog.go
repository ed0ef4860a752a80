package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/noah-isme/lecture-progress-api/internal/dto"
	"github.com/noah-isme/lecture-progress-api/internal/models"
)

// ListCourses pages through course templates.
func (c *Client) ListCourses(ctx context.Context, token string, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	query := pageQuery(filter.Page, filter.Limit, filter.Search)
	setIf(query, "sortBy", filter.SortBy)
	setIf(query, "sortOrder", filter.SortOrder)
	setIf(query, "status", filter.Status)

	var courses []models.Course
	page, err := c.do(ctx, call{operation: "list_courses", method: http.MethodGet, path: "/course/list", query: query, token: token}, &courses)
	return courses, page, err
}

// GetCourse returns one course template.
func (c *Client) GetCourse(ctx context.Context, token, courseID string) (models.Course, error) {
	var course models.Course
	_, err := c.do(ctx, call{operation: "get_course", method: http.MethodGet, path: "/course/" + url.PathEscape(courseID), token: token}, &course)
	return course, err
}

// CreateCourse creates a course template.
func (c *Client) CreateCourse(ctx context.Context, token string, req dto.CreateCourseRequest) (models.Course, error) {
	var course models.Course
	_, err := c.do(ctx, call{operation: "create_course", method: http.MethodPost, path: "/course/create", token: token, body: req}, &course)
	return course, err
}

// UpdateCourse edits a course template.
func (c *Client) UpdateCourse(ctx context.Context, token string, req dto.UpdateCourseRequest) (models.Course, error) {
	var course models.Course
	_, err := c.do(ctx, call{operation: "update_course", method: http.MethodPut, path: "/course/update", token: token, body: req}, &course)
	return course, err
}

// MutateCourse sends a structural course edit (subject, topic or lecture).
// The backend response body is not used; callers re-read the course.
func (c *Client) MutateCourse(ctx context.Context, token string, edit CourseEdit, payload interface{}) error {
	route, ok := courseEditRoutes[edit]
	if !ok {
		return errUnknownEdit(edit)
	}
	_, err := c.do(ctx, call{operation: string(edit), method: route.method, path: route.path, token: token, body: payload}, nil)
	return err
}

// ListBatches pages through batches.
func (c *Client) ListBatches(ctx context.Context, token string, filter models.BatchFilter) ([]models.Batch, *models.Pagination, error) {
	var batches []models.Batch
	page, err := c.do(ctx, call{operation: "list_batches", method: http.MethodGet, path: "/batch/list", query: pageQuery(filter.Page, filter.Limit, filter.Search), token: token}, &batches)
	return batches, page, err
}

// CreateBatch schedules a batch.
func (c *Client) CreateBatch(ctx context.Context, token string, req dto.CreateBatchRequest) (models.Batch, error) {
	var batch models.Batch
	_, err := c.do(ctx, call{operation: "create_batch", method: http.MethodPost, path: "/batch/create", token: token, body: req}, &batch)
	return batch, err
}

// ListFaculty returns all faculty accounts.
func (c *Client) ListFaculty(ctx context.Context, token string) ([]models.User, error) {
	var users []models.User
	_, err := c.do(ctx, call{operation: "list_faculty", method: http.MethodGet, path: "/user/list/faculty", token: token}, &users)
	return users, err
}

// CreateUser registers an account.
func (c *Client) CreateUser(ctx context.Context, token string, req dto.CreateUserRequest) (models.User, error) {
	var user models.User
	_, err := c.do(ctx, call{operation: "create_user", method: http.MethodPost, path: "/user/register", token: token, body: req}, &user)
	return user, err
}

func pageQuery(page, limit int, search string) url.Values {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	setIf(query, "search", search)
	return query
}

func setIf(query url.Values, key, value string) {
	if value != "" {
		query.Set(key, value)
	}
}
