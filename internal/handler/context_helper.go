package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lecture-progress-api/internal/middleware"
	"github.com/noah-isme/lecture-progress-api/internal/models"
	appErrors "github.com/noah-isme/lecture-progress-api/pkg/errors"
	"github.com/noah-isme/lecture-progress-api/pkg/response"
)

// principalFromContext returns the authenticated caller or writes 401.
func principalFromContext(c *gin.Context) (*models.Principal, bool) {
	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return principal, true
}

// responseMeta returns the request's meta map, creating one when the
// response meta middleware is not installed.
func responseMeta(c *gin.Context) map[string]interface{} {
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	return meta
}
