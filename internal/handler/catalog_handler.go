package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/path-planner/pkg/response"
)

type catalogInvalidator interface {
	Invalidate(ctx context.Context, courseCode string) error
}

// CatalogHandler exposes catalog maintenance endpoints.
type CatalogHandler struct {
	catalog catalogInvalidator
}

// NewCatalogHandler constructs a catalog handler.
func NewCatalogHandler(catalog catalogInvalidator) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Invalidate godoc
// @Summary Drop cached catalog snapshots of a course
// @Tags Catalog
// @Security BearerAuth
// @Param courseCode path string true "Course code"
// @Success 204
// @Router /catalog/{courseCode}/invalidate [post]
func (h *CatalogHandler) Invalidate(c *gin.Context) {
	if err := h.catalog.Invalidate(c.Request.Context(), c.Param("courseCode")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
