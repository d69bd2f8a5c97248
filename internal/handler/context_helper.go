package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/path-planner/internal/middleware"
	"github.com/noah-isme/path-planner/internal/models"
	appErrors "github.com/noah-isme/path-planner/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// termIndexParam parses the zero based :index path parameter.
func termIndexParam(c *gin.Context) (int, error) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "term index must be a non-negative integer")
	}
	return idx, nil
}

func parseQueryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}
