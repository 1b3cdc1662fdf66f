package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/summercamp-api/internal/middleware"
	"github.com/noah-isme/summercamp-api/internal/models"
	appErrors "github.com/noah-isme/summercamp-api/pkg/errors"
)

func principalFromContext(c *gin.Context) *models.Principal {
	return middleware.PrincipalFrom(c)
}

// subjectEmail reads the :email path parameter the self-or-admin routes act on.
func subjectEmail(c *gin.Context) string {
	return strings.ToLower(strings.TrimSpace(c.Param(middleware.SubjectParam)))
}

func pageFromQuery(c *gin.Context, sizeParam string) (int, int) {
	page, size := 0, 0
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery(sizeParam, "20")); err == nil {
		size = v
	}
	return page, size
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
}
