package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/summercamp-api/internal/models"
	"github.com/noah-isme/summercamp-api/pkg/response"
)

type enrollmentService interface {
	ListByStudent(ctx context.Context, studentEmail string) ([]models.EnrollmentDetail, error)
}

// EnrollmentHandler exposes enrolled classes.
type EnrollmentHandler struct {
	service enrollmentService
}

// NewEnrollmentHandler constructs an enrollment handler.
func NewEnrollmentHandler(svc enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// ListByStudent godoc
// @Summary List enrolled classes
// @Tags Enrollments
// @Produce json
// @Param email path string true "Student email"
// @Success 200 {object} response.Envelope
// @Router /users/{email}/enrollments [get]
func (h *EnrollmentHandler) ListByStudent(c *gin.Context) {
	enrollments, err := h.service.ListByStudent(c.Request.Context(), subjectEmail(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}
