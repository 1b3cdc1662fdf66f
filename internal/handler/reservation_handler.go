package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/summercamp-api/internal/models"
	"github.com/noah-isme/summercamp-api/pkg/response"
)

type reservationService interface {
	Select(ctx context.Context, principal *models.Principal, req models.ReservationRequest) (*models.Reservation, error)
	Cancel(ctx context.Context, principal *models.Principal, id string) (*models.CancelResult, error)
	ListByStudent(ctx context.Context, studentEmail string) ([]models.ReservationDetail, error)
}

// ReservationHandler manages selected classes.
type ReservationHandler struct {
	service reservationService
}

// NewReservationHandler constructs a reservation handler.
func NewReservationHandler(svc reservationService) *ReservationHandler {
	return &ReservationHandler{service: svc}
}

// Create godoc
// @Summary Select a class
// @Tags Reservations
// @Accept json
// @Produce json
// @Param payload body models.ReservationRequest true "Reservation payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reservations [post]
func (h *ReservationHandler) Create(c *gin.Context) {
	var req models.ReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	reservation, err := h.service.Select(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reservation)
}

// Cancel godoc
// @Summary Cancel a reservation
// @Description Idempotent: an already removed reservation reports deleted 0.
// @Tags Reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reservations/{id} [delete]
func (h *ReservationHandler) Cancel(c *gin.Context) {
	result, err := h.service.Cancel(c.Request.Context(), principalFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListByStudent godoc
// @Summary List selected classes
// @Tags Reservations
// @Produce json
// @Param email path string true "Student email"
// @Success 200 {object} response.Envelope
// @Router /users/{email}/reservations [get]
func (h *ReservationHandler) ListByStudent(c *gin.Context) {
	reservations, err := h.service.ListByStudent(c.Request.Context(), subjectEmail(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reservations, nil)
}
