package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/summercamp-api/internal/models"
	"github.com/noah-isme/summercamp-api/pkg/response"
)

type settlementService interface {
	Settle(ctx context.Context, principal *models.Principal, req models.SettlementRequest) (*models.SettlementResult, error)
}

// SettlementHandler turns confirmed payments into enrollments.
type SettlementHandler struct {
	service settlementService
}

// NewSettlementHandler constructs a settlement handler.
func NewSettlementHandler(svc settlementService) *SettlementHandler {
	return &SettlementHandler{service: svc}
}

// Settle godoc
// @Summary Settle a confirmed payment
// @Description Records the payment, then creates the enrollment, drops the reservation and moves the seat and instructor counters.
// @Description Failures after the payment was recorded carry the per-step outcome in meta.settlement.
// @Tags Settlements
// @Accept json
// @Produce json
// @Param payload body models.SettlementRequest true "Settlement payload"
// @Description A sold-out class is a 409 in both modes; in best-effort mode the other steps still applied.
// @Description An instructor that does not own the class is a 400 in atomic mode and a 502 in best-effort mode.
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /settlements [post]
func (h *SettlementHandler) Settle(c *gin.Context) {
	var req models.SettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	result, err := h.service.Settle(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		if result != nil {
			response.ErrorWithMeta(c, err, map[string]interface{}{"settlement": result})
			return
		}
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
