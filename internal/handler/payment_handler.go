package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/summercamp-api/internal/models"
	"github.com/noah-isme/summercamp-api/internal/service"
	"github.com/noah-isme/summercamp-api/pkg/response"
)

type paymentService interface {
	History(ctx context.Context, studentEmail string) ([]models.Payment, error)
	Export(ctx context.Context, studentEmail, format string) (*service.PaymentExport, error)
}

// PaymentHandler exposes payment history.
type PaymentHandler struct {
	service paymentService
}

// NewPaymentHandler constructs a payment handler.
func NewPaymentHandler(svc paymentService) *PaymentHandler {
	return &PaymentHandler{service: svc}
}

// History godoc
// @Summary Payment history
// @Tags Payments
// @Produce json
// @Param email path string true "Student email"
// @Success 200 {object} response.Envelope
// @Router /users/{email}/payments [get]
func (h *PaymentHandler) History(c *gin.Context) {
	payments, err := h.service.History(c.Request.Context(), subjectEmail(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}

// Export godoc
// @Summary Export payment history
// @Tags Payments
// @Produce text/csv
// @Produce application/pdf
// @Param email path string true "Student email"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /users/{email}/payments/export [get]
func (h *PaymentHandler) Export(c *gin.Context) {
	file, err := h.service.Export(c.Request.Context(), subjectEmail(c), c.DefaultQuery("format", service.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
