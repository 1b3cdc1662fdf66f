package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/summercamp-api/internal/middleware"
	"github.com/noah-isme/summercamp-api/internal/models"
	"github.com/noah-isme/summercamp-api/pkg/response"
)

type classService interface {
	Catalog(ctx context.Context, filter models.ClassFilter) ([]models.Class, *models.Pagination, bool, error)
	ListByInstructor(ctx context.Context, email string, filter models.ClassFilter) ([]models.Class, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, principal *models.Principal, req models.ClassRequest) (*models.Class, error)
	Update(ctx context.Context, principal *models.Principal, id string, req models.ClassRequest) (*models.Class, error)
	ChangeStatus(ctx context.Context, id string, req models.ClassStatusRequest) (*models.Class, error)
	SetFeedback(ctx context.Context, id string, req models.ClassFeedbackRequest) (*models.Class, error)
}

// ClassHandler exposes the class catalog and lifecycle endpoints.
type ClassHandler struct {
	service classService
}

// NewClassHandler constructs a class handler.
func NewClassHandler(svc classService) *ClassHandler {
	return &ClassHandler{service: svc}
}

// List godoc
// @Summary List approved classes
// @Tags Classes
// @Produce json
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort field"
// @Param order query string false "Sort order"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	filter := classFilterFromQuery(c)
	classes, pagination, hit, err := h.service.Catalog(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, classes, pagination, middleware.ExtractMeta(c))
}

// ListByInstructor godoc
// @Summary List an instructor's classes
// @Tags Classes
// @Produce json
// @Param email path string true "Instructor email"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /instructors/{email}/classes [get]
func (h *ClassHandler) ListByInstructor(c *gin.Context) {
	filter := classFilterFromQuery(c)
	filter.Status = models.ClassStatus(strings.ToLower(c.Query("status")))
	classes, pagination, err := h.service.ListByInstructor(c.Request.Context(), subjectEmail(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, pagination)
}

// Get godoc
// @Summary Get class detail
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	class, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Create godoc
// @Summary Create class
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body models.ClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Router /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	var req models.ClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	class, err := h.service.Create(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Update godoc
// @Summary Update own class
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body models.ClassRequest true "Class payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /classes/{id} [patch]
func (h *ClassHandler) Update(c *gin.Context) {
	var req models.ClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	class, err := h.service.Update(c.Request.Context(), principalFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// UpdateStatus godoc
// @Summary Approve or reject a pending class
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body models.ClassStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes/{id}/status [patch]
func (h *ClassHandler) UpdateStatus(c *gin.Context) {
	var req models.ClassStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	class, err := h.service.ChangeStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditChanges(c, gin.H{"status": class.Status})
	response.JSON(c, http.StatusOK, class, nil)
}

// UpdateFeedback godoc
// @Summary Attach admin feedback to a class
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body models.ClassFeedbackRequest true "Feedback payload"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/feedback [patch]
func (h *ClassHandler) UpdateFeedback(c *gin.Context) {
	var req models.ClassFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	class, err := h.service.SetFeedback(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditChanges(c, gin.H{"feedback": req.Feedback})
	response.JSON(c, http.StatusOK, class, nil)
}

func classFilterFromQuery(c *gin.Context) models.ClassFilter {
	var filter models.ClassFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Page, filter.PageSize = pageFromQuery(c, "limit")
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}
