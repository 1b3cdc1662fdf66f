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

type userService interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error)
	SaveProfile(ctx context.Context, email string, req models.ProfileRequest) (*models.User, error)
	Role(ctx context.Context, email string) (*models.RoleView, error)
	ChangeRole(ctx context.Context, id string, req models.RoleChangeRequest) (*models.User, error)
}

// UserHandler handles user profile and role endpoints.
type UserHandler struct {
	service userService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// List godoc
// @Summary List users
// @Description List users with pagination and filtering
// @Tags Users
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param role query string false "Role filter"
// @Param search query string false "Search term"
// @Param sort_by query string false "Sort by"
// @Param sort_order query string false "Sort order"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	var filter models.UserFilter
	filter.Page, filter.PageSize = pageFromQuery(c, "page_size")
	if role := c.Query("role"); role != "" {
		r := models.UserRole(strings.ToLower(role))
		filter.Role = &r
	}
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")

	users, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination)
}

// SaveProfile godoc
// @Summary Create or update a profile
// @Description Stores name and photo for the email. The role is never changed here.
// @Tags Users
// @Accept json
// @Produce json
// @Param email path string true "User email"
// @Param payload body models.ProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Router /users/{email} [put]
func (h *UserHandler) SaveProfile(c *gin.Context) {
	var req models.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	user, err := h.service.SaveProfile(c.Request.Context(), subjectEmail(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Role godoc
// @Summary Get the stored role of a user
// @Tags Users
// @Produce json
// @Param email path string true "User email"
// @Success 200 {object} response.Envelope
// @Router /users/{email}/role [get]
func (h *UserHandler) Role(c *gin.Context) {
	view, err := h.service.Role(c.Request.Context(), subjectEmail(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// ChangeRole godoc
// @Summary Change a user's role
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body models.RoleChangeRequest true "Role payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users/{id}/role [patch]
func (h *UserHandler) ChangeRole(c *gin.Context) {
	var req models.RoleChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	user, err := h.service.ChangeRole(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditChanges(c, gin.H{"email": user.Email, "role": user.Role})
	response.JSON(c, http.StatusOK, user, nil)
}
