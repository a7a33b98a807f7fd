package user

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/streamledger/vms-api/internal/middleware"
	"github.com/streamledger/vms-api/internal/model"
	userService "github.com/streamledger/vms-api/internal/service/user"
	apperrors "github.com/streamledger/vms-api/pkg/errors"
	"github.com/streamledger/vms-api/pkg/httputil"
)

type Handler struct {
	service userService.Servicer
}

func NewHandler(service userService.Servicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	admin := r.Group("/admin/users", auth.Authenticate(), auth.RequireAdmin())
	{
		admin.POST("", h.CreateUser)
		admin.PUT("/:id", h.UpdateUser)
		admin.DELETE("/:id", h.DeleteUser)
	}

	me := r.Group("/users/me", auth.Authenticate())
	{
		me.PUT("/password", h.UpdatePassword)
		me.DELETE("", h.DeleteSelf)
	}
}

// CreateUser adds a regular member to the admin's organization.
func (h *Handler) CreateUser(c *gin.Context) {
	var req model.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid user request", err))
		return
	}

	admin := middleware.CurrentUser(c)
	created, err := h.service.CreateUser(c.Request.Context(), admin.OrganizationID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, model.NewUserResponse(created, ""))
}

// UpdateUser resets a member's password and/or admin flag.
func (h *Handler) UpdateUser(c *gin.Context) {
	userID, err := parseID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req model.AdminUpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid update request", err))
		return
	}

	admin := middleware.CurrentUser(c)
	if err := h.service.UpdateUser(c.Request.Context(), admin.OrganizationID, userID, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, "user updated")
}

// DeleteUser deactivates a member of the admin's organization.
func (h *Handler) DeleteUser(c *gin.Context) {
	userID, err := parseID(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	admin := middleware.CurrentUser(c)
	if err := h.service.DeactivateUser(c.Request.Context(), admin.OrganizationID, userID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdatePassword changes the caller's own password.
func (h *Handler) UpdatePassword(c *gin.Context) {
	var req model.UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid password request", err))
		return
	}

	user := middleware.CurrentUser(c)
	if err := h.service.UpdatePassword(c.Request.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, "password updated")
}

// DeleteSelf deactivates the caller's own account.
func (h *Handler) DeleteSelf(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.service.DeactivateSelf(c.Request.Context(), user.ID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, apperrors.BadRequest("invalid user ID", err)
	}
	return id, nil
}
