package organization

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/streamledger/vms-api/internal/middleware"
	"github.com/streamledger/vms-api/internal/model"
	subscriptionService "github.com/streamledger/vms-api/internal/service/subscription"
	apperrors "github.com/streamledger/vms-api/pkg/errors"
	"github.com/streamledger/vms-api/pkg/httputil"
)

type Handler struct {
	service subscriptionService.Servicer
}

func NewHandler(service subscriptionService.Servicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	orgs := r.Group("/organizations")
	{
		orgs.POST("", h.Register)
		orgs.POST("/subscription", auth.Authenticate(), auth.RequireAdmin(), h.UpgradeSubscription)
	}
}

// Register creates an organization with its first admin and a trial
// subscription.
func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid registration request", err))
		return
	}

	org, admin, err := h.service.RegisterOrganization(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, model.NewUserResponse(admin, org.Name))
}

// UpgradeSubscription switches the admin's organization to the paid plan.
func (h *Handler) UpgradeSubscription(c *gin.Context) {
	user := middleware.CurrentUser(c)

	sub, err := h.service.UpgradeToPaid(c.Request.Context(), user.OrganizationID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, sub)
}
