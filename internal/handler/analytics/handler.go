package analytics

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/medifast/claims-api/internal/handler"
	"github.com/medifast/claims-api/internal/middleware"
	"github.com/medifast/claims-api/internal/model"
	"github.com/medifast/claims-api/internal/service/analytics"
)

type Handler struct {
	svc *analytics.Service
}

func NewHandler(svc *analytics.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the reporting endpoints: claim figures for
// staff, account figures for admins.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authn *middleware.AuthMiddleware) {
	group := r.Group("/analytics")
	{
		group.GET("/claims", authn.RequireStaff(), h.ClaimAnalytics)
		group.GET("/users", authn.RequireRoles(model.RoleAdmin), h.UserAnalytics)
	}
}

// ClaimAnalytics reports claim volume for the trailing window.
// ?days=0 widens it to all time; the default is the past 30 days.
func (h *Handler) ClaimAnalytics(c *gin.Context) {
	days := 30
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid days parameter"))
			return
		}
		days = parsed
	}

	stats, err := h.svc.ClaimAnalytics(c.Request.Context(), days)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(stats))
}

func (h *Handler) UserAnalytics(c *gin.Context) {
	stats, err := h.svc.UserAnalytics(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(stats))
}
