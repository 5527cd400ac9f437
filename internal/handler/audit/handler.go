package audit

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medifast/claims-api/internal/handler"
	"github.com/medifast/claims-api/internal/middleware"
	"github.com/medifast/claims-api/internal/model"
	"github.com/medifast/claims-api/internal/service/audit"
)

// Handler exposes the transition audit trail for compliance review.
// The trail is append-only; there are no write routes.
type Handler struct {
	svc *audit.Service
}

func NewHandler(svc *audit.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authn *middleware.AuthMiddleware) {
	group := r.Group("/audit")
	{
		group.GET("/claims/:id", authn.RequireStaff(), h.ClaimTrail)
		group.GET("/logs", authn.RequireRoles(model.RoleAdmin), h.ListLogs)
		group.GET("/export", authn.RequireRoles(model.RoleAdmin), h.ExportLogs)
	}
}

// ClaimTrail returns one claim's full audit trail, oldest first, so a
// reviewer can replay every attempted transition in order.
func (h *Handler) ClaimTrail(c *gin.Context) {
	claimID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid claim ID"))
		return
	}

	entries, err := h.svc.ListByClaim(c.Request.Context(), claimID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(entries))
}

func (h *Handler) ListLogs(c *gin.Context) {
	filter, errMsg := bindFilter(c)
	if errMsg != "" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(errMsg))
		return
	}

	entries, total, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewPaginatedResponse(entries, total, filter.Pagination))
}

// ExportLogs streams matching audit entries as CSV for offline
// compliance archives. The full matching set is exported regardless of
// any pagination parameters on the request.
func (h *Handler) ExportLogs(c *gin.Context) {
	filter, errMsg := bindFilter(c)
	if errMsg != "" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(errMsg))
		return
	}
	filter.Page = 1
	filter.PageSize = exportPageSize

	var all []*model.AuditLogEntry
	for {
		entries, _, err := h.svc.List(c.Request.Context(), filter)
		if err != nil {
			handler.RespondError(c, err)
			return
		}
		all = append(all, entries...)
		if len(entries) < filter.PageSize {
			break
		}
		filter.Page++
	}

	filename := fmt.Sprintf("claim_audit_%s.csv", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	writer := csv.NewWriter(c.Writer)
	writer.Write([]string{"ID", "Claim ID", "Actor ID", "Actor Role", "Action", "From Status", "To Status", "Reason", "Created At"})
	for _, entry := range all {
		writer.Write([]string{
			entry.ID.String(),
			entry.ClaimID.String(),
			entry.ActorID.String(),
			string(entry.ActorRole),
			string(entry.Action),
			string(entry.FromStatus),
			string(entry.ToStatus),
			entry.Reason,
			entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	writer.Flush()
}

// exportPageSize matches the repository's maximum page size so the
// export loop advances in full pages.
const exportPageSize = 200

func bindFilter(c *gin.Context) (*model.AuditFilter, string) {
	var filter model.AuditFilter
	if err := c.ShouldBindQuery(&filter.Pagination); err != nil {
		return nil, err.Error()
	}

	if raw := c.Query("claim_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, "invalid claim_id filter"
		}
		filter.ClaimID = id
	}
	if raw := c.Query("actor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, "invalid actor_id filter"
		}
		filter.ActorID = id
	}
	if raw := c.Query("action"); raw != "" {
		action := model.AuditAction(raw)
		switch action {
		case model.AuditActionAttempt, model.AuditActionSuccess, model.AuditActionDeny:
			filter.Action = action
		default:
			return nil, "unknown action filter"
		}
	}
	return &filter, ""
}
