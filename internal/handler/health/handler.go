package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/medifast/claims-api/pkg/messaging"
)

type Handler struct {
	db     *sqlx.DB
	broker messaging.Broker
}

// NewHandler builds the health surface. The broker may be nil when the
// API runs without Redis (notifications then stay queued in the outbox).
func NewHandler(db *sqlx.DB, broker messaging.Broker) *Handler {
	return &Handler{
		db:     db,
		broker: broker,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	checks := gin.H{"database": "UP"}
	healthy := true

	if err := h.db.PingContext(c.Request.Context()); err != nil {
		checks["database"] = "DOWN"
		healthy = false
	}

	if h.broker != nil {
		checks["redis"] = "UP"
		if err := h.broker.Ping(c.Request.Context()); err != nil {
			checks["redis"] = "DOWN"
			healthy = false
		}
	}

	status := http.StatusOK
	overall := "UP"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "DOWN"
	}
	c.JSON(status, gin.H{"status": overall, "checks": checks})
}
