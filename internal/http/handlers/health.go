package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cgtbrain/cgt-brain-backend/internal/clients/cch"
	"github.com/cgtbrain/cgt-brain-backend/internal/http/response"
	"github.com/cgtbrain/cgt-brain-backend/internal/store/reports"
)

type HealthHandler struct {
	reports *reports.Store
	cch     *cch.Client
}

func NewHealthHandler(reportStore *reports.Store, cchClient *cch.Client) *HealthHandler {
	return &HealthHandler{reports: reportStore, cch: cchClient}
}

// HealthCheck reports storage reachability. A dead store means the
// service cannot do its job, so it answers 503 rather than 200.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	if err := h.reports.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"status":  "degraded",
			"storage": "disconnected",
			"error":   err.Error(),
		})
		return
	}
	response.OK(c, gin.H{"status": "ok", "storage": "connected"})
}

// CCHHealth probes the CCH verification service.
func (h *HealthHandler) CCHHealth(c *gin.Context) {
	if err := h.cch.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"status":  "unreachable",
			"error":   err.Error(),
		})
		return
	}
	response.OK(c, gin.H{"status": "ok"})
}
