package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/cleanops-client/internal/models"
	"github.com/noah-isme/cleanops-client/pkg/response"
)

type dashboardService interface {
	ActivePeriodStats(ctx context.Context) (*models.DashboardStats, error)
}

// DashboardHandler wires dashboard statistics to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// ActivePeriodStats returns per-status assignment counts of the active period.
func (h *DashboardHandler) ActivePeriodStats(c *gin.Context) {
	stats, err := h.service.ActivePeriodStats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}
