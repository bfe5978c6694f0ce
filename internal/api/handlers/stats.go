package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/settleworks/recon-backend/internal/api/dto"
)

// StatsHandler serves aggregate reconciliation statistics.
type StatsHandler struct {
	*Base
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(base *Base) *StatsHandler {
	return &StatsHandler{Base: base}
}

// Get handles GET /api/stats.
func (h *StatsHandler) Get(c *gin.Context) {
	stats, err := h.repo.GetStats(c.Request.Context(), h.scope)
	if err != nil {
		h.logger.Error("Failed to fetch stats", "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}

	c.JSON(http.StatusOK, dto.StatsResponse{
		MerchantScope: h.scope,
		Stats:         *stats,
	})
}
