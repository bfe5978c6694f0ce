package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/settleworks/recon-backend/internal/api/dto"
	"github.com/settleworks/recon-backend/internal/infrastructure/storage"
)

// ClaimsHandler serves stored claim outcomes.
type ClaimsHandler struct {
	*Base
}

// NewClaimsHandler creates a new claims handler.
func NewClaimsHandler(base *Base) *ClaimsHandler {
	return &ClaimsHandler{Base: base}
}

// List handles GET /api/claims - stored claim outcomes, newest first.
func (h *ClaimsHandler) List(c *gin.Context) {
	filters := storage.ClaimFilters{
		Method: c.Query("method"),
		RunID:  c.Query("run_id"),
		Limit:  parseIntQuery(c, "limit", 50),
		Offset: parseIntQuery(c, "offset", 0),
	}

	outcomes, err := h.repo.ListClaimResults(c.Request.Context(), h.scope, filters)
	if err != nil {
		h.logger.Error("Failed to list claim outcomes", "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}

	c.JSON(http.StatusOK, dto.ClaimListResponse{
		Claims: outcomes,
		Count:  len(outcomes),
	})
}
