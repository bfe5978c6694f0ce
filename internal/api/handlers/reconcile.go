package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/settleworks/recon-backend/internal/api/dto"
	"github.com/settleworks/recon-backend/internal/domain/recon"
)

// maxClaimsPerRequest bounds one synchronous reconcile call; larger
// batches belong in the CLI.
const maxClaimsPerRequest = 5000

// ReconcileHandler runs reconciliation batches on demand.
type ReconcileHandler struct {
	*Base
	engine  *recon.Engine
	workers int
}

// NewReconcileHandler creates a new reconcile handler.
func NewReconcileHandler(base *Base, engine *recon.Engine, workers int) *ReconcileHandler {
	return &ReconcileHandler{Base: base, engine: engine, workers: workers}
}

// Run handles POST /api/reconcile.
func (h *ReconcileHandler) Run(c *gin.Context) {
	var req dto.ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError("invalid request body: "+err.Error()))
		return
	}
	if len(req.Claims) == 0 {
		c.JSON(http.StatusBadRequest, dto.ValidationError("at least one claim is required"))
		return
	}
	if len(req.Claims) > maxClaimsPerRequest {
		c.JSON(http.StatusBadRequest, dto.ValidationError("too many claims for one request"))
		return
	}

	for i := range req.Claims {
		if req.Claims[i].ID == "" {
			req.Claims[i].ID = uuid.NewString()
		}
	}

	batch := h.engine.MatchBatch(c.Request.Context(), req.Claims, recon.BatchOptions{
		LogAllAttempts: req.LogAllAttempts,
		Workers:        h.workers,
	})

	persisted := false
	if !req.DryRun {
		persisted = true
		for _, item := range batch.Results {
			if err := h.repo.SaveClaimResult(c.Request.Context(), h.scope, batch.RunID, item); err != nil {
				h.logger.Error("Failed to persist claim outcome",
					"run_id", batch.RunID,
					"claim_id", item.Claim.ID,
					"error", err,
				)
				persisted = false
			}
		}
	}

	c.JSON(http.StatusOK, dto.ReconcileResponse{
		RunID:     batch.RunID,
		Results:   batch.Results,
		Summary:   batch.Summary,
		Persisted: persisted,
	})
}
