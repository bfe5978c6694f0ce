package dto

import (
	"time"

	"github.com/settleworks/recon-backend/internal/domain/recon"
	"github.com/settleworks/recon-backend/internal/infrastructure/storage"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// NewHealthResponse creates a healthy response stamped with the current time.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}
}

// ReconcileResponse is the body of a successful POST /api/reconcile.
type ReconcileResponse struct {
	RunID   string             `json:"run_id"`
	Results []recon.BatchItem  `json:"results"`
	Summary recon.BatchSummary `json:"summary"`
	// Persisted reports whether outcomes were written to storage.
	Persisted bool `json:"persisted"`
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	MerchantScope string        `json:"merchant_scope"`
	Stats         storage.Stats `json:"stats"`
}

// ClaimListResponse is the body of GET /api/claims.
type ClaimListResponse struct {
	Claims []storage.ClaimOutcome `json:"claims"`
	Count  int                    `json:"count"`
}
