package dto

import "github.com/settleworks/recon-backend/internal/domain/recon"

// ReconcileRequest is the body of POST /api/reconcile.
// Claims without an ID are assigned one server-side.
type ReconcileRequest struct {
	Claims []recon.RefundClaim `json:"claims"`
	// LogAllAttempts emits audit records for successful matches.
	LogAllAttempts bool `json:"log_all_attempts"`
	// DryRun skips persisting claim outcomes.
	DryRun bool `json:"dry_run"`
}
