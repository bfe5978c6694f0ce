package storage

import (
	"context"
	"time"

	"github.com/settleworks/recon-backend/internal/domain/recon"
)

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, PostgreSQL, etc.)
// and makes testing with mocks straightforward.
type Repository interface {
	OrderLedger
	ClaimStore
	AuditLog
	Close() error
}

// OrderLedger is the merchant order ledger. It satisfies
// recon.OrderRepository; every query is restricted to one merchant
// scope.
type OrderLedger interface {
	// FindByExactReference looks up an order by reference, ignoring
	// case and formatting. Returns nil when nothing matches.
	FindByExactReference(ctx context.Context, scope, reference string) (*recon.OrderRecord, error)

	// FindByDateRange returns up to limit orders dated within
	// [start, end], newest first.
	FindByDateRange(ctx context.Context, scope string, start, end time.Time, limit int) ([]recon.OrderRecord, error)

	// SaveOrder inserts or updates one ledger order.
	SaveOrder(ctx context.Context, scope string, order *recon.OrderRecord) error
}

// ClaimStore persists claim match outcomes, the durable trail of each
// reconciliation run.
type ClaimStore interface {
	// SaveClaimResult stores the outcome of matching one claim.
	SaveClaimResult(ctx context.Context, scope, runID string, item recon.BatchItem) error

	// ListClaimResults returns stored outcomes matching the filters,
	// newest first.
	ListClaimResults(ctx context.Context, scope string, filters ClaimFilters) ([]ClaimOutcome, error)

	// GetStats returns aggregate reconciliation statistics.
	GetStats(ctx context.Context, scope string) (*Stats, error)
}

// AuditLog is the append-only per-match audit trail. It satisfies
// recon.AuditSink.
type AuditLog interface {
	// RecordMatchAttempt appends one audit record.
	RecordMatchAttempt(ctx context.Context, entry recon.AuditEntry) error

	// ListMatchAudit returns audit records for a run, newest first.
	ListMatchAudit(ctx context.Context, runID string, limit int) ([]MatchAudit, error)
}

// ClaimFilters defines filters for listing claim outcomes
type ClaimFilters struct {
	Method string // Filter by match method (empty = all)
	RunID  string // Filter by batch run (empty = all)
	Limit  int    // Max results (0 = default 50)
	Offset int    // Pagination offset
}
