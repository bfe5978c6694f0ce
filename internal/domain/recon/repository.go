package recon

import (
	"context"
	"time"
)

// OrderRepository is the read-only query surface the engine needs from
// the merchant's order ledger. Every query is scoped to one merchant;
// implementations must never return another tenant's orders.
type OrderRepository interface {
	// FindByExactReference looks up an order whose number equals the
	// given reference, ignoring case and formatting. Returns nil when
	// no order matches.
	FindByExactReference(ctx context.Context, scope, reference string) (*OrderRecord, error)

	// FindByDateRange returns up to limit orders with order dates in
	// [start, end], newest first.
	FindByDateRange(ctx context.Context, scope string, start, end time.Time, limit int) ([]OrderRecord, error)
}

// AuditEntry is one per-match audit record.
type AuditEntry struct {
	RunID      string
	ClaimID    string
	OrderID    *int64
	MatchScore float64
	Method     MatchMethod
	Reasoning  string
	Metadata   map[string]any
}

// AuditSink receives best-effort audit records for successful matches.
// Write failures are logged and swallowed by the engine; audit is
// observability, not correctness.
type AuditSink interface {
	RecordMatchAttempt(ctx context.Context, entry AuditEntry) error
}
