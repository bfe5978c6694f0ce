// Package recon implements the fuzzy reconciliation engine that links
// third-party settlement claims back to orders in the merchant ledger.
//
// Delivery platforms report a claimed order reference, a transaction
// date, and a deducted amount, but references are frequently malformed
// or truncated. The engine runs a strategy waterfall per claim:
//
//  1. Exact identifier lookup (confidence 1.0)
//  2. Fuzzy identifier match by normalized edit distance
//  3. Date + amount heuristic fallback (confidence capped)
//
// The first acceptable result wins. The engine only decides which
// order a claim most likely refers to, never whether the refund
// itself is justified.
package recon

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchMethod identifies which strategy produced a match result.
type MatchMethod string

const (
	MethodExactOrderID       MatchMethod = "exact_order_id"
	MethodFuzzyOrderID       MatchMethod = "fuzzy_order_id"
	MethodDateAmountFallback MatchMethod = "date_amount_fallback"
	MethodUnmatched          MatchMethod = "unmatched"
	MethodError              MatchMethod = "error"
)

// Matchable reports whether the method represents a successful match.
func (m MatchMethod) Matchable() bool {
	switch m {
	case MethodExactOrderID, MethodFuzzyOrderID, MethodDateAmountFallback:
		return true
	}
	return false
}

// RefundClaim is a refund or adjustment record reported by an external
// delivery platform. Any of the reference, date, and amount fields may
// be missing; a claim with neither a usable reference nor a
// date+amount pair cannot be matched at all.
type RefundClaim struct {
	ID              string           `json:"id"`
	Platform        string           `json:"platform,omitempty"`
	OrderRefID      string           `json:"order_ref_id,omitempty"`
	TransactionDate *time.Time       `json:"transaction_date,omitempty"`
	AmountDeducted  *decimal.Decimal `json:"amount_deducted,omitempty"`
}

// OrderRecord is a candidate order from the merchant's ledger.
// The ledger is read-only from the engine's point of view.
type OrderRecord struct {
	ID          int64           `json:"id"`
	OrderNumber string          `json:"order_number"`
	OrderDate   time.Time       `json:"order_date"`
	Total       decimal.Decimal `json:"total"`
}

// MatchResult is the outcome of matching a single claim.
//
// Invariants: Confidence is 1.0 exactly when Method is
// MethodExactOrderID, and Matched is false exactly when Method is
// MethodUnmatched or MethodError. Reasoning is always populated.
type MatchResult struct {
	Matched    bool         `json:"matched"`
	OrderID    *int64       `json:"order_id,omitempty"`
	Confidence float64      `json:"confidence"`
	Method     MatchMethod  `json:"method"`
	Order      *OrderRecord `json:"order,omitempty"`
	Reasoning  string       `json:"reasoning"`
}

// BatchItem pairs a match result with the claim that produced it.
// Consumers key off claim identity, not slice position, so the claim
// is always carried alongside its result.
type BatchItem struct {
	Claim  RefundClaim `json:"claim"`
	Result MatchResult `json:"result"`
}

// BatchSummary aggregates a processed batch.
type BatchSummary struct {
	Total     int                 `json:"total"`
	Matched   int                 `json:"matched"`
	Unmatched int                 `json:"unmatched"`
	ByMethod  map[MatchMethod]int `json:"by_method"`
	// AverageConfidence is the mean confidence over matched items
	// only; zero when nothing matched.
	AverageConfidence float64 `json:"average_confidence"`
}

// BatchResult is the full output of MatchBatch. Results preserve the
// input claim order; RunID correlates audit records from one run.
type BatchResult struct {
	RunID   string       `json:"run_id"`
	Results []BatchItem  `json:"results"`
	Summary BatchSummary `json:"summary"`
}
