package storage

import "time"

// ClaimOutcome is one stored claim match result.
type ClaimOutcome struct {
	ID              int64      `json:"id"`
	RunID           string     `json:"run_id"`
	ClaimID         string     `json:"claim_id"`
	Platform        string     `json:"platform,omitempty"`
	OrderRefID      string     `json:"order_ref_id,omitempty"`
	TransactionDate *time.Time `json:"transaction_date,omitempty"`
	AmountDeducted  string     `json:"amount_deducted,omitempty"`
	Matched         bool       `json:"matched"`
	OrderID         *int64     `json:"order_id,omitempty"`
	Confidence      float64    `json:"confidence"`
	Method          string     `json:"method"`
	Reasoning       string     `json:"reasoning"`
	CreatedAt       time.Time  `json:"created_at"`
}

// MatchAudit is one append-only audit record.
type MatchAudit struct {
	ID           int64     `json:"id"`
	RunID        string    `json:"run_id"`
	ClaimID      string    `json:"claim_id"`
	OrderID      *int64    `json:"order_id,omitempty"`
	MatchScore   float64   `json:"match_score"`
	Method       string    `json:"method"`
	Reasoning    string    `json:"reasoning"`
	MetadataJSON string    `json:"metadata,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Stats aggregates stored claim outcomes for one merchant scope.
type Stats struct {
	TotalClaims       int            `json:"total_claims"`
	Matched           int            `json:"matched"`
	Unmatched         int            `json:"unmatched"`
	ByMethod          map[string]int `json:"by_method"`
	AverageConfidence float64        `json:"average_confidence"`
}
