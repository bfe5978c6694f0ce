package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/settleworks/recon-backend/internal/domain/recon"
	"github.com/settleworks/recon-backend/internal/domain/textmatch"
)

// MockRepository is an in-memory implementation of Repository for
// testing. It stores all data in maps and slices, making tests fast
// and isolated.
type MockRepository struct {
	mu          sync.Mutex
	orders      map[string][]recon.OrderRecord // Keyed by merchant scope
	outcomes    map[string][]ClaimOutcome      // Keyed by merchant scope
	audit       []MatchAudit
	nextOrderID int64

	// Hooks for test assertions
	FindExactCalled  bool
	FindRangeCalled  bool
	SaveResultCalled bool
	AuditCalled      bool

	// Error injection for testing error paths
	FindExactErr  error
	FindRangeErr  error
	SaveResultErr error
	GetStatsErr   error
	AuditErr      error
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		orders:      make(map[string][]recon.OrderRecord),
		outcomes:    make(map[string][]ClaimOutcome),
		nextOrderID: 1,
	}
}

// Close is a no-op for the mock
func (m *MockRepository) Close() error { return nil }

// SaveOrder stores an order in memory and assigns it an ID
func (m *MockRepository) SaveOrder(_ context.Context, scope string, order *recon.OrderRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if order.ID == 0 {
		order.ID = m.nextOrderID
		m.nextOrderID++
	}
	m.orders[scope] = append(m.orders[scope], *order)
	return nil
}

// FindByExactReference matches on normalized order numbers
func (m *MockRepository) FindByExactReference(_ context.Context, scope, reference string) (*recon.OrderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FindExactCalled = true

	if m.FindExactErr != nil {
		return nil, m.FindExactErr
	}

	normalized := textmatch.Normalize(reference)
	if normalized == "" {
		return nil, nil
	}
	for _, order := range m.orders[scope] {
		if textmatch.Normalize(order.OrderNumber) == normalized {
			found := order
			return &found, nil
		}
	}
	return nil, nil
}

// FindByDateRange filters in memory, newest first
func (m *MockRepository) FindByDateRange(_ context.Context, scope string, start, end time.Time, limit int) ([]recon.OrderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FindRangeCalled = true

	if m.FindRangeErr != nil {
		return nil, m.FindRangeErr
	}

	var out []recon.OrderRecord
	for _, order := range m.orders[scope] {
		if !order.OrderDate.Before(start) && !order.OrderDate.After(end) {
			out = append(out, order)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderDate.After(out[j].OrderDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SaveClaimResult stores one outcome in memory
func (m *MockRepository) SaveClaimResult(_ context.Context, scope, runID string, item recon.BatchItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveResultCalled = true

	if m.SaveResultErr != nil {
		return m.SaveResultErr
	}

	outcome := ClaimOutcome{
		ID:         int64(len(m.outcomes[scope]) + 1),
		RunID:      runID,
		ClaimID:    item.Claim.ID,
		Platform:   item.Claim.Platform,
		OrderRefID: item.Claim.OrderRefID,
		Matched:    item.Result.Matched,
		OrderID:    item.Result.OrderID,
		Confidence: item.Result.Confidence,
		Method:     string(item.Result.Method),
		Reasoning:  item.Result.Reasoning,
		CreatedAt:  time.Now(),
	}
	if item.Claim.TransactionDate != nil {
		d := *item.Claim.TransactionDate
		outcome.TransactionDate = &d
	}
	if item.Claim.AmountDeducted != nil {
		outcome.AmountDeducted = item.Claim.AmountDeducted.String()
	}

	m.outcomes[scope] = append(m.outcomes[scope], outcome)
	return nil
}

// ListClaimResults applies filters over the in-memory outcomes
func (m *MockRepository) ListClaimResults(_ context.Context, scope string, filters ClaimFilters) ([]ClaimOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	var out []ClaimOutcome
	stored := m.outcomes[scope]
	for i := len(stored) - 1; i >= 0; i-- {
		o := stored[i]
		if filters.Method != "" && o.Method != filters.Method {
			continue
		}
		if filters.RunID != "" && o.RunID != filters.RunID {
			continue
		}
		out = append(out, o)
	}

	if filters.Offset < len(out) {
		out = out[filters.Offset:]
	} else {
		out = nil
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetStats aggregates the in-memory outcomes
func (m *MockRepository) GetStats(_ context.Context, scope string) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetStatsErr != nil {
		return nil, m.GetStatsErr
	}

	stats := &Stats{ByMethod: make(map[string]int)}
	var confidenceSum float64
	for _, o := range m.outcomes[scope] {
		stats.TotalClaims++
		stats.ByMethod[o.Method]++
		if o.Matched {
			stats.Matched++
			confidenceSum += o.Confidence
		} else {
			stats.Unmatched++
		}
	}
	if stats.Matched > 0 {
		stats.AverageConfidence = confidenceSum / float64(stats.Matched)
	}
	return stats, nil
}

// RecordMatchAttempt appends one audit record in memory
func (m *MockRepository) RecordMatchAttempt(_ context.Context, entry recon.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AuditCalled = true

	if m.AuditErr != nil {
		return m.AuditErr
	}

	m.audit = append(m.audit, MatchAudit{
		ID:         int64(len(m.audit) + 1),
		RunID:      entry.RunID,
		ClaimID:    entry.ClaimID,
		OrderID:    entry.OrderID,
		MatchScore: entry.MatchScore,
		Method:     string(entry.Method),
		Reasoning:  entry.Reasoning,
		CreatedAt:  time.Now(),
	})
	return nil
}

// ListMatchAudit returns in-memory audit records for a run
func (m *MockRepository) ListMatchAudit(_ context.Context, runID string, limit int) ([]MatchAudit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}

	var out []MatchAudit
	for i := len(m.audit) - 1; i >= 0 && len(out) < limit; i-- {
		if m.audit[i].RunID == runID {
			out = append(out, m.audit[i])
		}
	}
	return out, nil
}
