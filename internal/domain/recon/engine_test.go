package recon

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settleworks/recon-backend/internal/domain/textmatch"
)

// Fixed "now" so the fuzzy search window is stable in tests
var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

// stubRepo is an in-memory order ledger for engine tests.
type stubRepo struct {
	mu     sync.Mutex
	orders []OrderRecord

	// Error injection
	exactErr error
	rangeErr error
	// errOnRef makes only exact lookups for this reference fail,
	// leaving other claims in the same batch unaffected
	errOnRef string

	// looseHit, when set, is returned from every exact lookup to
	// simulate an over-eager repository-side match
	looseHit *OrderRecord

	exactCalls int
	rangeCalls int
}

func (s *stubRepo) FindByExactReference(_ context.Context, _ string, reference string) (*OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exactCalls++

	if s.exactErr != nil {
		return nil, s.exactErr
	}
	if s.errOnRef != "" && reference == s.errOnRef {
		return nil, errors.New("connection reset by peer")
	}
	if s.looseHit != nil {
		return s.looseHit, nil
	}

	norm := textmatch.Normalize(reference)
	for i := range s.orders {
		if textmatch.Normalize(s.orders[i].OrderNumber) == norm {
			order := s.orders[i]
			return &order, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) FindByDateRange(_ context.Context, _ string, start, end time.Time, limit int) ([]OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rangeCalls++

	if s.rangeErr != nil {
		return nil, s.rangeErr
	}

	var out []OrderRecord
	for _, order := range s.orders {
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

// stubSink records audit entries and optionally fails every write.
type stubSink struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error
}

func (s *stubSink) RecordMatchAttempt(_ context.Context, entry AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubSink) recorded() []AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AuditEntry(nil), s.entries...)
}

func newTestEngine(t *testing.T, repo OrderRepository, sink AuditSink) *Engine {
	t.Helper()
	engine, err := NewEngine("branch-42", repo, nil, sink, nil)
	require.NoError(t, err)
	engine.now = func() time.Time { return testNow }
	return engine
}

func makeOrder(id int64, number string, date time.Time, total string) OrderRecord {
	return OrderRecord{
		ID:          id,
		OrderNumber: number,
		OrderDate:   date,
		Total:       decimal.RequireFromString(total),
	}
}

func amountPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func datePtr(t time.Time) *time.Time {
	return &t
}

func TestNewEngine_RequiresScope(t *testing.T) {
	_, err := NewEngine("", &stubRepo{}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoMerchantScope)
}

func TestNewEngine_RequiresRepository(t *testing.T) {
	_, err := NewEngine("branch-42", nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestNewEngine_ThresholdOverride(t *testing.T) {
	custom := DefaultThresholds()
	custom.ModerateMatch = 0.9

	engine, err := NewEngine("branch-42", &stubRepo{}, &custom, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.9, engine.Thresholds().ModerateMatch)
}

func TestMatchOne_ExactMatch(t *testing.T) {
	// Arrange
	repo := &stubRepo{orders: []OrderRecord{
		makeOrder(1, "ORD-1001", testNow.AddDate(0, 0, -3), "250.00"),
	}}
	engine := newTestEngine(t, repo, nil)

	// Act: reference differs only in formatting
	result := engine.MatchOne(context.Background(), RefundClaim{ID: "c1", OrderRefID: "ord1001"})

	// Assert
	assert.True(t, result.Matched)
	assert.Equal(t, MethodExactOrderID, result.Method)
	assert.Equal(t, 1.0, result.Confidence)
	require.NotNil(t, result.OrderID)
	assert.Equal(t, int64(1), *result.OrderID)
	assert.NotEmpty(t, result.Reasoning)
}

func TestMatchOne_ExactVerificationRejectsLooseHit(t *testing.T) {
	// Repository claims a hit whose number does not survive
	// normalized comparison; the engine must not trust it
	loose := makeOrder(9, "ORD-9999", testNow.AddDate(0, 0, -1), "10.00")
	repo := &stubRepo{looseHit: &loose}
	engine := newTestEngine(t, repo, nil)

	result := engine.MatchOne(context.Background(), RefundClaim{ID: "c1", OrderRefID: "ORD-1001"})

	assert.False(t, result.Matched)
	assert.Equal(t, MethodUnmatched, result.Method)
}

func TestMatchOne_FuzzyMatch(t *testing.T) {
	repo := &stubRepo{orders: []OrderRecord{
		makeOrder(1, "ORD-1001", testNow.AddDate(0, 0, -10), "250.00"),
		makeOrder(2, "ORD-5555", testNow.AddDate(0, 0, -12), "80.00"),
	}}
	engine := newTestEngine(t, repo, nil)

	// Letter O where the platform meant a zero
	result := engine.MatchOne(context.Background(), RefundClaim{ID: "c1", OrderRefID: "ORD-10O1"})

	assert.True(t, result.Matched)
	assert.Equal(t, MethodFuzzyOrderID, result.Method)
	assert.InDelta(t, 1.0-1.0/7.0, result.Confidence, 0.0001)
	require.NotNil(t, result.OrderID)
	assert.Equal(t, int64(1), *result.OrderID)
}

func TestMatchOne_FuzzyTieBreakPrefersRecentOrder(t *testing.T) {
	// Both orders are one edit away from the claimed reference;
	// the newer one must win regardless of repository order
	repo := &stubRepo{orders: []OrderRecord{
		makeOrder(1, "ORD-1001", testNow.AddDate(0, 0, -30), "250.00"),
		makeOrder(2, "ORD-1002", testNow.AddDate(0, 0, -5), "250.00"),
	}}
	engine := newTestEngine(t, repo, nil)

	result := engine.MatchOne(context.Background(), RefundClaim{ID: "c1", OrderRefID: "ORD-100X"})

	assert.True(t, result.Matched)
	assert.Equal(t, MethodFuzzyOrderID, result.Method)
	require.NotNil(t, result.OrderID)
	assert.Equal(t, int64(2), *result.OrderID)
}

func TestMatchOne_FuzzyBelowModerate_NoMatch(t *testing.T) {
	repo := &stubRepo{orders: []OrderRecord{
		makeOrder(1, "ORD-1001", testNow.AddDate(0, 0, -10), "250.00"),
	}}
	engine := newTestEngine(t, repo, nil)

	result := engine.MatchOne(context.Background(), RefundClaim{ID: "c1", OrderRefID: "XYZ999"})

	assert.False(t, result.Matched)
	assert.Equal(t, MethodUnmatched, result.Method)
	assert.NotEmpty(t, result.Reasoning)
}

func TestMatchOne_FuzzyIgnoresOrdersOutsideWindow(t *testing.T) {
	repo := &stubRepo{orders: []OrderRecord{
		makeOrder(1, "ORD-1001", testNow.AddDate(0, -6, 0), "250.00"),
	}}
	engine := newTestEngine(t, repo, nil)

	result := engine.MatchOne(context.Background(), RefundClaim{ID: "c1", OrderRefID: "ORD-10O1"})

	assert.False(t, result.Matched)
}

func TestMatchOne_DateAmountFallback(t *testing.T) {
	claimDate := testNow.AddDate(0, 0, -20)
	repo := &stubRepo{orders: []OrderRecord{
		// 1% amount difference, two days after the claimed date
		makeOrder(1, "ORD-7777", claimDate.AddDate(0, 0, 2), "101.00"),
	}}
	engine := newTestEngine(t, repo, nil)

	result := engine.MatchOne(context.Background(), RefundClaim{
		ID:              "c1",
		TransactionDate: datePtr(claimDate),
		AmountDeducted:  amountPtr("100.00"),
	})

	assert.True(t, result.Matched)
	assert.Equal(t, MethodDateAmountFallback, result.Method)
	// dateScore = 1 - 2/7, amountScore = 1 - 0.01/0.05,
	// confidence = (0.6*dateScore + 0.4*amountScore) * 0.8
	assert.InDelta(t, 0.5989, result.Confidence, 0.001)
	assert.LessOrEqual(t, result.Confidence, 0.8)
}

func TestMatchOne_FallbackCapNeverExceeded(t *testing.T) {
	claimDate := testNow.AddDate(0, 0, -20)
	repo := &stubRepo{orders: []OrderRecord{
		// Perfect date and amount: confidence caps at 0.8
		makeOrder(1, "ORD-7777", claimDate, "100.00"),
	}}
	engine := newTestEngine(t, repo, nil)

	result := engine.MatchOne(context.Background(), RefundClaim{
		ID:              "c1",
		TransactionDate: datePtr(claimDate),
		AmountDeducted:  amountPtr("100.00"),
	})

	assert.True(t, result.Matched)
	assert.InDelta(t, 0.8, result.Confidence, 0.0001)
}

func TestMatchOne_FallbackAmountOutsideTolerance(t *testing.T) {
	claimDate := testNow.AddDate(0, 0, -20)
	repo := &stubRepo{orders: []OrderRecord{
		// 10% off, twice the allowed amount tolerance
		makeOrder(1, "ORD-7777", claimDate, "110.00"),
	}}
	engine := newTestEngine(t, repo, nil)

	result := engine.MatchOne(context.Background(), RefundClaim{
		ID:              "c1",
		TransactionDate: datePtr(claimDate),
		AmountDeducted:  amountPtr("100.00"),
	})

	assert.False(t, result.Matched)
	assert.Equal(t, MethodUnmatched, result.Method)
}

func TestMatchOne_InvalidClaim(t *testing.T) {
	engine := newTestEngine(t, &stubRepo{}, nil)

	result := engine.MatchOne(context.Background(), RefundClaim{ID: "c1"})

	assert.False(t, result.Matched)
	assert.Equal(t, MethodUnmatched, result.Method)
	assert.Contains(t, result.Reasoning, "neither")
}

func TestMatchOne_RepositoryError(t *testing.T) {
	repo := &stubRepo{exactErr: errors.New("query timeout")}
	engine := newTestEngine(t, repo, nil)

	result := engine.MatchOne(context.Background(), RefundClaim{ID: "c1", OrderRefID: "ORD-1001"})

	assert.False(t, result.Matched)
	assert.Equal(t, MethodError, result.Method)
	assert.Contains(t, result.Reasoning, "query timeout")
	// A failed exact lookup must not fall through to fuzzy
	assert.Equal(t, 0, repo.rangeCalls)
}

func TestMatchOne_Deterministic(t *testing.T) {
	repo := &stubRepo{orders: []OrderRecord{
		makeOrder(1, "ORD-1001", testNow.AddDate(0, 0, -10), "250.00"),
		makeOrder(2, "ORD-1002", testNow.AddDate(0, 0, -5), "80.00"),
	}}
	engine := newTestEngine(t, repo, nil)
	claim := RefundClaim{ID: "c1", OrderRefID: "ORD-10O1"}

	first := engine.MatchOne(context.Background(), claim)
	second := engine.MatchOne(context.Background(), claim)

	assert.Equal(t, first, second)
}
