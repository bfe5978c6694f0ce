package recon

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// batchFixture returns a repo with a few known orders plus claims that
// exercise every method: exact, fuzzy, fallback, unmatched.
func batchFixture() (*stubRepo, []RefundClaim) {
	repo := &stubRepo{orders: []OrderRecord{
		makeOrder(1, "ORD-1001", testNow.AddDate(0, 0, -10), "250.00"),
		makeOrder(2, "ORD-2002", testNow.AddDate(0, 0, -20), "101.00"),
		makeOrder(3, "ORD-3003", testNow.AddDate(0, 0, -40), "55.50"),
	}}

	claims := []RefundClaim{
		{ID: "exact", OrderRefID: "ord1001"},
		{ID: "fuzzy", OrderRefID: "ORD-30O3"},
		{ID: "fallback", TransactionDate: datePtr(testNow.AddDate(0, 0, -18)), AmountDeducted: amountPtr("100.00")},
		{ID: "unmatched", OrderRefID: "ZZZ-0000"},
		{ID: "invalid"},
	}
	return repo, claims
}

func TestMatchBatch_SummaryConsistency(t *testing.T) {
	repo, claims := batchFixture()
	engine := newTestEngine(t, repo, nil)

	batch := engine.MatchBatch(context.Background(), claims, BatchOptions{})

	summary := batch.Summary
	assert.Equal(t, len(claims), summary.Total)
	assert.Equal(t, summary.Total, summary.Matched+summary.Unmatched)

	methodSum := summary.ByMethod[MethodExactOrderID] +
		summary.ByMethod[MethodFuzzyOrderID] +
		summary.ByMethod[MethodDateAmountFallback]
	assert.Equal(t, summary.Matched, methodSum)

	assert.Equal(t, 3, summary.Matched)
	assert.Equal(t, 1, summary.ByMethod[MethodExactOrderID])
	assert.Equal(t, 1, summary.ByMethod[MethodFuzzyOrderID])
	assert.Equal(t, 1, summary.ByMethod[MethodDateAmountFallback])
	assert.Greater(t, summary.AverageConfidence, 0.0)
	assert.LessOrEqual(t, summary.AverageConfidence, 1.0)
	assert.NotEmpty(t, batch.RunID)
}

func TestMatchBatch_InputOrderPreserved(t *testing.T) {
	repo, claims := batchFixture()
	engine := newTestEngine(t, repo, nil)

	batch := engine.MatchBatch(context.Background(), claims, BatchOptions{Workers: 3})

	require.Len(t, batch.Results, len(claims))
	for i, item := range batch.Results {
		assert.Equal(t, claims[i].ID, item.Claim.ID)
	}
}

func TestMatchBatch_IsolatesPerClaimFailures(t *testing.T) {
	repo, claims := batchFixture()
	// Only exact lookups for this one reference blow up
	repo.errOnRef = "ord1001"
	engine := newTestEngine(t, repo, nil)

	batch := engine.MatchBatch(context.Background(), claims, BatchOptions{})

	require.Len(t, batch.Results, len(claims))
	assert.Equal(t, MethodError, batch.Results[0].Result.Method)
	assert.False(t, batch.Results[0].Result.Matched)

	// The rest of the batch is unaffected
	assert.Equal(t, MethodFuzzyOrderID, batch.Results[1].Result.Method)
	assert.Equal(t, MethodDateAmountFallback, batch.Results[2].Result.Method)
	assert.Equal(t, 1, batch.Summary.ByMethod[MethodError])
}

func TestMatchBatch_AuditOnlySuccessfulMatches(t *testing.T) {
	repo, claims := batchFixture()
	sink := &stubSink{}
	engine := newTestEngine(t, repo, sink)

	batch := engine.MatchBatch(context.Background(), claims, BatchOptions{LogAllAttempts: true})

	entries := sink.recorded()
	assert.Len(t, entries, batch.Summary.Matched)
	for _, entry := range entries {
		assert.Equal(t, batch.RunID, entry.RunID)
		assert.True(t, entry.Method.Matchable())
		assert.NotNil(t, entry.OrderID)
	}
}

func TestMatchBatch_AuditDisabledByDefault(t *testing.T) {
	repo, claims := batchFixture()
	sink := &stubSink{}
	engine := newTestEngine(t, repo, sink)

	engine.MatchBatch(context.Background(), claims, BatchOptions{})

	assert.Empty(t, sink.recorded())
}

func TestMatchBatch_AuditFailureSwallowed(t *testing.T) {
	repo, claims := batchFixture()
	sink := &stubSink{err: errors.New("disk full")}
	engine := newTestEngine(t, repo, sink)

	batch := engine.MatchBatch(context.Background(), claims, BatchOptions{LogAllAttempts: true})

	// Sink failure must not change any result
	assert.Equal(t, 3, batch.Summary.Matched)
	assert.Len(t, batch.Results, len(claims))
}

func TestMatchBatch_CancelledContext(t *testing.T) {
	repo, claims := batchFixture()
	engine := newTestEngine(t, repo, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := engine.MatchBatch(ctx, claims, BatchOptions{})

	// Nothing was started; the partial summary is still consistent
	assert.Empty(t, batch.Results)
	assert.Equal(t, 0, batch.Summary.Total)
	assert.Equal(t, batch.Summary.Total, batch.Summary.Matched+batch.Summary.Unmatched)
}

func TestMatchBatch_EmptyInput(t *testing.T) {
	engine := newTestEngine(t, &stubRepo{}, nil)

	batch := engine.MatchBatch(context.Background(), nil, BatchOptions{})

	assert.Empty(t, batch.Results)
	assert.Equal(t, 0, batch.Summary.Total)
	assert.Equal(t, 0.0, batch.Summary.AverageConfidence)
}
