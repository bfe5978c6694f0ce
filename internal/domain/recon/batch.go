package recon

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// defaultBatchWorkers sizes the worker pool when the caller does not.
// Repository queries are the only blocking points, so this is really a
// cap on concurrent ledger queries.
const defaultBatchWorkers = 4

// BatchOptions controls one MatchBatch invocation.
type BatchOptions struct {
	// LogAllAttempts emits an audit record for every successful match.
	LogAllAttempts bool
	// Workers bounds concurrent claim processing; <= 0 uses the default.
	Workers int
}

// MatchBatch matches every claim independently on a bounded worker
// pool. One claim's failure never aborts the batch; it surfaces as a
// MethodError result for that claim. Results come back in input order.
//
// Cancelling ctx stops the batch between claims: claims not yet
// started are dropped and the summary covers only what was processed,
// so a partial batch is still internally consistent.
func (e *Engine) MatchBatch(ctx context.Context, claims []RefundClaim, opts BatchOptions) BatchResult {
	runID := uuid.NewString()

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultBatchWorkers
	}
	if workers > len(claims) {
		workers = len(claims)
	}

	e.logger.Info("Starting reconciliation batch",
		"run_id", runID,
		"claims", len(claims),
		"workers", workers,
	)

	type indexed struct {
		item BatchItem
		ok   bool
	}
	processed := make([]indexed, len(claims))

	jobs := make(chan int)
	go func() {
		defer close(jobs)
		for i := range claims {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				// Cooperative cancellation between claims
				if ctx.Err() != nil {
					return
				}

				result := e.MatchOne(ctx, claims[idx])
				processed[idx] = indexed{
					item: BatchItem{Claim: claims[idx], Result: result},
					ok:   true,
				}

				if opts.LogAllAttempts && result.Matched {
					e.recordAudit(ctx, runID, claims[idx], result)
				}
			}
		}()
	}
	wg.Wait()

	results := make([]BatchItem, 0, len(claims))
	for _, p := range processed {
		if p.ok {
			results = append(results, p.item)
		}
	}

	summary := summarize(results)
	e.logger.Info("Reconciliation batch finished",
		"run_id", runID,
		"total", summary.Total,
		"matched", summary.Matched,
		"unmatched", summary.Unmatched,
		"avg_confidence", summary.AverageConfidence,
	)

	return BatchResult{RunID: runID, Results: results, Summary: summary}
}

// recordAudit writes one audit record, best effort. A failing sink is
// logged and otherwise ignored; it never alters the match result.
func (e *Engine) recordAudit(ctx context.Context, runID string, claim RefundClaim, result MatchResult) {
	if e.audit == nil {
		return
	}

	entry := AuditEntry{
		RunID:      runID,
		ClaimID:    claim.ID,
		OrderID:    result.OrderID,
		MatchScore: result.Confidence,
		Method:     result.Method,
		Reasoning:  result.Reasoning,
		Metadata: map[string]any{
			"platform":     claim.Platform,
			"order_ref_id": claim.OrderRefID,
		},
	}

	if err := e.audit.RecordMatchAttempt(ctx, entry); err != nil {
		e.logger.Warn("Audit write failed",
			"run_id", runID,
			"claim_id", claim.ID,
			"error", err,
		)
	}
}

func summarize(results []BatchItem) BatchSummary {
	summary := BatchSummary{
		Total:    len(results),
		ByMethod: make(map[MatchMethod]int),
	}

	var confidenceSum float64
	for _, r := range results {
		summary.ByMethod[r.Result.Method]++
		if r.Result.Matched {
			summary.Matched++
			confidenceSum += r.Result.Confidence
		} else {
			summary.Unmatched++
		}
	}

	if summary.Matched > 0 {
		summary.AverageConfidence = confidenceSum / float64(summary.Matched)
	}

	return summary
}
