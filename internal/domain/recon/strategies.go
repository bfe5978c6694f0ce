package recon

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/settleworks/recon-backend/internal/domain/textmatch"
)

// Candidate fetch limits. These bound both result size and similarity
// computation cost per claim.
const (
	fuzzyCandidateLimit    = 1000
	fallbackCandidateLimit = 500
)

// matchExact looks for an order whose number equals the claimed
// reference. The repository lookup is case/format-insensitive, so the
// hit is re-verified with normalized equality before it is trusted.
// Returns (nil, nil) when no order matches.
func (e *Engine) matchExact(ctx context.Context, claim RefundClaim) (*MatchResult, error) {
	order, err := e.repo.FindByExactReference(ctx, e.scope, claim.OrderRefID)
	if err != nil {
		return nil, fmt.Errorf("exact reference lookup: %w", err)
	}
	if order == nil {
		return nil, nil
	}

	if textmatch.Normalize(order.OrderNumber) != textmatch.Normalize(claim.OrderRefID) {
		// Loose repository-side matching returned a false positive
		e.logger.Debug("Discarding loose exact-lookup hit",
			"claim_ref", claim.OrderRefID,
			"order_number", order.OrderNumber,
		)
		return nil, nil
	}

	return &MatchResult{
		Matched:    true,
		OrderID:    &order.ID,
		Confidence: 1.0,
		Method:     MethodExactOrderID,
		Order:      order,
		Reasoning: fmt.Sprintf("reference %q matched order %q exactly",
			claim.OrderRefID, order.OrderNumber),
	}, nil
}

// matchFuzzy scores every recent order against the claimed reference
// by normalized edit distance and keeps the best candidate at or above
// the moderate threshold. Among equal scores the most recent order
// wins, so the outcome never depends on repository return order.
func (e *Engine) matchFuzzy(ctx context.Context, claim RefundClaim) (*MatchResult, error) {
	end := e.now()
	start := end.AddDate(0, -e.thresholds.FuzzySearchWindowMonths, 0)

	candidates, err := e.repo.FindByDateRange(ctx, e.scope, start, end, fuzzyCandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("fuzzy candidate fetch: %w", err)
	}

	type scored struct {
		order      OrderRecord
		similarity float64
	}

	var acceptable []scored
	for _, order := range candidates {
		sim := textmatch.Similarity(claim.OrderRefID, order.OrderNumber)
		if sim >= e.thresholds.ModerateMatch {
			acceptable = append(acceptable, scored{order: order, similarity: sim})
		}
	}
	if len(acceptable) == 0 {
		return nil, nil
	}

	sort.SliceStable(acceptable, func(i, j int) bool {
		if acceptable[i].similarity != acceptable[j].similarity {
			return acceptable[i].similarity > acceptable[j].similarity
		}
		return acceptable[i].order.OrderDate.After(acceptable[j].order.OrderDate)
	})

	best := acceptable[0]
	quality := "moderate"
	if best.similarity >= e.thresholds.StrongMatch {
		quality = "strong"
	}

	return &MatchResult{
		Matched:    true,
		OrderID:    &best.order.ID,
		Confidence: best.similarity,
		Method:     MethodFuzzyOrderID,
		Order:      &best.order,
		Reasoning: fmt.Sprintf("reference %q is a %s fuzzy match for order %q (similarity %.3f)",
			claim.OrderRefID, quality, best.order.OrderNumber, best.similarity),
	}, nil
}

// matchDateAmount is the last-resort heuristic: find an order whose
// total is within the amount tolerance of the deducted amount, dated
// within the tolerance window of the claimed transaction date. Its
// confidence blends both signals and is scaled down so it can never
// rival an identifier-based match.
func (e *Engine) matchDateAmount(ctx context.Context, claim RefundClaim) (*MatchResult, error) {
	claimDate := *claim.TransactionDate
	amount := *claim.AmountDeducted
	if !amount.IsPositive() {
		return nil, nil
	}

	t := e.thresholds
	start := claimDate.AddDate(0, 0, -t.DateToleranceDays)
	end := claimDate.AddDate(0, 0, t.DateToleranceDays)

	candidates, err := e.repo.FindByDateRange(ctx, e.scope, start, end, fallbackCandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("fallback candidate fetch: %w", err)
	}

	var best *OrderRecord
	var bestConfidence, bestDays, bestPct float64
	for i := range candidates {
		order := candidates[i]

		amountDiffPct := order.Total.Sub(amount).Abs().Div(amount).InexactFloat64()
		if amountDiffPct > t.AmountTolerancePercent {
			continue
		}

		daysDiff := math.Abs(order.OrderDate.Sub(claimDate).Hours() / 24)
		dateScore := math.Max(0, 1-daysDiff/float64(t.DateToleranceDays))
		amountScore := math.Max(0, 1-amountDiffPct/t.AmountTolerancePercent)

		confidence := (dateScore*t.FallbackDateWeight + amountScore*t.FallbackAmountWeight) * t.FallbackConfidenceCap
		if confidence < t.WeakMatch {
			continue
		}

		better := confidence > bestConfidence ||
			(confidence == bestConfidence && best != nil && order.OrderDate.After(best.OrderDate))
		if best == nil || better {
			best = &candidates[i]
			bestConfidence = confidence
			bestDays = daysDiff
			bestPct = amountDiffPct
		}
	}
	if best == nil {
		return nil, nil
	}

	return &MatchResult{
		Matched:    true,
		OrderID:    &best.ID,
		Confidence: bestConfidence,
		Method:     MethodDateAmountFallback,
		Order:      best,
		Reasoning: fmt.Sprintf("order %q matched on date and amount: %.1f days apart, amount within %.1f%% (confidence %.3f)",
			best.OrderNumber, bestDays, bestPct*100, bestConfidence),
	}, nil
}
