package recon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/settleworks/recon-backend/internal/domain/textmatch"
)

// ErrNoMerchantScope is returned by NewEngine when no merchant scope
// is supplied. Every repository query is tenant-scoped; running
// without a scope would leak orders across merchants.
var ErrNoMerchantScope = errors.New("recon: merchant scope is required")

// Engine matches refund claims against one merchant's order ledger.
// It holds no mutable state beyond its immutable thresholds, so a
// single Engine is safe for concurrent use.
type Engine struct {
	scope      string
	repo       OrderRepository
	audit      AuditSink
	thresholds MatchingThresholds
	logger     *slog.Logger

	// now is swappable for tests; the fuzzy window is anchored on it.
	now func() time.Time
}

// NewEngine creates a matching engine for one merchant scope.
// thresholds may be nil to use DefaultThresholds; audit may be nil to
// disable audit writes; logger may be nil to use slog.Default.
func NewEngine(scope string, repo OrderRepository, thresholds *MatchingThresholds, audit AuditSink, logger *slog.Logger) (*Engine, error) {
	if scope == "" {
		return nil, ErrNoMerchantScope
	}
	if repo == nil {
		return nil, errors.New("recon: order repository is required")
	}

	t := DefaultThresholds()
	if thresholds != nil {
		t = *thresholds
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		scope:      scope,
		repo:       repo,
		audit:      audit,
		thresholds: t,
		logger:     logger.With("system", "recon"),
		now:        time.Now,
	}, nil
}

// Thresholds returns the engine's threshold configuration.
func (e *Engine) Thresholds() MatchingThresholds {
	return e.thresholds
}

// MatchOne runs the strategy waterfall for a single claim and always
// returns a populated MatchResult. A repository error at any stage
// short-circuits to a MethodError result rather than falling through:
// a failed query says nothing about match likelihood.
func (e *Engine) MatchOne(ctx context.Context, claim RefundClaim) MatchResult {
	refPresent := textmatch.Normalize(claim.OrderRefID) != ""
	fallbackPossible := claim.TransactionDate != nil && claim.AmountDeducted != nil

	if !refPresent && !fallbackPossible {
		return MatchResult{
			Matched:   false,
			Method:    MethodUnmatched,
			Reasoning: "claim carries neither a usable order reference nor a transaction date and amount",
		}
	}

	if refPresent {
		if result, err := e.matchExact(ctx, claim); err != nil {
			return e.errorResult(claim, err)
		} else if result != nil {
			return *result
		}

		if result, err := e.matchFuzzy(ctx, claim); err != nil {
			return e.errorResult(claim, err)
		} else if result != nil {
			return *result
		}
	}

	if fallbackPossible {
		if result, err := e.matchDateAmount(ctx, claim); err != nil {
			return e.errorResult(claim, err)
		} else if result != nil {
			return *result
		}
	}

	return MatchResult{
		Matched:   false,
		Method:    MethodUnmatched,
		Reasoning: e.unmatchedReasoning(refPresent, fallbackPossible),
	}
}

func (e *Engine) errorResult(claim RefundClaim, err error) MatchResult {
	e.logger.Error("Matching aborted by repository error",
		"claim_id", claim.ID,
		"error", err,
	)
	return MatchResult{
		Matched:   false,
		Method:    MethodError,
		Reasoning: fmt.Sprintf("matching aborted: %v", err),
	}
}

func (e *Engine) unmatchedReasoning(refPresent, fallbackPossible bool) string {
	switch {
	case refPresent && fallbackPossible:
		return "no order matched the reference exactly or fuzzily, and no order fell within the date and amount tolerances"
	case refPresent:
		return "no order matched the reference exactly or fuzzily, and the claim has no date and amount to fall back on"
	default:
		return "no order fell within the date and amount tolerances"
	}
}
