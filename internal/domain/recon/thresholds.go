package recon

// MatchingThresholds holds the tuning knobs for the strategy chain.
// An engine takes one immutable copy at construction; thresholds are
// never mutated mid-batch.
type MatchingThresholds struct {
	// StrongMatch labels a fuzzy score as high quality in reasoning
	// output. It does not gate acceptance.
	StrongMatch float64
	// ModerateMatch is the minimum similarity a fuzzy identifier
	// match must reach to be accepted.
	ModerateMatch float64
	// WeakMatch is the minimum confidence a date+amount fallback
	// match must reach to be accepted.
	WeakMatch float64
	// DateToleranceDays bounds the fallback search window around the
	// claimed transaction date.
	DateToleranceDays int
	// AmountTolerancePercent is the maximum relative difference
	// between claimed amount and order total for the fallback, as a
	// fraction (0.05 = 5%).
	AmountTolerancePercent float64
	// FuzzySearchWindowMonths bounds how far back the fuzzy strategy
	// fetches candidate orders.
	FuzzySearchWindowMonths int

	// FallbackConfidenceCap scales fallback confidence so it can
	// never reach identifier-match confidence.
	FallbackConfidenceCap float64
	// FallbackDateWeight and FallbackAmountWeight blend the date and
	// amount signals inside the fallback score.
	FallbackDateWeight   float64
	FallbackAmountWeight float64
}

// DefaultThresholds returns the production defaults.
func DefaultThresholds() MatchingThresholds {
	return MatchingThresholds{
		StrongMatch:             0.85,
		ModerateMatch:           0.70,
		WeakMatch:               0.50,
		DateToleranceDays:       7,
		AmountTolerancePercent:  0.05,
		FuzzySearchWindowMonths: 3,
		FallbackConfidenceCap:   0.8,
		FallbackDateWeight:      0.6,
		FallbackAmountWeight:    0.4,
	}
}
