package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/settleworks/recon-backend/internal/domain/recon"
	"github.com/settleworks/recon-backend/internal/infrastructure/config"
	"github.com/settleworks/recon-backend/internal/infrastructure/logging"
	"github.com/settleworks/recon-backend/internal/infrastructure/storage"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Configuration file path")
		claimsFile  = flag.String("claims", "", "JSON file with settlement claims to reconcile")
		scope       = flag.String("scope", "", "Merchant scope (required)")
		workers     = flag.Int("workers", 0, "Concurrent claim workers (0 = config default)")
		dryRun      = flag.Bool("dry-run", false, "Match without persisting outcomes or audit records")
		logAttempts = flag.Bool("log-attempts", true, "Write audit records for successful matches")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	cfg := loadConfig(*configFile)
	if *verbose {
		cfg.Observability.Logging.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, "reconcile")

	if *scope == "" {
		logger.Error("A merchant scope is required (-scope)")
		os.Exit(1)
	}
	if *claimsFile == "" {
		logger.Error("A claims file is required (-claims)")
		os.Exit(1)
	}

	claims, err := loadClaims(*claimsFile)
	if err != nil {
		logger.Error("Failed to load claims", "path", *claimsFile, "error", err)
		os.Exit(1)
	}
	if len(claims) == 0 {
		logger.Warn("Claims file contains no claims, nothing to do")
		return
	}

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var sink recon.AuditSink
	if !*dryRun {
		sink = store
	}

	thresholds := cfg.Matching.Thresholds()
	engine, err := recon.NewEngine(*scope, store, &thresholds, sink, logger)
	if err != nil {
		logger.Error("Failed to construct engine", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	batchWorkers := *workers
	if batchWorkers <= 0 {
		batchWorkers = cfg.Batch.Workers
	}

	batch := engine.MatchBatch(ctx, claims, recon.BatchOptions{
		LogAllAttempts: *logAttempts && !*dryRun,
		Workers:        batchWorkers,
	})

	if !*dryRun {
		// Persist on a fresh context so an interrupted batch still
		// records the outcomes it produced
		persistCtx := context.Background()
		for _, item := range batch.Results {
			if err := store.SaveClaimResult(persistCtx, *scope, batch.RunID, item); err != nil {
				logger.Error("Failed to persist claim outcome",
					"claim_id", item.Claim.ID,
					"error", err,
				)
			}
		}
	}

	printSummary(batch, *dryRun)

	if len(batch.Results) < len(claims) {
		logger.Warn("Batch was interrupted before completion",
			"processed", len(batch.Results),
			"submitted", len(claims),
		)
		os.Exit(1)
	}
}

func loadConfig(path string) *config.Config {
	if path != "" {
		return config.LoadOrEnvWithPath(path)
	}
	return config.LoadOrEnv()
}

// loadClaims reads a JSON array of claims, assigning IDs to claims
// that arrive without one.
func loadClaims(path string) ([]recon.RefundClaim, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var claims []recon.RefundClaim
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, fmt.Errorf("parsing claims: %w", err)
	}

	for i := range claims {
		if claims[i].ID == "" {
			claims[i].ID = uuid.NewString()
		}
	}
	return claims, nil
}

func printSummary(batch recon.BatchResult, dryRun bool) {
	fmt.Println()
	fmt.Printf("Reconciliation run %s", batch.RunID)
	if dryRun {
		fmt.Print(" (dry run)")
	}
	fmt.Println()

	s := batch.Summary
	fmt.Printf("  Claims processed: %d\n", s.Total)
	fmt.Printf("  Matched:          %d\n", s.Matched)
	fmt.Printf("  Unmatched:        %d\n", s.Unmatched)
	if s.Matched > 0 {
		fmt.Printf("  Avg confidence:   %.3f\n", s.AverageConfidence)
	}

	for _, method := range []recon.MatchMethod{
		recon.MethodExactOrderID,
		recon.MethodFuzzyOrderID,
		recon.MethodDateAmountFallback,
		recon.MethodUnmatched,
		recon.MethodError,
	} {
		if count := s.ByMethod[method]; count > 0 {
			fmt.Printf("    %-22s %d\n", method, count)
		}
	}

	for _, item := range batch.Results {
		if item.Result.Method == recon.MethodError {
			fmt.Printf("  ! claim %s: %s\n", item.Claim.ID, item.Result.Reasoning)
		}
	}
}
