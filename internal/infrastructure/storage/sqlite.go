package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/settleworks/recon-backend/internal/domain/recon"
	"github.com/settleworks/recon-backend/internal/domain/textmatch"
)

// Storage provides SQLite database access for the order ledger, claim
// outcomes, and the match audit trail. It implements the Repository
// interface.
type Storage struct {
	db *sql.DB
}

// Compile-time checks: Storage implements Repository, and through it
// the engine's repository and audit contracts.
var (
	_ Repository            = (*Storage)(nil)
	_ recon.OrderRepository = (*Storage)(nil)
	_ recon.AuditSink       = (*Storage)(nil)
)

// Dates are stored as RFC3339 UTC strings so lexical range queries
// line up with chronological order.
const dateFormat = time.RFC3339

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveOrder inserts or updates one ledger order and backfills its ID
func (s *Storage) SaveOrder(ctx context.Context, scope string, order *recon.OrderRecord) error {
	result, err := s.db.ExecContext(ctx, `
	INSERT INTO orders (merchant_scope, order_number, order_number_normalized, order_date, total)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(merchant_scope, order_number) DO UPDATE SET
		order_date = excluded.order_date,
		total = excluded.total
	`,
		scope,
		order.OrderNumber,
		textmatch.Normalize(order.OrderNumber),
		order.OrderDate.UTC().Format(dateFormat),
		order.Total.String(),
	)
	if err != nil {
		return fmt.Errorf("saving order %q: %w", order.OrderNumber, err)
	}

	if id, err := result.LastInsertId(); err == nil && id > 0 {
		order.ID = id
	}
	return nil
}

// FindByExactReference looks up an order whose normalized number
// equals the normalized reference. Formatting and case differences
// never defeat the lookup; truly different references never match.
func (s *Storage) FindByExactReference(ctx context.Context, scope, reference string) (*recon.OrderRecord, error) {
	normalized := textmatch.Normalize(reference)
	if normalized == "" {
		return nil, nil
	}

	row := s.db.QueryRowContext(ctx, `
	SELECT id, order_number, order_date, total
	FROM orders
	WHERE merchant_scope = ? AND order_number_normalized = ?
	LIMIT 1
	`, scope, normalized)

	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("exact reference lookup for %q: %w", reference, err)
	}
	return order, nil
}

// FindByDateRange returns up to limit orders dated within [start, end],
// newest first.
func (s *Storage) FindByDateRange(ctx context.Context, scope string, start, end time.Time, limit int) ([]recon.OrderRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, order_number, order_date, total
	FROM orders
	WHERE merchant_scope = ? AND order_date >= ? AND order_date <= ?
	ORDER BY order_date DESC
	LIMIT ?
	`,
		scope,
		start.UTC().Format(dateFormat),
		end.UTC().Format(dateFormat),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("date range query: %w", err)
	}
	defer rows.Close()

	var orders []recon.OrderRecord
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order row: %w", err)
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

// SaveClaimResult stores the outcome of matching one claim
func (s *Storage) SaveClaimResult(ctx context.Context, scope, runID string, item recon.BatchItem) error {
	var txDate, amount sql.NullString
	if item.Claim.TransactionDate != nil {
		txDate = sql.NullString{String: item.Claim.TransactionDate.UTC().Format(dateFormat), Valid: true}
	}
	if item.Claim.AmountDeducted != nil {
		amount = sql.NullString{String: item.Claim.AmountDeducted.String(), Valid: true}
	}

	var orderID sql.NullInt64
	if item.Result.OrderID != nil {
		orderID = sql.NullInt64{Int64: *item.Result.OrderID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO claim_results
	(merchant_scope, run_id, claim_id, platform, order_ref_id,
	 transaction_date, amount_deducted, matched, order_id, confidence, method, reasoning)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		scope,
		runID,
		item.Claim.ID,
		item.Claim.Platform,
		item.Claim.OrderRefID,
		txDate,
		amount,
		item.Result.Matched,
		orderID,
		item.Result.Confidence,
		string(item.Result.Method),
		item.Result.Reasoning,
	)
	if err != nil {
		return fmt.Errorf("saving claim result %q: %w", item.Claim.ID, err)
	}
	return nil
}

// ListClaimResults returns stored outcomes matching the filters, newest first
func (s *Storage) ListClaimResults(ctx context.Context, scope string, filters ClaimFilters) ([]ClaimOutcome, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
	SELECT id, run_id, claim_id, platform, order_ref_id,
	       transaction_date, amount_deducted, matched, order_id,
	       confidence, method, reasoning, created_at
	FROM claim_results
	WHERE merchant_scope = ?`
	args := []any{scope}

	if filters.Method != "" {
		query += " AND method = ?"
		args = append(args, filters.Method)
	}
	if filters.RunID != "" {
		query += " AND run_id = ?"
		args = append(args, filters.RunID)
	}
	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, filters.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing claim results: %w", err)
	}
	defer rows.Close()

	var outcomes []ClaimOutcome
	for rows.Next() {
		var o ClaimOutcome
		var platform, orderRef, txDate, amount sql.NullString
		var orderID sql.NullInt64

		if err := rows.Scan(
			&o.ID, &o.RunID, &o.ClaimID, &platform, &orderRef,
			&txDate, &amount, &o.Matched, &orderID,
			&o.Confidence, &o.Method, &o.Reasoning, &o.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning claim result row: %w", err)
		}

		o.Platform = platform.String
		o.OrderRefID = orderRef.String
		o.AmountDeducted = amount.String
		if txDate.Valid {
			if parsed, err := time.Parse(dateFormat, txDate.String); err == nil {
				o.TransactionDate = &parsed
			}
		}
		if orderID.Valid {
			o.OrderID = &orderID.Int64
		}

		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// GetStats returns aggregate reconciliation statistics for one scope
func (s *Storage) GetStats(ctx context.Context, scope string) (*Stats, error) {
	stats := &Stats{ByMethod: make(map[string]int)}

	row := s.db.QueryRowContext(ctx, `
	SELECT COUNT(*),
	       COALESCE(SUM(CASE WHEN matched THEN 1 ELSE 0 END), 0),
	       COALESCE(AVG(CASE WHEN matched THEN confidence END), 0)
	FROM claim_results
	WHERE merchant_scope = ?
	`, scope)
	if err := row.Scan(&stats.TotalClaims, &stats.Matched, &stats.AverageConfidence); err != nil {
		return nil, fmt.Errorf("aggregating claim stats: %w", err)
	}
	stats.Unmatched = stats.TotalClaims - stats.Matched

	rows, err := s.db.QueryContext(ctx, `
	SELECT method, COUNT(*)
	FROM claim_results
	WHERE merchant_scope = ?
	GROUP BY method
	`, scope)
	if err != nil {
		return nil, fmt.Errorf("aggregating method counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var method string
		var count int
		if err := rows.Scan(&method, &count); err != nil {
			return nil, err
		}
		stats.ByMethod[method] = count
	}
	return stats, rows.Err()
}

// RecordMatchAttempt appends one audit record
func (s *Storage) RecordMatchAttempt(ctx context.Context, entry recon.AuditEntry) error {
	var orderID sql.NullInt64
	if entry.OrderID != nil {
		orderID = sql.NullInt64{Int64: *entry.OrderID, Valid: true}
	}

	var metadata []byte
	if entry.Metadata != nil {
		metadata, _ = json.Marshal(entry.Metadata)
	}

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO match_audit (run_id, claim_id, order_id, match_score, method, reasoning, metadata_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		entry.RunID,
		entry.ClaimID,
		orderID,
		entry.MatchScore,
		string(entry.Method),
		entry.Reasoning,
		string(metadata),
	)
	if err != nil {
		return fmt.Errorf("recording match audit for claim %q: %w", entry.ClaimID, err)
	}
	return nil
}

// ListMatchAudit returns audit records for a run, newest first
func (s *Storage) ListMatchAudit(ctx context.Context, runID string, limit int) ([]MatchAudit, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT id, run_id, claim_id, order_id, match_score, method, reasoning, metadata_json, created_at
	FROM match_audit
	WHERE run_id = ?
	ORDER BY id DESC
	LIMIT ?
	`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing match audit: %w", err)
	}
	defer rows.Close()

	var entries []MatchAudit
	for rows.Next() {
		var a MatchAudit
		var orderID sql.NullInt64
		var metadata sql.NullString

		if err := rows.Scan(
			&a.ID, &a.RunID, &a.ClaimID, &orderID,
			&a.MatchScore, &a.Method, &a.Reasoning, &metadata, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning audit row: %w", err)
		}

		if orderID.Valid {
			a.OrderID = &orderID.Int64
		}
		a.MetadataJSON = metadata.String

		entries = append(entries, a)
	}
	return entries, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*recon.OrderRecord, error) {
	var order recon.OrderRecord
	var dateStr, totalStr string

	if err := row.Scan(&order.ID, &order.OrderNumber, &dateStr, &totalStr); err != nil {
		return nil, err
	}

	date, err := time.Parse(dateFormat, dateStr)
	if err != nil {
		return nil, fmt.Errorf("parsing order date %q: %w", dateStr, err)
	}
	order.OrderDate = date

	total, err := decimal.NewFromString(totalStr)
	if err != nil {
		return nil, fmt.Errorf("parsing order total %q: %w", totalStr, err)
	}
	order.Total = total

	return &order, nil
}
