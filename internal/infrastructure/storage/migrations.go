package storage

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a database schema migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// allMigrations defines all migrations in order
var allMigrations = []Migration{
	{
		Version: 1,
		Name:    "create_orders_table",
		Up:      migration001CreateOrdersTable,
	},
	{
		Version: 2,
		Name:    "create_claim_results_table",
		Up:      migration002CreateClaimResultsTable,
	},
	{
		Version: 3,
		Name:    "create_match_audit_table",
		Up:      migration003CreateMatchAuditTable,
	},
}

// runMigrations executes all pending migrations
func (s *Storage) runMigrations() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range allMigrations {
		if applied[migration.Version] {
			continue
		}

		log.Printf("Running migration %d: %s", migration.Version, migration.Name)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		if _, err := tx.Exec(
			`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`,
			migration.Version, migration.Name,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

func (s *Storage) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

func (s *Storage) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func migration001CreateOrdersTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		merchant_scope TEXT NOT NULL,
		order_number TEXT NOT NULL,
		order_number_normalized TEXT NOT NULL,
		order_date TEXT NOT NULL,
		total TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(merchant_scope, order_number)
	)`)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`
	CREATE INDEX idx_orders_scope_normalized
	ON orders(merchant_scope, order_number_normalized)`); err != nil {
		return err
	}

	_, err = tx.Exec(`
	CREATE INDEX idx_orders_scope_date
	ON orders(merchant_scope, order_date)`)
	return err
}

func migration002CreateClaimResultsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE claim_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		merchant_scope TEXT NOT NULL,
		run_id TEXT NOT NULL,
		claim_id TEXT NOT NULL,
		platform TEXT,
		order_ref_id TEXT,
		transaction_date TEXT,
		amount_deducted TEXT,
		matched INTEGER NOT NULL,
		order_id INTEGER,
		confidence REAL NOT NULL,
		method TEXT NOT NULL,
		reasoning TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
	CREATE INDEX idx_claim_results_scope
	ON claim_results(merchant_scope, created_at)`)
	return err
}

func migration003CreateMatchAuditTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE match_audit (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		claim_id TEXT NOT NULL,
		order_id INTEGER,
		match_score REAL NOT NULL,
		method TEXT NOT NULL,
		reasoning TEXT NOT NULL,
		metadata_json TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
	CREATE INDEX idx_match_audit_run
	ON match_audit(run_id)`)
	return err
}
