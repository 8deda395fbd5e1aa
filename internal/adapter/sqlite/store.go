// Package sqlite exports enriched hex tables to a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/tent-hex-enrichment/internal/domain"
)

const tableName = "enriched_hexes"

// Store replaces the enriched_hexes table on every publish and appends the
// run to export_runs. It implements pipeline.Sink.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite export path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS export_runs (
		run_id TEXT PRIMARY KEY,
		resolution INTEGER NOT NULL,
		ring INTEGER NOT NULL,
		row_count INTEGER NOT NULL
	)`); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create export_runs: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Name() string { return "sqlite" }

// Publish rewrites enriched_hexes with tbl in a single transaction.
func (s *Store) Publish(ctx context.Context, info domain.RunInfo, tbl domain.EnrichedTable) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	cols := tbl.CountColumns()

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin export: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+tableName); err != nil {
		return fmt.Errorf("drop %s: %w", tableName, err)
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(cols)); err != nil {
		return fmt.Errorf("create %s: %w", tableName, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(cols))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, 0, 5+len(cols))
	for _, row := range tbl.Rows {
		args = append(args[:0], string(row.ID), row.Center.Lat, row.Center.Lon, row.TentStatus)
		for _, n := range row.Counts {
			args = append(args, n)
		}
		args = append(args, info.ID)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert %s: %w", row.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO export_runs (run_id, resolution, ring, row_count) VALUES (?, ?, ?, ?)`,
		info.ID, info.Resolution, info.Ring, len(tbl.Rows),
	); err != nil {
		return fmt.Errorf("record export run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit export: %w", err)
	}
	return nil
}

// CountRows returns the number of rows currently in enriched_hexes.
func (s *Store) CountRows(ctx context.Context) (int, error) {
	var n int
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+tableName).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", tableName, err)
	}
	return n, nil
}

// Count column names come from validated catalogue prefixes, so they are
// safe to interpolate.
func createTableSQL(cols []string) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE " + tableName + " (\n")
	b.WriteString("\th3_id TEXT PRIMARY KEY,\n\tcenter_lat REAL NOT NULL,\n\tcenter_lon REAL NOT NULL,\n\ttent_status INTEGER NOT NULL,\n")
	for _, c := range cols {
		fmt.Fprintf(&b, "\t%q INTEGER NOT NULL DEFAULT 0,\n", c)
	}
	b.WriteString("\trun_id TEXT NOT NULL\n)")
	return b.String()
}

func insertSQL(cols []string) string {
	names := []string{"h3_id", "center_lat", "center_lon", "tent_status"}
	for _, c := range cols {
		names = append(names, fmt.Sprintf("%q", c))
	}
	names = append(names, "run_id")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		tableName, strings.Join(names, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", "))
}
