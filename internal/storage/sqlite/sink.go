// Package sqlite implements the storage.Sink contract over database/sql.
// SQLite has no dedicated bulk-load API, so each batch is a prepared INSERT
// executed inside one transaction, which keeps throughput acceptable for
// moderate volumes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // cgo-free SQLite driver

	"dbfload/internal/ddl"
	"dbfload/internal/schema"
	"dbfload/internal/storage"
)

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, fmt.Errorf("sqlite: DSN must not be empty")
		}
		db, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("sqlite: open: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: ping: %w", err)
		}
		return &Sink{db: db, batchSize: cfg.BatchSize}, nil
	})
}

// Sink is a SQLite-backed storage.Sink.
type Sink struct {
	db        *sql.DB
	batchSize int
}

var _ storage.Sink = (*Sink)(nil)

// CreateTable renders and executes CREATE TABLE IF NOT EXISTS.
func (s *Sink) CreateTable(ctx context.Context, table string, cols []schema.Column) error {
	defs := make([]ddl.ColumnDef, len(cols))
	for i, c := range cols {
		defs[i] = ddl.ColumnDef{Name: quoteIdent(c.Name), SQLType: sqlType(c.Kind), Nullable: true}
	}
	stmt, err := ddl.BuildCreateTableSQL(ddl.TableDef{Name: quoteIdent(table), Columns: defs})
	if err != nil {
		return fmt.Errorf("sqlite: render DDL: %w", err)
	}
	stmt = strings.Replace(stmt, "CREATE TABLE ", "CREATE TABLE IF NOT EXISTS ", 1)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("sqlite: create table %s: %w", table, err)
	}
	return nil
}

// Truncate empties the target table. SQLite spells this DELETE FROM.
func (s *Sink) Truncate(ctx context.Context, table string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+quoteIdent(table)); err != nil {
		return fmt.Errorf("sqlite: truncate %s: %w", table, err)
	}
	return nil
}

// OpenOutput starts a batched transactional load into table.
func (s *Sink) OpenOutput(ctx context.Context, table string, columns []string) (storage.RowWriter, error) {
	copyFn := func(ctx context.Context, cols []string, rows [][]any) (int64, error) {
		return s.insertBatch(ctx, table, cols, rows)
	}
	return storage.NewBatchWriter(columns, s.batchSize, copyFn)
}

func (s *Sink) insertBatch(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(columns))
	quoted := make([]string, len(columns))
	for i, c := range columns {
		placeholders[i] = "?"
		quoted[i] = quoteIdent(c)
	}
	stmtSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return inserted, fmt.Errorf("sqlite: insert: %w", err)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("sqlite: commit: %w", err)
	}
	return inserted, nil
}

// Close releases the database handle.
func (s *Sink) Close() { _ = s.db.Close() }

// sqlType maps portable column kinds onto SQLite storage classes. SQLite is
// dynamically typed, so every kind has a home.
func sqlType(k schema.Kind) string {
	switch k {
	case schema.KindBigint, schema.KindBool:
		return "INTEGER"
	case schema.KindDouble:
		return "REAL"
	default:
		return "TEXT"
	}
}

// quoteIdent quotes an identifier with double quotes, escaping embedded ones.
func quoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
