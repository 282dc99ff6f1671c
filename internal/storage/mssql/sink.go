// Package mssql implements the storage.Sink contract for SQL Server using
// the go-mssqldb bulk copy API over database/sql.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"dbfload/internal/ddl"
	"dbfload/internal/schema"
	"dbfload/internal/storage"
)

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		// Validate the DSN early to fail fast on obvious mistakes.
		if _, err := msdsn.Parse(cfg.DSN); err != nil {
			return nil, fmt.Errorf("mssql: dsn: %w", err)
		}
		db, err := sql.Open("sqlserver", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("mssql: open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("mssql: ping: %w", err)
		}
		return &Sink{db: db, batchSize: cfg.BatchSize}, nil
	})
}

// Sink is a SQL Server-backed storage.Sink.
type Sink struct {
	db        *sql.DB
	batchSize int
}

var _ storage.Sink = (*Sink)(nil)

// CreateTable creates the target table unless it already exists. SQL Server
// has no CREATE TABLE IF NOT EXISTS, so the statement is guarded with an
// OBJECT_ID check.
func (s *Sink) CreateTable(ctx context.Context, table string, cols []schema.Column) error {
	defs := make([]ddl.ColumnDef, len(cols))
	for i, c := range cols {
		t, err := sqlType(c.Kind)
		if err != nil {
			return err
		}
		defs[i] = ddl.ColumnDef{Name: msIdent(c.Name), SQLType: t, Nullable: true}
	}
	stmt, err := ddl.BuildCreateTableSQL(ddl.TableDef{Name: msFQN(table), Columns: defs})
	if err != nil {
		return fmt.Errorf("mssql: render DDL: %w", err)
	}
	guarded := fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\n%s", strings.ReplaceAll(table, "'", "''"), stmt)
	if _, err := s.db.ExecContext(ctx, guarded); err != nil {
		return fmt.Errorf("mssql: create table %s: %w", table, err)
	}
	return nil
}

// Truncate empties the target table.
func (s *Sink) Truncate(ctx context.Context, table string) error {
	if _, err := s.db.ExecContext(ctx, "TRUNCATE TABLE "+msFQN(table)); err != nil {
		return fmt.Errorf("mssql: truncate %s: %w", table, err)
	}
	return nil
}

// OpenOutput starts a batched bulk copy into table. Each flush runs inside
// its own transaction.
func (s *Sink) OpenOutput(ctx context.Context, table string, columns []string) (storage.RowWriter, error) {
	copyFn := func(ctx context.Context, cols []string, rows [][]any) (int64, error) {
		return s.bulkCopy(ctx, table, cols, rows)
	}
	return storage.NewBatchWriter(columns, s.batchSize, copyFn)
}

func (s *Sink) bulkCopy(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mssql: begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(table, mssql.BulkOptions{}, columns...))
	if err != nil {
		rollback()
		return 0, fmt.Errorf("mssql: prepare bulk: %w", err)
	}
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			rollback()
			return 0, fmt.Errorf("mssql: bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx) // flush
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		rollback()
		return 0, fmt.Errorf("mssql: bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		rollback()
		return 0, fmt.Errorf("mssql: rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mssql: commit: %w", err)
	}
	return n, nil
}

// Close releases the connection pool.
func (s *Sink) Close() { _ = s.db.Close() }

// sqlType maps portable column kinds onto SQL Server type names.
func sqlType(k schema.Kind) (string, error) {
	switch k {
	case schema.KindText:
		return "NVARCHAR(MAX)", nil
	case schema.KindBigint:
		return "BIGINT", nil
	case schema.KindDouble:
		return "FLOAT", nil
	case schema.KindBool:
		return "BIT", nil
	case schema.KindDate:
		return "DATE", nil
	}
	return "", fmt.Errorf("mssql: no SQL type for kind %q", k)
}

// msIdent quotes a SQL Server identifier using [brackets], escaping ].
func msIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

// msFQN quotes a possibly schema-qualified name like "dbo.people" to
// "[dbo].[people]".
func msFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = msIdent(p)
	}
	return strings.Join(parts, ".")
}
