// Package postgres implements the storage.Sink contract using pgx v5. Bulk
// loads go through the COPY protocol via pgxpool.CopyFrom, which is the
// fastest path Postgres offers for row streams.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"dbfload/internal/ddl"
	"dbfload/internal/schema"
	"dbfload/internal/storage"
)

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("postgres: pgxpool: %w", err)
		}
		return &Sink{pool: pool, batchSize: cfg.BatchSize}, nil
	})
}

// Sink is a Postgres-backed storage.Sink.
type Sink struct {
	pool      *pgxpool.Pool
	batchSize int
}

var _ storage.Sink = (*Sink)(nil)

// CreateTable renders and executes CREATE TABLE IF NOT EXISTS for the given
// columns.
func (s *Sink) CreateTable(ctx context.Context, table string, cols []schema.Column) error {
	defs := make([]ddl.ColumnDef, len(cols))
	for i, c := range cols {
		t, err := sqlType(c.Kind)
		if err != nil {
			return err
		}
		defs[i] = ddl.ColumnDef{Name: pgIdent(c.Name), SQLType: t, Nullable: true}
	}
	stmt, err := ddl.BuildCreateTableSQL(ddl.TableDef{Name: pgFQN(table), Columns: defs})
	if err != nil {
		return fmt.Errorf("postgres: render DDL: %w", err)
	}
	stmt = strings.Replace(stmt, "CREATE TABLE ", "CREATE TABLE IF NOT EXISTS ", 1)
	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("postgres: create table %s: %w", table, err)
	}
	return nil
}

// Truncate empties the target table.
func (s *Sink) Truncate(ctx context.Context, table string) error {
	if _, err := s.pool.Exec(ctx, "TRUNCATE TABLE "+pgFQN(table)); err != nil {
		return fmt.Errorf("postgres: truncate %s: %w", table, err)
	}
	return nil
}

// OpenOutput starts a batched COPY into table.
func (s *Sink) OpenOutput(ctx context.Context, table string, columns []string) (storage.RowWriter, error) {
	ident := splitFQN(table)
	copyFn := func(ctx context.Context, cols []string, rows [][]any) (int64, error) {
		n, err := s.pool.CopyFrom(ctx, ident, cols, pgx.CopyFromRows(rows))
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Detail != "" {
				return n, fmt.Errorf("postgres: copy: %s (%s)", pgErr.Detail, pgErr.SQLState())
			}
			return n, fmt.Errorf("postgres: copy: %w", err)
		}
		return n, nil
	}
	return storage.NewBatchWriter(columns, s.batchSize, copyFn)
}

// Close releases the pool.
func (s *Sink) Close() { s.pool.Close() }

// sqlType maps portable column kinds onto Postgres type names.
func sqlType(k schema.Kind) (string, error) {
	switch k {
	case schema.KindText:
		return "TEXT", nil
	case schema.KindBigint:
		return "BIGINT", nil
	case schema.KindDouble:
		return "DOUBLE PRECISION", nil
	case schema.KindBool:
		return "BOOLEAN", nil
	case schema.KindDate:
		return "DATE", nil
	}
	return "", fmt.Errorf("postgres: no SQL type for kind %q", k)
}

// pgIdent safely quotes a single identifier segment.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgFQN quotes a possibly schema-qualified name like "public.people" to
// "public"."people".
func pgFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pgIdent(p)
	}
	return strings.Join(parts, ".")
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}
