// Package storage contains the backend-agnostic sink contract and the
// factory that concrete backends (postgres, mssql, sqlite) register with at
// init time. Callers select a backend by Config.Kind and never import driver
// packages directly.
package storage

import (
	"context"
	"fmt"
	"sync"

	"dbfload/internal/schema"
)

// Config selects and configures a sink backend.
type Config struct {
	// Kind selects the backend: "postgres", "mssql", or "sqlite".
	Kind string
	// DSN is the backend connection string.
	DSN string
	// BatchSize is the number of rows buffered per bulk-load flush.
	// Zero means DefaultBatchSize.
	BatchSize int
}

// DefaultBatchSize is the flush threshold used when Config.BatchSize is zero.
const DefaultBatchSize = 10000

// RowWriter receives the rows of one table load. WriteRow may buffer; Close
// flushes the remainder and returns the total number of rows delivered to
// the database. Close must release the writer's resources even when a
// preceding WriteRow failed; callers invoke it on both paths.
type RowWriter interface {
	WriteRow(ctx context.Context, values []any) error
	Close(ctx context.Context) (int64, error)
}

// Sink is a destination database able to accept a table definition and a
// bulk row load. The text/wire encoding of the bulk load is the backend's
// own contract.
type Sink interface {
	// CreateTable creates table with the given columns if it does not exist.
	CreateTable(ctx context.Context, table string, cols []schema.Column) error
	// Truncate removes all rows from table.
	Truncate(ctx context.Context, table string) error
	// OpenOutput starts a bulk load into table over the named columns.
	OpenOutput(ctx context.Context, table string, columns []string) (RowWriter, error)
	// Close releases the backend connection.
	Close()
}

// Factory constructs a Sink from a Config.
type Factory func(ctx context.Context, cfg Config) (Sink, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs a factory for the given kind. Backend packages call this
// from init().
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = f
}

// New opens the sink selected by cfg.Kind.
func New(ctx context.Context, cfg Config) (Sink, error) {
	regMu.RLock()
	f, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: no backend registered for kind %q", cfg.Kind)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return f(ctx, cfg)
}

// Kinds returns the registered backend kinds, for CLI diagnostics.
func Kinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	return out
}
