package storage

import (
	"context"
	"fmt"
	"log"
	"time"
)

// CopyFn bulk-inserts rows aligned to the columns order and returns the
// number of rows the backend reports as inserted. Backends provide their most
// efficient mechanism: Postgres COPY, MSSQL bulk copy, SQLite transactional
// INSERT.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// BatchWriter buffers rows and flushes them through a CopyFn in batches. It
// is not safe for concurrent use; the pipeline has exactly one writer task.
type BatchWriter struct {
	columns   []string
	batchSize int
	copyFn    CopyFn

	batch       [][]any
	total       int64
	batches     int64
	start       time.Time
	lastFlushTS time.Time
	lastTotal   int64
}

// NewBatchWriter returns a RowWriter flushing every batchSize rows.
func NewBatchWriter(columns []string, batchSize int, copyFn CopyFn) (*BatchWriter, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("storage: batchSize must be > 0")
	}
	if copyFn == nil {
		return nil, fmt.Errorf("storage: copyFn must not be nil")
	}
	now := time.Now()
	return &BatchWriter{
		columns:     columns,
		batchSize:   batchSize,
		copyFn:      copyFn,
		batch:       make([][]any, 0, batchSize),
		start:       now,
		lastFlushTS: now,
	}, nil
}

// WriteRow buffers one row and flushes when the batch is full.
func (w *BatchWriter) WriteRow(ctx context.Context, values []any) error {
	if len(values) != len(w.columns) {
		return fmt.Errorf("storage: row has %d values, want %d", len(values), len(w.columns))
	}
	w.batch = append(w.batch, values)
	if len(w.batch) >= w.batchSize {
		return w.flush(ctx)
	}
	return nil
}

// Close flushes the remaining rows and returns the total inserted.
func (w *BatchWriter) Close(ctx context.Context) (int64, error) {
	if err := w.flush(ctx); err != nil {
		return w.total, err
	}
	return w.total, nil
}

func (w *BatchWriter) flush(ctx context.Context) error {
	if len(w.batch) == 0 {
		return nil
	}
	n, err := w.copyFn(ctx, w.columns, w.batch)
	w.total += n

	// Reuse the allocated slice; keep capacity to avoid churn.
	w.batch = w.batch[:0]

	if err != nil {
		log.Printf("storage: bulk flush failed after=%d total=%d err=%v", n, w.total, err)
		return err
	}

	w.batches++
	now := time.Now()
	sinceLast := now.Sub(w.lastFlushTS)
	rps := float64(0)
	if sinceLast > 0 {
		rps = float64(w.total-w.lastTotal) / sinceLast.Seconds()
	}
	log.Printf(
		"batch #%d: rps=%.0f inserted=%d total_inserted=%d elapsed=%s",
		w.batches,
		rps,
		n,
		w.total,
		now.Sub(w.start).Truncate(time.Millisecond),
	)
	w.lastFlushTS = now
	w.lastTotal = w.total

	return nil
}
