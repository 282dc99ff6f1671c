// Package pipeline runs one DBF-to-sink table transfer: a reader task and a
// writer task joined by a bounded row queue, with per-table statistics and
// deterministic teardown on failure of either side.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"dbfload/internal/dbf"
	"dbfload/internal/metrics"
	"dbfload/internal/schema"
	"dbfload/internal/stats"
	"dbfload/internal/storage"
)

// Source is the row source consumed by a transfer. *dbf.Table satisfies it;
// tests substitute in-memory fakes.
type Source interface {
	Fields() []dbf.Field
	RecordCount() int
	// Read returns the next record's raw values and its deleted flag, or
	// io.EOF after the last record.
	Read() (values []string, deleted bool, err error)
	Close() error
}

// Options binds the parameters of one transfer.
type Options struct {
	// Table is the destination table name (possibly schema-qualified).
	Table string
	// CreateTable emits and executes DDL before any row flows.
	CreateTable bool
	// Truncate empties the destination table before loading.
	Truncate bool
	// SkipDeleted drops records carrying the DBF deleted flag instead of
	// transferring them.
	SkipDeleted bool
	// QueueCapacity bounds the rows in flight between reader and writer.
	// Non-positive means DefaultQueueCapacity.
	QueueCapacity int
}

// Summary reports a completed transfer.
type Summary struct {
	Table       string
	RowsRead    int64
	RowsWritten int64
	Elapsed     time.Duration
	// ContentHash is an xxh3 digest over the transformed row stream in
	// write order. Two loads of identical content produce the same hash.
	ContentHash uint64
}

// state tracks the orchestrator's progress through one transfer.
type state int

const (
	stateCreated state = iota
	stateTableReady
	stateRunning
	stateDraining
	stateCompleted
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateCreated:
		return "created"
	case stateTableReady:
		return "table-ready"
	case stateRunning:
		return "running"
	case stateDraining:
		return "draining"
	case stateCompleted:
		return "completed"
	case stateFailed:
		return "failed"
	}
	return "unknown"
}

// Transfer moves every record of src into the destination table. It resolves
// the schema, optionally creates and truncates the table, then runs the
// reader and writer tasks to completion. The first error from either task is
// returned; the peer task is never left blocked.
//
// The accumulator records rows read and written as they happen and the
// elapsed time once both tasks have joined.
func Transfer(ctx context.Context, src Source, sink storage.Sink, acc *stats.Accumulator, opts Options) (Summary, error) {
	fail := func(stage string, err error) (Summary, error) {
		return Summary{Table: opts.Table}, fmt.Errorf("transfer %s: %s: %w", opts.Table, stage, err)
	}

	if opts.Table == "" {
		return fail("options", fmt.Errorf("destination table name required"))
	}

	cols, transforms, resolveErr := schema.Resolve(src.Fields())
	if opts.CreateTable {
		// An unknown column type must never reach DDL.
		if resolveErr != nil {
			return fail("resolve schema", resolveErr)
		}
		if err := sink.CreateTable(ctx, opts.Table, cols); err != nil {
			return fail("create table", err)
		}
	} else if resolveErr != nil {
		// Without DDL the transfer can proceed on raw-text passthrough.
		log.Printf("transfer %s: %v (continuing with text passthrough)", opts.Table, resolveErr)
	}
	if opts.Truncate {
		if err := sink.Truncate(ctx, opts.Table); err != nil {
			return fail("truncate", err)
		}
	}
	st := stateTableReady
	log.Printf("transfer %s: %s: %d columns", opts.Table, st, len(cols))

	ts := acc.Table(opts.Table)
	q := NewRowQueue(opts.QueueCapacity)
	columns := schema.Names(cols)

	var (
		rowsRead    int64
		rowsWritten int64
		contentHash uint64
	)

	st = stateRunning
	log.Printf("transfer %s: %s: %d records declared", opts.Table, st, src.RecordCount())
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)

	// Reader: source records → queue, in file order.
	g.Go(func() error {
		defer q.Close()
		n := src.RecordCount()
		for i := 0; i < n; i++ {
			if err := gctx.Err(); err != nil {
				return err
			}
			row, deleted, err := src.Read()
			if err != nil {
				ts.AddErrors(1)
				return fmt.Errorf("read record %d: %w", i+1, err)
			}
			if deleted && opts.SkipDeleted {
				continue
			}
			if err := q.Push(row); err != nil {
				// The writer failed and aborted the queue; its error is
				// the one worth reporting.
				return nil
			}
			rowsRead++
			ts.AddRead(1)
		}
		log.Printf("transfer %s: %s: %d rows queued", opts.Table, stateDraining, rowsRead)
		return nil
	})

	// Writer: queue → transforms → sink bulk load.
	g.Go(func() error {
		defer q.Fail()
		w, err := sink.OpenOutput(gctx, opts.Table, columns)
		if err != nil {
			ts.AddErrors(1)
			return fmt.Errorf("open output: %w", err)
		}
		h := xxh3.New()
		for {
			row, ok := q.Pop()
			if !ok {
				break
			}
			if len(row) != len(transforms) {
				ts.AddErrors(1)
				// Best-effort release; the shape error is the one reported.
				_, _ = w.Close(gctx)
				return fmt.Errorf("row has %d values, want %d", len(row), len(transforms))
			}
			vals := make([]any, len(row))
			for i, fn := range transforms {
				vals[i] = fn(row[i])
			}
			hashRow(h, vals)
			if err := w.WriteRow(gctx, vals); err != nil {
				ts.AddErrors(1)
				_, _ = w.Close(gctx)
				return fmt.Errorf("write row %d: %w", rowsWritten+1, err)
			}
			rowsWritten++
			ts.AddWritten(1)
		}
		delivered, err := w.Close(gctx)
		if err != nil {
			ts.AddErrors(1)
			return fmt.Errorf("final flush: %w", err)
		}
		if delivered != rowsWritten {
			log.Printf("transfer %s: sink reported %d rows, writer counted %d", opts.Table, delivered, rowsWritten)
		}
		contentHash = h.Sum64()
		return nil
	})

	err := g.Wait()
	elapsed := time.Since(start)
	ts.SetElapsed(elapsed)

	metrics.RecordStep(opts.Table, "transfer", err, elapsed)
	metrics.RecordRows(opts.Table, "read", rowsRead)
	metrics.RecordRows(opts.Table, "written", rowsWritten)

	if err != nil {
		st = stateFailed
		log.Printf("transfer %s: %s after %s: read=%d written=%d err=%v",
			opts.Table, st, elapsed.Truncate(time.Millisecond), rowsRead, rowsWritten, err)
		return Summary{Table: opts.Table, RowsRead: rowsRead, RowsWritten: rowsWritten, Elapsed: elapsed},
			fmt.Errorf("transfer %s: %w", opts.Table, err)
	}

	st = stateCompleted
	log.Printf("transfer %s: %s in %s: read=%d written=%d",
		opts.Table, st, elapsed.Truncate(time.Millisecond), rowsRead, rowsWritten)
	return Summary{
		Table:       opts.Table,
		RowsRead:    rowsRead,
		RowsWritten: rowsWritten,
		Elapsed:     elapsed,
		ContentHash: contentHash,
	}, nil
}

// hashRow folds one transformed row into the running content digest. Values
// are separated by 0x1F and rows by 0x1E so field and row boundaries cannot
// alias.
func hashRow(h *xxh3.Hasher, vals []any) {
	for _, v := range vals {
		if v != nil {
			fmt.Fprint(h, v)
		}
		_, _ = h.Write([]byte{0x1F})
	}
	_, _ = h.Write([]byte{0x1E})
}
