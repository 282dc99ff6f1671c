// Package stats accumulates per-table transfer counters. Reader and writer
// tasks increment their own counters concurrently; every mutation is a single
// atomic word write, so no counter update ever needs a critical section.
package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

// TableStats holds the live counters for one table transfer. Elapsed time is
// written once by the orchestrator after both tasks have joined.
type TableStats struct {
	read          atomic.Int64
	written       atomic.Int64
	errors        atomic.Int64
	elapsedMicros atomic.Int64
}

// AddRead adds delta to the rows-read counter.
func (t *TableStats) AddRead(delta int64) { t.read.Add(delta) }

// AddWritten adds delta to the rows-written counter.
func (t *TableStats) AddWritten(delta int64) { t.written.Add(delta) }

// AddErrors adds delta to the error counter.
func (t *TableStats) AddErrors(delta int64) { t.errors.Add(delta) }

// SetElapsed records the transfer duration.
func (t *TableStats) SetElapsed(d time.Duration) { t.elapsedMicros.Store(d.Microseconds()) }

// Snapshot is a consistent copy of a table's counters, taken after the
// transfer's tasks have finished.
type Snapshot struct {
	Read           int64
	Written        int64
	Errors         int64
	ElapsedSeconds float64
}

// Accumulator is a registry of TableStats keyed by table name. One
// reader/writer pair mutates each key at a time; the registry itself only
// locks on table creation and snapshot.
type Accumulator struct {
	mu     sync.RWMutex
	tables map[string]*TableStats
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{tables: make(map[string]*TableStats)}
}

// Table returns the stats record for name, creating a zeroed one on first
// use.
func (a *Accumulator) Table(name string) *TableStats {
	a.mu.RLock()
	t, ok := a.tables[name]
	a.mu.RUnlock()
	if ok {
		return t
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if t, ok = a.tables[name]; ok {
		return t
	}
	t = &TableStats{}
	a.tables[name] = t
	return t
}

// Snapshot returns a copy of the counters for name. ok is false when the
// table was never registered.
func (a *Accumulator) Snapshot(name string) (Snapshot, bool) {
	a.mu.RLock()
	t, ok := a.tables[name]
	a.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		Read:           t.read.Load(),
		Written:        t.written.Load(),
		Errors:         t.errors.Load(),
		ElapsedSeconds: float64(t.elapsedMicros.Load()) / 1e6,
	}, true
}
