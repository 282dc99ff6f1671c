package stats

import (
	"sync"
	"testing"
	"time"
)

func TestAccumulatorCounts(t *testing.T) {
	acc := NewAccumulator()
	ts := acc.Table("people")
	ts.AddRead(3)
	ts.AddWritten(2)
	ts.AddErrors(1)
	ts.SetElapsed(1500 * time.Millisecond)

	snap, ok := acc.Snapshot("people")
	if !ok {
		t.Fatal("Snapshot: table missing")
	}
	if snap.Read != 3 || snap.Written != 2 || snap.Errors != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.ElapsedSeconds != 1.5 {
		t.Errorf("elapsed = %v, want 1.5", snap.ElapsedSeconds)
	}
}

func TestSnapshotUnknownTable(t *testing.T) {
	acc := NewAccumulator()
	if _, ok := acc.Snapshot("missing"); ok {
		t.Error("Snapshot reported an unregistered table")
	}
}

func TestTableReturnsSameRecord(t *testing.T) {
	acc := NewAccumulator()
	if acc.Table("t") != acc.Table("t") {
		t.Error("Table returned distinct records for the same name")
	}
}

func TestConcurrentIncrements(t *testing.T) {
	acc := NewAccumulator()
	const (
		workers = 8
		perW    = 1000
	)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			ts := acc.Table("t")
			for j := 0; j < perW; j++ {
				ts.AddRead(1)
				ts.AddWritten(1)
			}
		}()
	}
	wg.Wait()

	snap, _ := acc.Snapshot("t")
	if snap.Read != workers*perW || snap.Written != workers*perW {
		t.Errorf("lost updates: %+v", snap)
	}
}
