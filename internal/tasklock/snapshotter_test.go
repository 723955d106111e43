package tasklock

import (
	"context"
	"errors"
	"testing"

	"gametable/internal/fivehundred"
	"gametable/internal/tableagg"
)

// fakeLock never contends: Acquire always succeeds, Release always
// succeeds, unless preloaded held is true.
type fakeLock struct {
	held       map[string]bool
	released   []string
	acquireErr error
}

func newFakeLock() *fakeLock {
	return &fakeLock{held: make(map[string]bool)}
}

func (f *fakeLock) Acquire(ctx context.Context, key string) (bool, error) {
	if f.acquireErr != nil {
		return false, f.acquireErr
	}
	if f.held[key] {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func (f *fakeLock) Release(ctx context.Context, key string) error {
	delete(f.held, key)
	f.released = append(f.released, key)
	return nil
}

// fakeReplayer stands in for *tablemanager.TableManager's two methods
// Snapshotter calls.
type fakeReplayer struct {
	table          *tableagg.Table
	replayedUpTo   []int
	getTableErr    error
	getSnapshotErr error
}

func (f *fakeReplayer) GetTable(ctx context.Context, tableID string) (*tableagg.Table, error) {
	if f.getTableErr != nil {
		return nil, f.getTableErr
	}
	return f.table, nil
}

func (f *fakeReplayer) GetGameStateSnapshot(ctx context.Context, tableID string, eventNumber int) (fivehundred.Game, error) {
	f.replayedUpTo = append(f.replayedUpTo, eventNumber)
	if f.getSnapshotErr != nil {
		return fivehundred.Game{}, f.getSnapshotErr
	}
	return fivehundred.Game{}, nil
}

func TestBackfillSnapshotsSkipsNotStartedTable(t *testing.T) {
	lock := newFakeLock()
	replayer := &fakeReplayer{table: &tableagg.Table{ID: "t1", Status: tableagg.StatusNotStarted}}
	s := NewSnapshotter(lock, replayer)

	if err := s.BackfillSnapshots(context.Background(), "t1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(replayer.replayedUpTo) != 0 {
		t.Fatalf("expected no replay for a not-started table, got %v", replayer.replayedUpTo)
	}
	if lock.held[backfillLockKey("t1")] {
		t.Fatal("lock should have been released")
	}
}

func TestBackfillSnapshotsReplaysFinishedTable(t *testing.T) {
	lock := newFakeLock()
	table := &tableagg.Table{ID: "t1", Status: tableagg.StatusFinished}
	table.Game.ReplaySafeEventNumber = 12
	replayer := &fakeReplayer{table: table}
	s := NewSnapshotter(lock, replayer)

	if err := s.BackfillSnapshots(context.Background(), "t1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(replayer.replayedUpTo) != 1 || replayer.replayedUpTo[0] != 12 {
		t.Fatalf("expected a single replay up to 12, got %v", replayer.replayedUpTo)
	}
	if len(lock.released) != 1 {
		t.Fatalf("expected the lock to be released exactly once, got %v", lock.released)
	}
}

func TestBackfillSnapshotsSkipsWhenAlreadyLocked(t *testing.T) {
	lock := newFakeLock()
	lockKey := backfillLockKey("t1")
	lock.held[lockKey] = true
	replayer := &fakeReplayer{table: &tableagg.Table{ID: "t1", Status: tableagg.StatusFinished}}
	s := NewSnapshotter(lock, replayer)

	if err := s.BackfillSnapshots(context.Background(), "t1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(replayer.replayedUpTo) != 0 {
		t.Fatal("expected no replay while the lock is already held")
	}
}

func TestBackfillSnapshotsPropagatesReplayError(t *testing.T) {
	lock := newFakeLock()
	table := &tableagg.Table{ID: "t1", Status: tableagg.StatusFinished}
	table.Game.ReplaySafeEventNumber = 5
	replayer := &fakeReplayer{table: table, getSnapshotErr: errors.New("replay failed")}
	s := NewSnapshotter(lock, replayer)

	if err := s.BackfillSnapshots(context.Background(), "t1"); err == nil {
		t.Fatal("expected the replay error to propagate")
	}
	// Lock must still be released even on failure.
	if len(lock.released) != 1 {
		t.Fatalf("expected lock release on error path, got %v", lock.released)
	}
}
