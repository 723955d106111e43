package tasklock

import (
	"context"
	"fmt"
	"log"

	"gametable/internal/fivehundred"
	"gametable/internal/metrics"
	"gametable/internal/tableagg"
)

// locker is the subset of *Lock's behavior Snapshotter depends on, kept
// narrow so tests can exercise the skip/backfill branches without Redis.
type locker interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// snapshotReplayer is the subset of *tablemanager.TableManager Snapshotter
// drives: load the table, then eagerly walk its event log up to a point.
type snapshotReplayer interface {
	GetTable(ctx context.Context, tableID string) (*tableagg.Table, error)
	GetGameStateSnapshot(ctx context.Context, tableID string, eventNumber int) (fivehundred.Game, error)
}

// Snapshotter eagerly materializes every intermediate snapshot of a started
// table up to its replay-safe event number, the background counterpart to
// GetGameStateSnapshot's lazy on-demand replay. Mirrors tasks.py's
// create_all_game_state_snapshots_for_table: lock, check the table has
// started, backfill, release.
type Snapshotter struct {
	lock    locker
	manager snapshotReplayer
}

// NewSnapshotter wires a Snapshotter against its lock and table manager.
func NewSnapshotter(lock locker, manager snapshotReplayer) *Snapshotter {
	return &Snapshotter{lock: lock, manager: manager}
}

func backfillLockKey(tableID string) string {
	return fmt.Sprintf("create_all_game_state_snapshots_for_table:%s", tableID)
}

// BackfillSnapshots replays tableID's event log up to the table's
// replay-safe event number and stores every intermediate snapshot in the
// cache. Skips (without error) if a backfill for this table is already in
// flight, if the table has not started, or if no event is replay-safe yet.
// Safe to call repeatedly — the underlying replay walk is
// itself snapshot-cache aware, so a second run after a partial failure only
// replays the events the first run didn't already cache.
func (s *Snapshotter) BackfillSnapshots(ctx context.Context, tableID string) error {
	lockKey := backfillLockKey(tableID)
	acquired, err := s.lock.Acquire(ctx, lockKey)
	if err != nil {
		return err
	}
	if !acquired {
		log.Printf("tasklock: snapshot backfill for %s already in progress, skipping", tableID)
		return nil
	}
	defer func() {
		if err := s.lock.Release(ctx, lockKey); err != nil {
			log.Printf("tasklock: release backfill lock for %s: %v", tableID, err)
		}
	}()

	table, err := s.manager.GetTable(ctx, tableID)
	if err != nil {
		return err
	}
	if table.Status == tableagg.StatusNotStarted {
		log.Printf("tasklock: table %s has not started, skipping backfill", tableID)
		return nil
	}

	upTo := table.Game.ReplaySafeEventNumber
	if upTo <= 0 {
		return nil
	}
	if _, err := s.manager.GetGameStateSnapshot(ctx, tableID, upTo); err != nil {
		return fmt.Errorf("backfill snapshots for %s up to %d: %w", tableID, upTo, err)
	}
	metrics.RecordSnapshotsBackfilled(string(table.GameName), upTo)
	log.Printf("tasklock: backfilled snapshots for %s through event %d", tableID, upTo)
	return nil
}
