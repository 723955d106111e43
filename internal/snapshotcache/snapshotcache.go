// Package snapshotcache implements the Redis-backed replay cache (C8):
// serialized game states keyed by (tableId, eventNumber), with a per-table
// sorted-set index so the nearest-prior snapshot at or before a requested
// event number can be found in one round trip. Grounded in the same
// SET+index-set shape the original system's game_state_snapshot_repository
// used, narrowed to the single ZSET-per-table index spec §4.7 specifies.
package snapshotcache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"gametable/internal/metrics"
	"gametable/internal/tablemanager"
)

const (
	snapshotPrefix = "game_state_snapshot"
	indexPrefix    = "index:zset:tableId"
	ttl            = 6 * time.Hour
)

// Cache is the Redis-backed implementation of the replay cache contract
// internal/tablemanager drives (tablemanager.SnapshotCache). It reuses
// tablemanager.Snapshot directly rather than declaring its own shape, since
// this package exists solely to implement that interface.
type Cache struct {
	rdb *redis.Client
}

// New wires a snapshot cache against an already-configured Redis client.
func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

func snapshotKey(tableID string, eventNumber int) string {
	return fmt.Sprintf("%s:%s:%d", snapshotPrefix, tableID, eventNumber)
}

func indexKey(tableID string) string {
	return fmt.Sprintf("%s:%s", indexPrefix, tableID)
}

// GetExactOrNearest returns the cached snapshot at exactly eventNumber if
// present; otherwise the highest-eventNumber snapshot at or below it, via
// the table's sorted-set index. Returns (nil, false, nil) on a total miss.
func (c *Cache) GetExactOrNearest(ctx context.Context, tableID string, eventNumber int) (*tablemanager.Snapshot, bool, error) {
	exact, err := c.get(ctx, snapshotKey(tableID, eventNumber))
	if err != nil {
		return nil, false, err
	}
	if exact != nil {
		metrics.RecordSnapshotCacheResult("exact")
		return exact, true, nil
	}

	keys, err := c.rdb.ZRevRangeByScore(ctx, indexKey(tableID), &redis.ZRangeBy{
		Max:    strconv.Itoa(eventNumber),
		Min:    "-inf",
		Offset: 0,
		Count:  1,
	}).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lookup nearest snapshot index for %s: %w", tableID, err)
	}
	if len(keys) == 0 {
		metrics.RecordSnapshotCacheResult("miss")
		return nil, false, nil
	}

	nearest, err := c.get(ctx, keys[0])
	if err != nil {
		return nil, false, err
	}
	metrics.RecordSnapshotCacheResult("nearest")
	return nearest, false, nil
}

func (c *Cache) get(ctx context.Context, key string) (*tablemanager.Snapshot, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", key, err)
	}
	var snap tablemanager.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot %s: %w", key, err)
	}
	return &snap, nil
}

// Store writes a batch of snapshots in a single pipeline: SET with TTL,
// ZADD into the table's index, and a refreshed EXPIRE on the index itself.
func (c *Cache) Store(ctx context.Context, tableID string, snapshots []tablemanager.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	pipe := c.rdb.Pipeline()
	idxKey := indexKey(tableID)
	for _, snap := range snapshots {
		data, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("marshal snapshot for %s@%d: %w", tableID, snap.EventNumber, err)
		}
		key := snapshotKey(tableID, snap.EventNumber)
		pipe.Set(ctx, key, data, ttl)
		pipe.ZAdd(ctx, idxKey, redis.Z{Score: float64(snap.EventNumber), Member: key})
	}
	pipe.Expire(ctx, idxKey, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store snapshots for %s: %w", tableID, err)
	}
	return nil
}
