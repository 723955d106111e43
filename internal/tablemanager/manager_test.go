package tablemanager

import (
	"context"
	"sync"
	"testing"

	"gametable/internal/fivehundred"
	"gametable/internal/tableagg"
	"gametable/pkg/rng"
)

// memTableRepository is an in-memory stand-in for the Postgres
// implementation, good enough to exercise the manager's row-lock-shaped
// contract (Modify/ModifyDuringGameAction) without a real database.
type memTableRepository struct {
	mu     sync.Mutex
	tables map[string]*tableagg.Table
	nextID int
}

func newMemTableRepository() *memTableRepository {
	return &memTableRepository{tables: make(map[string]*tableagg.Table)}
}

func (r *memTableRepository) Create(ctx context.Context, table *tableagg.Table) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := string(rune('A' + r.nextID))
	table.ID = id
	r.tables[id] = table
	return id, nil
}

func (r *memTableRepository) FindByID(ctx context.Context, id string) (*tableagg.Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[id]
	if !ok {
		return nil, &fivehundred.InternalError{Reason: "table not found: " + id}
	}
	cp := *t
	return &cp, nil
}

func (r *memTableRepository) Modify(ctx context.Context, id string, fn func(*tableagg.Table) error) (*tableagg.Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[id]
	if !ok {
		return nil, &fivehundred.InternalError{Reason: "table not found: " + id}
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *memTableRepository) ModifyDuringGameAction(ctx context.Context, id string, fn func(*tableagg.Table) ([]fivehundred.Event, error)) ([]fivehundred.Event, *tableagg.Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[id]
	if !ok {
		return nil, nil, &fivehundred.InternalError{Reason: "table not found: " + id}
	}
	events, err := fn(t)
	if err != nil {
		return nil, nil, err
	}
	return events, t, nil
}

func (r *memTableRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tables, id)
	return nil
}

// memEventRepository records every event ModifyDuringGameAction produces so
// GetGameStateSnapshot has something to replay.
type memEventRepository struct {
	mu     sync.Mutex
	events map[string][]fivehundred.Event
}

func newMemEventRepository() *memEventRepository {
	return &memEventRepository{events: make(map[string][]fivehundred.Event)}
}

func (r *memEventRepository) append(tableID string, events []fivehundred.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[tableID] = append(r.events[tableID], events...)
}

func (r *memEventRepository) FindMany(ctx context.Context, tableID string, start, end int) ([]fivehundred.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []fivehundred.Event
	for _, e := range r.events[tableID] {
		if e.SeqNumber() >= start && e.SeqNumber() <= end {
			out = append(out, e)
		}
	}
	return out, nil
}

// memSnapshotCache is a no-op cache: GetExactOrNearest always misses, Store
// always succeeds. Good enough to exercise the replay fallback path.
type memSnapshotCache struct{}

func (memSnapshotCache) GetExactOrNearest(ctx context.Context, tableID string, eventNumber int) (*Snapshot, bool, error) {
	return nil, false, nil
}

func (memSnapshotCache) Store(ctx context.Context, tableID string, snapshots []Snapshot) error {
	return nil
}

func newTestManager(t *testing.T) (*TableManager, *memTableRepository, *memEventRepository) {
	t.Helper()
	tables := newMemTableRepository()
	events := newMemEventRepository()
	shuffler, err := rng.NewSystemWithSeed([]byte("deterministic-test-seed-01234567"), nil)
	if err != nil {
		t.Fatalf("rng: %v", err)
	}
	m := New(tables, events, memSnapshotCache{}, shuffler)
	return m, tables, events
}

func TestAddTableAndJoin(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	tableID, err := m.AddTable(ctx, fivehundred.FiveHundred, nil, nil, "owner")
	if err != nil {
		t.Fatalf("add table: %v", err)
	}

	if _, err := m.JoinTable(ctx, tableID, "owner", "Alice", nil); err != nil {
		t.Fatalf("join: %v", err)
	}
	table, err := m.GetTable(ctx, tableID)
	if err != nil {
		t.Fatalf("get table: %v", err)
	}
	if len(table.Players) != 1 {
		t.Fatalf("expected 1 seated player, got %d", len(table.Players))
	}
}

func TestStartGameRejectsNonOwner(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	tableID, _ := m.AddTable(ctx, fivehundred.FiveHundred, nil, nil, "owner")
	if _, _, err := m.StartGame(ctx, tableID, "someone-else"); err == nil {
		t.Fatal("expected rejection: not the table owner")
	}
}

func TestStartGameAppendsEventsAndEntersInProgress(t *testing.T) {
	ctx := context.Background()
	m, _, events := newTestManager(t)

	tableID, _ := m.AddTable(ctx, fivehundred.FiveHundred, nil, nil, "owner")
	for i, name := range []string{"owner", "p2", "p3"} {
		if _, err := m.JoinTable(ctx, tableID, name, name, nil); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}

	produced, table, err := m.StartGame(ctx, tableID, "owner")
	if err != nil {
		t.Fatalf("start game: %v", err)
	}
	if len(produced) == 0 {
		t.Fatal("expected at least one event from dealing")
	}
	events.append(tableID, produced)

	if table.Status != tableagg.StatusInProgress {
		t.Fatalf("expected in_progress, got %v", table.Status)
	}
}

func TestGetGameStateSnapshotReplaysFromEventLog(t *testing.T) {
	ctx := context.Background()
	m, _, events := newTestManager(t)

	tableID, _ := m.AddTable(ctx, fivehundred.FiveHundred, nil, nil, "owner")
	for _, name := range []string{"owner", "p2", "p3"} {
		if _, err := m.JoinTable(ctx, tableID, name, name, nil); err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	produced, table, err := m.StartGame(ctx, tableID, "owner")
	if err != nil {
		t.Fatalf("start game: %v", err)
	}
	events.append(tableID, produced)
	table.Game.ReplaySafeEventNumber = table.Game.EventNumber

	_, err = m.Tables.Modify(ctx, tableID, func(tt *tableagg.Table) error {
		tt.Game.ReplaySafeEventNumber = tt.Game.EventNumber
		return nil
	})
	if err != nil {
		t.Fatalf("bump replay-safe position: %v", err)
	}

	snapshot, err := m.GetGameStateSnapshot(ctx, tableID, table.Game.EventNumber)
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if snapshot.Round.Phase != fivehundred.PhaseBidding {
		t.Fatalf("expected replay to land in bidding phase, got %v", snapshot.Round.Phase)
	}
}

func TestGetGameStateSnapshotRejectsBeyondReplaySafePosition(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)

	tableID, _ := m.AddTable(ctx, fivehundred.FiveHundred, nil, nil, "owner")
	if _, err := m.GetGameStateSnapshot(ctx, tableID, 999); err == nil {
		t.Fatal("expected event_number_too_large rejection")
	}
}
