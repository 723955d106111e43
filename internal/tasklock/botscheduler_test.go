package tasklock

import (
	"context"
	"sync"
	"testing"
	"time"

	"gametable/internal/fivehundred"
	"gametable/internal/storage"
	"gametable/internal/tableagg"
)

// fakeTableRepository is a minimal storage.GameTableRepository stand-in:
// only FindMany is exercised by BotScheduler, the rest panic if called.
type fakeTableRepository struct {
	mu     sync.Mutex
	tables []*tableagg.Table
}

func (f *fakeTableRepository) Create(ctx context.Context, table *tableagg.Table) (string, error) {
	panic("not used")
}
func (f *fakeTableRepository) FindByID(ctx context.Context, id string) (*tableagg.Table, error) {
	panic("not used")
}
func (f *fakeTableRepository) Modify(ctx context.Context, id string, fn func(*tableagg.Table) error) (*tableagg.Table, error) {
	panic("not used")
}
func (f *fakeTableRepository) ModifyDuringGameAction(ctx context.Context, id string, fn func(*tableagg.Table) ([]fivehundred.Event, error)) ([]fivehundred.Event, *tableagg.Table, error) {
	panic("not used")
}
func (f *fakeTableRepository) Delete(ctx context.Context, id string) error { panic("not used") }

func (f *fakeTableRepository) FindMany(ctx context.Context, filter storage.TableFilter) ([]*tableagg.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*tableagg.Table
	for _, t := range f.tables {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// fakeTurnTaker records which tables it was asked to advance.
type fakeTurnTaker struct {
	mu       sync.Mutex
	advanced []string
	err      error
}

func (f *fakeTurnTaker) TakeAutomaticTurn(ctx context.Context, tableID, initiatedBy string) ([]fivehundred.Event, *tableagg.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advanced = append(f.advanced, tableID)
	return nil, nil, f.err
}

func botPlayer(seat fivehundred.Seat) tableagg.Player {
	return tableagg.Player{SeatNumber: seat, BotKind: fivehundred.BotStrategyKind("random")}
}

func humanPlayer(seat fivehundred.Seat, userID string) tableagg.Player {
	return tableagg.Player{SeatNumber: seat, UserID: &userID, ScreenName: userID}
}

func TestBotSchedulerTickAdvancesOnlyBotActiveSeats(t *testing.T) {
	botTable := &tableagg.Table{
		ID: "bot-table", OwnerID: "owner", Status: tableagg.StatusInProgress,
		Players: []tableagg.Player{humanPlayer(0, "alice"), botPlayer(1)},
		Game:    fivehundred.Game{ActiveSeat: 1},
	}
	humanTable := &tableagg.Table{
		ID: "human-table", OwnerID: "owner", Status: tableagg.StatusInProgress,
		Players: []tableagg.Player{humanPlayer(0, "alice"), humanPlayer(1, "bob")},
		Game:    fivehundred.Game{ActiveSeat: 1},
	}
	notStarted := &tableagg.Table{
		ID: "fresh-table", OwnerID: "owner", Status: tableagg.StatusNotStarted,
		Players: []tableagg.Player{botPlayer(0)},
	}

	tables := &fakeTableRepository{tables: []*tableagg.Table{botTable, humanTable, notStarted}}
	taker := &fakeTurnTaker{}
	s := NewBotScheduler(tables, taker, time.Minute)

	s.tick(context.Background())

	if len(taker.advanced) != 1 || taker.advanced[0] != "bot-table" {
		t.Fatalf("expected exactly one advance for bot-table, got %v", taker.advanced)
	}
}

func TestBotSchedulerTickToleratesPerTableErrors(t *testing.T) {
	botTable := &tableagg.Table{
		ID: "bot-table", OwnerID: "owner", Status: tableagg.StatusInProgress,
		Players: []tableagg.Player{botPlayer(0)},
		Game:    fivehundred.Game{ActiveSeat: 0},
	}
	tables := &fakeTableRepository{tables: []*tableagg.Table{botTable}}
	taker := &fakeTurnTaker{err: &fivehundred.RulesError{Code: "not_your_turn"}}
	s := NewBotScheduler(tables, taker, time.Minute)

	// Must not panic even though every advance attempt fails.
	s.tick(context.Background())

	if len(taker.advanced) != 1 {
		t.Fatalf("expected one attempted advance, got %v", taker.advanced)
	}
}

func TestBotSchedulerStartStop(t *testing.T) {
	tables := &fakeTableRepository{}
	taker := &fakeTurnTaker{}
	s := NewBotScheduler(tables, taker, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	time.Sleep(5 * time.Millisecond)
	cancel()
	s.Stop()
}
