package tableagg

import (
	"testing"

	"gametable/internal/fivehundred"
	"gametable/pkg/rng"
)

func newTestTable() *Table {
	rngSystem, err := rng.NewSystemWithSeed([]byte("deterministic-test-seed-01234567"), nil)
	if err != nil {
		panic(err)
	}
	engine := fivehundred.NewEngine(rngSystem)
	return NewTable("t1", "owner", fivehundred.FiveHundred, fivehundred.DefaultGameConfig(), engine)
}

func seatThreePlayers(t *testing.T, table *Table) {
	t.Helper()
	for i := 0; i < 3; i++ {
		userID := string(rune('a' + i))
		if err := table.AddPlayer(&userID, "", nil, ""); err != nil {
			t.Fatalf("add player %d: %v", i, err)
		}
	}
}

func TestAddPlayerRejectsWhenFull(t *testing.T) {
	table := newTestTable()
	seatThreePlayers(t, table)
	extra := "d"
	if err := table.AddPlayer(&extra, "", nil, ""); err == nil {
		t.Fatal("expected an error seating a 4th player at a 3-seat table")
	}
}

func TestStartGameRequiresMinSeats(t *testing.T) {
	table := newTestTable()
	if _, err := table.StartGame(); err == nil {
		t.Fatal("expected an error starting with no players seated")
	}
}

func TestStartGameDealsAndTransitions(t *testing.T) {
	table := newTestTable()
	seatThreePlayers(t, table)

	events, err := table.StartGame()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Status != StatusInProgress {
		t.Fatalf("expected in_progress, got %v", table.Status)
	}
	if len(events) == 0 {
		t.Fatal("expected at least one event from dealing")
	}
}

func TestTakeRegularTurnRejectsWrongUser(t *testing.T) {
	table := newTestTable()
	seatThreePlayers(t, table)
	if _, err := table.StartGame(); err != nil {
		t.Fatalf("start game: %v", err)
	}

	active, err := table.ActivePlayer()
	if err != nil {
		t.Fatalf("active player: %v", err)
	}

	var wrongUser string
	for _, p := range table.Players {
		if p.UserID != nil && *p.UserID != *active.UserID {
			wrongUser = *p.UserID
			break
		}
	}

	_, err = table.TakeRegularTurn(wrongUser, fivehundred.MakeBidCommand{Seat: active.SeatNumber, Bid: 60})
	if err == nil {
		t.Fatal("expected rejection for a turn submitted by the wrong user")
	}
}

func TestTakeAutomaticTurnRejectsWhenActiveSeatIsHuman(t *testing.T) {
	table := newTestTable()
	seatThreePlayers(t, table)
	if _, err := table.StartGame(); err != nil {
		t.Fatalf("start game: %v", err)
	}

	if _, err := table.TakeAutomaticTurn(); err == nil {
		t.Fatal("expected rejection: active seat is a human, not a bot")
	}
}

func TestCancelGameLeavesFinishedTablesAlone(t *testing.T) {
	table := newTestTable()
	table.Status = StatusFinished
	table.CancelGame()
	if table.Status != StatusFinished {
		t.Fatalf("expected finished status to be untouched, got %v", table.Status)
	}
}
