package fanout

import (
	"testing"

	"gametable/internal/fivehundred"
	"gametable/internal/tableagg"
)

func strPtr(s string) *string { return &s }

func TestToTableDTOProjectsHumanAndBotSeats(t *testing.T) {
	table := &tableagg.Table{
		ID: "t1", GameName: fivehundred.FiveHundred, Status: tableagg.StatusInProgress,
		MinSeats: 3, MaxSeats: 3,
		Players: []tableagg.Player{
			{SeatNumber: 0, ScreenName: "Alice", UserID: strPtr("alice")},
			{SeatNumber: 1, ScreenName: "", BotKind: fivehundred.BotStrategyKind("random")},
		},
	}

	dto := toTableDTO(table)

	if dto.ID != "t1" || dto.Status != "in_progress" || dto.MinSeats != 3 || dto.MaxSeats != 3 {
		t.Fatalf("unexpected table dto: %+v", dto)
	}
	if len(dto.Seats) != 2 {
		t.Fatalf("expected 2 seats, got %d", len(dto.Seats))
	}
	if dto.Seats[0].UserID != "alice" || dto.Seats[0].BotKind != "" {
		t.Fatalf("expected seat 0 to be human alice, got %+v", dto.Seats[0])
	}
	if dto.Seats[1].UserID != "" || dto.Seats[1].BotKind != "random" {
		t.Fatalf("expected seat 1 to be bot random, got %+v", dto.Seats[1])
	}
}

func TestToEventDTOsEncodesSeqAndType(t *testing.T) {
	events := []fivehundred.Event{
		fivehundred.DeckShuffledEvent{Seq: 1},
	}
	dtos := toEventDTOs(events)
	if len(dtos) != 1 {
		t.Fatalf("expected 1 dto, got %d", len(dtos))
	}
	if dtos[0].Type != "deck_shuffled" || dtos[0].Seq != 1 {
		t.Fatalf("unexpected event dto: %+v", dtos[0])
	}
}

func TestPrivateStatesForOnlyIncludesHumanSeats(t *testing.T) {
	table := &tableagg.Table{
		GameName: fivehundred.FiveHundred,
		Players: []tableagg.Player{
			{SeatNumber: 0, UserID: strPtr("alice")},
			{SeatNumber: 1, BotKind: fivehundred.BotStrategyKind("random")},
		},
		Game: fivehundred.NewGame([]fivehundred.Seat{0, 1}, fivehundred.GameConfig{}),
	}

	states := privateStatesFor(table)
	if len(states) != 1 {
		t.Fatalf("expected exactly one human seat's private state, got %d", len(states))
	}
	if _, ok := states["alice"]; !ok {
		t.Fatalf("expected private state keyed by alice's user id, got %+v", states)
	}
}

func TestSeatFromDataParsesOptionalSeatNumber(t *testing.T) {
	if seat := seatFromData(map[string]any{}); seat != nil {
		t.Fatalf("expected nil for missing seat_number, got %v", *seat)
	}
	if seat := seatFromData(map[string]any{"seat_number": "not-a-number"}); seat != nil {
		t.Fatalf("expected nil for non-numeric seat_number, got %v", *seat)
	}
	seat := seatFromData(map[string]any{"seat_number": float64(2)})
	if seat == nil || *seat != fivehundred.Seat(2) {
		t.Fatalf("expected seat 2, got %v", seat)
	}
}
