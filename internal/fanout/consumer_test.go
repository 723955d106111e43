package fanout

import (
	"encoding/json"
	"testing"

	"gametable/internal/fivehundred"
	"gametable/internal/tableagg"
)

func TestBroadcastGameActionScopesPrivateStateToOwnSeat(t *testing.T) {
	table := &tableagg.Table{
		ID: "t1", GameName: fivehundred.FiveHundred, Status: tableagg.StatusInProgress,
		Players: []tableagg.Player{
			{SeatNumber: 0, UserID: strPtr("alice")},
			{SeatNumber: 1, UserID: strPtr("bob")},
		},
		Game: fivehundred.NewGame([]fivehundred.Seat{0, 1}, fivehundred.GameConfig{}),
	}

	hub := NewHub()
	alice := newTestConsumer("alice")
	bob := newTestConsumer("bob")
	hub.Join("five_hundred", "t1", alice)
	hub.Join("five_hundred", "t1", bob)

	c := &Consumer{hub: hub, gameName: "five_hundred", tableID: "t1"}
	c.broadcastGameAction(nil, table)

	alicePayload := decodeGameActionPayload(t, <-alice.send)
	if len(alicePayload.PrivateGameStates) != 1 {
		t.Fatalf("expected alice to see exactly one private seat, got %d", len(alicePayload.PrivateGameStates))
	}
	if _, ok := alicePayload.PrivateGameStates["alice"]; !ok {
		t.Fatalf("expected alice's payload to contain her own private state, got %+v", alicePayload.PrivateGameStates)
	}
	if _, ok := alicePayload.PrivateGameStates["bob"]; ok {
		t.Fatalf("alice's payload leaked bob's private state: %+v", alicePayload.PrivateGameStates)
	}

	bobPayload := decodeGameActionPayload(t, <-bob.send)
	if len(bobPayload.PrivateGameStates) != 1 {
		t.Fatalf("expected bob to see exactly one private seat, got %d", len(bobPayload.PrivateGameStates))
	}
	if _, ok := bobPayload.PrivateGameStates["bob"]; !ok {
		t.Fatalf("expected bob's payload to contain his own private state, got %+v", bobPayload.PrivateGameStates)
	}
	if _, ok := bobPayload.PrivateGameStates["alice"]; ok {
		t.Fatalf("bob's payload leaked alice's private state: %+v", bobPayload.PrivateGameStates)
	}
}

func decodeGameActionPayload(t *testing.T, raw []byte) gameActionPayload {
	t.Helper()
	var payload gameActionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal game action payload: %v", err)
	}
	return payload
}
