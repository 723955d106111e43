package fivehundred

import "gametable/pkg/deck"

// Engine is the Five Hundred rules engine's public entry point: the only
// thing internal/tableagg and internal/tablemanager depend on from this
// package. shuffler is injected so deals are reproducible in tests
// (pkg/rng.System implements deck.Shuffler).
type Engine struct {
	Shuffler deck.Shuffler
}

// NewEngine wires a rules engine against the given shuffler.
func NewEngine(shuffler deck.Shuffler) Engine {
	return Engine{Shuffler: shuffler}
}

// StartGame builds the pre-deal state for takenSeats and immediately
// processes a StartGameCommand, returning the dealt state and the events
// that produced it (starting at seq number 1).
func (e Engine) StartGame(takenSeats []Seat, cfg GameConfig) (Game, []Event, error) {
	game := NewGame(takenSeats, cfg)
	return ProcessCommand(game, e.Shuffler, StartGameCommand{}, 1)
}

// ProcessCommand validates and applies cmd against game, assigning seq
// numbers to produced events starting at nextSeq.
func (e Engine) ProcessCommand(game Game, cmd Command, nextSeq int) (Game, []Event, error) {
	return ProcessCommand(game, e.Shuffler, cmd, nextSeq)
}

// RestoreGameState replays a recorded event log onto a fresh pre-deal state,
// reconstructing the authoritative state at the log's tail (spec §4.7's
// replay contract). Events must be in ascending SeqNumber order starting
// from 1 with no gaps; a mismatch is an InternalError.
func (e Engine) RestoreGameState(takenSeats []Seat, cfg GameConfig, events []Event) (Game, error) {
	game := NewGame(takenSeats, cfg)
	for _, event := range events {
		if event.SeqNumber() != game.EventNumber+1 {
			return game, &InternalError{Reason: "event_number_mismatch"}
		}
		next, err := ApplyEvent(game, e.Shuffler, event)
		if err != nil {
			return game, err
		}
		game = next
	}
	return game, nil
}
