package fivehundred

import "gametable/pkg/deck"

// Command is a player (or bot, or scheduler) action submitted to the engine.
// Every concrete command additionally carries the seat acting, except
// StartGameCommand and EndGameCommand which are table-level.
type Command interface {
	commandType() string
}

type StartGameCommand struct{}

func (StartGameCommand) commandType() string { return "start_game" }

type MakeBidCommand struct {
	Seat Seat
	Bid  int
}

func (MakeBidCommand) commandType() string { return "make_bid" }

type GiveUpCommand struct {
	Seat Seat
}

func (GiveUpCommand) commandType() string { return "give_up" }

type PassCardsCommand struct {
	Seat           Seat
	CardToNextSeat deck.Card
	CardToPrevSeat deck.Card
}

func (PassCardsCommand) commandType() string { return "pass_cards" }

type PlayCardCommand struct {
	Seat Seat
	Card deck.Card
}

func (PlayCardCommand) commandType() string { return "play_card" }

// EndGameCommand tears a game down outside the normal round-finish path:
// an operator cancellation, or a seat leaving mid-game (abort).
type EndGameCommand struct {
	Reason GameEndingReason
	Seat   *Seat // who to blame, set only when Reason == EndingAborted
}

func (EndGameCommand) commandType() string { return "end_game" }
