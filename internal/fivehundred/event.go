package fivehundred

import "gametable/pkg/deck"

// Event is a fact the engine recorded: applying the full, ordered sequence
// of events to the initial state via ApplyEvent deterministically reproduces
// the current Game (spec §4.3's event-sourcing contract). SeqNumber is
// assigned by ProcessCommand, counting up from the starting number its
// caller passes in.
type Event interface {
	eventType() string
	SeqNumber() int
	withSeqNumber(n int) Event
}

type DeckShuffledEvent struct {
	Seq  int
	Deck []deck.Card // full post-shuffle order, so the deal is reproducible
}

func (e DeckShuffledEvent) eventType() string      { return "deck_shuffled" }
func (e DeckShuffledEvent) SeqNumber() int          { return e.Seq }
func (e DeckShuffledEvent) withSeqNumber(n int) Event { e.Seq = n; return e }

type BidMadeEvent struct {
	Seq    int
	Bid    int
	MadeBy Seat
}

func (e BidMadeEvent) eventType() string      { return "bid_made" }
func (e BidMadeEvent) SeqNumber() int          { return e.Seq }
func (e BidMadeEvent) withSeqNumber(n int) Event { e.Seq = n; return e }

// BiddingFinishedEvent closes the bidding phase. Bid/MadeBy are nil if every
// seat passed (no declarer this round).
type BiddingFinishedEvent struct {
	Seq    int
	Bid    *int
	MadeBy *Seat
}

func (e BiddingFinishedEvent) eventType() string      { return "bidding_finished" }
func (e BiddingFinishedEvent) SeqNumber() int          { return e.Seq }
func (e BiddingFinishedEvent) withSeqNumber(n int) Event { e.Seq = n; return e }

type HiddenCardsTakenEvent struct {
	Seq int
}

func (e HiddenCardsTakenEvent) eventType() string      { return "hidden_cards_taken" }
func (e HiddenCardsTakenEvent) SeqNumber() int          { return e.Seq }
func (e HiddenCardsTakenEvent) withSeqNumber(n int) Event { e.Seq = n; return e }

// DeclarerGaveUpEvent records the bid winner forfeiting the round rather
// than playing it out.
type DeclarerGaveUpEvent struct {
	Seq int
}

func (e DeclarerGaveUpEvent) eventType() string      { return "declarer_gave_up" }
func (e DeclarerGaveUpEvent) SeqNumber() int          { return e.Seq }
func (e DeclarerGaveUpEvent) withSeqNumber(n int) Event { e.Seq = n; return e }

type CardsPassedEvent struct {
	Seq            int
	CardToNextSeat deck.Card
	CardToPrevSeat deck.Card
}

func (e CardsPassedEvent) eventType() string      { return "cards_passed" }
func (e CardsPassedEvent) SeqNumber() int          { return e.Seq }
func (e CardsPassedEvent) withSeqNumber(n int) Event { e.Seq = n; return e }

type CardPlayedEvent struct {
	Seq      int
	Card     deck.Card
	PlayedBy Seat
}

func (e CardPlayedEvent) eventType() string      { return "card_played" }
func (e CardPlayedEvent) SeqNumber() int          { return e.Seq }
func (e CardPlayedEvent) withSeqNumber(n int) Event { e.Seq = n; return e }

type MarriagePointsAddedEvent struct {
	Seq     int
	Points  int
	AddedTo Seat
}

func (e MarriagePointsAddedEvent) eventType() string      { return "marriage_points_added" }
func (e MarriagePointsAddedEvent) SeqNumber() int          { return e.Seq }
func (e MarriagePointsAddedEvent) withSeqNumber(n int) Event { e.Seq = n; return e }

type TrickTakenEvent struct {
	Seq     int
	TakenBy Seat
	Cards   []deck.Card
}

func (e TrickTakenEvent) eventType() string      { return "trick_taken" }
func (e TrickTakenEvent) SeqNumber() int          { return e.Seq }
func (e TrickTakenEvent) withSeqNumber(n int) Event { e.Seq = n; return e }

// RoundFinishedEvent marks a round as over. Scoring is recomputed
// deterministically from the round's accumulated trick/marriage points when
// the event is applied, so the event itself only needs to record which
// round ended and who the declarer was (informational, for history/UI).
type RoundFinishedEvent struct {
	Seq         int
	RoundNumber int
	Declarer    *Seat
	GivenUp     bool
}

func (e RoundFinishedEvent) eventType() string      { return "round_finished" }
func (e RoundFinishedEvent) SeqNumber() int          { return e.Seq }
func (e RoundFinishedEvent) withSeqNumber(n int) Event { e.Seq = n; return e }

type GameEndedEvent struct {
	Seq    int
	Reason GameEndingReason
	Seat   *Seat // blamed seat, set only when Reason == EndingAborted
}

func (e GameEndedEvent) eventType() string      { return "game_ended" }
func (e GameEndedEvent) SeqNumber() int          { return e.Seq }
func (e GameEndedEvent) withSeqNumber(n int) Event { e.Seq = n; return e }
