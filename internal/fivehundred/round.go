package fivehundred

import "gametable/pkg/deck"

// Bid records the highest bid standing so far, and who made it.
type Bid struct {
	Seat   Seat
	Amount int
}

// Round holds everything scoped to a single deal: hands, the trick in
// progress, bidding state, and the previous trick (kept for client replay/UI).
type Round struct {
	SeatInfos           map[Seat]SeatInfo
	CardsOnBoard        map[Seat]*deck.Card
	CardsToTake         []deck.Card // the kitty
	RequiredSuit        *deck.Suit
	TrumpSuit           *deck.Suit
	HighestBid          *Bid
	Phase               GamePhase
	RoundNumber         int
	FirstSeat           Seat // seat that started this round
	IsMarriageAnnounced bool
	PrevTrick           []deck.Card
}

// NewRound deals a fresh round from the given (already shuffled) deck: draws
// the kitty first, then CardsInStartingHand cards to each taken seat in
// ascending seat order, and returns the round alongside whatever remains of
// the deck (empty, for a 3-seat game: 3 + 3*7 == 24).
func NewRound(d deck.Deck, roundNumber int, firstSeat Seat, takenSeats []Seat) (Round, deck.Deck, error) {
	cardsToTake, d, err := d.Draw(CardsToTake)
	if err != nil {
		return Round{}, d, &InternalError{Reason: "not enough cards to deal kitty: " + err.Error()}
	}

	seatInfos := make(map[Seat]SeatInfo, len(takenSeats))
	cardsOnBoard := make(map[Seat]*deck.Card, len(takenSeats))
	for _, seat := range sortedSeats(takenSeats) {
		var hand []deck.Card
		hand, d, err = d.Draw(CardsInStartingHand)
		if err != nil {
			return Round{}, d, &InternalError{Reason: "not enough cards to deal hand: " + err.Error()}
		}
		seatInfos[seat] = SeatInfo{Hand: deck.NewHand(hand)}
		cardsOnBoard[seat] = nil
	}

	return Round{
		SeatInfos:    seatInfos,
		CardsOnBoard: cardsOnBoard,
		CardsToTake:  cardsToTake,
		Phase:        PhaseBidding,
		RoundNumber:  roundNumber,
		FirstSeat:    firstSeat,
	}, d, nil
}

// CardsOnBoardCount returns how many seats have played into the current trick.
func (r Round) CardsOnBoardCount() int {
	n := 0
	for _, c := range r.CardsOnBoard {
		if c != nil {
			n++
		}
	}
	return n
}

// TrickCards returns the cards currently on the board, in no particular
// guaranteed order (callers that need seat association should range
// CardsOnBoard directly).
func (r Round) TrickCards() []deck.Card {
	cards := make([]deck.Card, 0, len(r.CardsOnBoard))
	for _, c := range r.CardsOnBoard {
		if c != nil {
			cards = append(cards, *c)
		}
	}
	return cards
}

// RoundResults is the scored outcome of one finished round.
type RoundResults struct {
	RoundNumber   int
	BiddingResult *Bid // nil if every seat passed
	SeatPoints    map[Seat]int
}
