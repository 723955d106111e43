package fivehundred

import "gametable/pkg/deck"

// Game is the full authoritative state of one table's Five Hundred game:
// the round in progress, the running summary, and event-sourcing bookkeeping
// (spec §3's Game state shape).
type Game struct {
	Round                 Round
	Results               []RoundResults
	Summary               map[Seat]int // running game-points, counts down from GameStartingPoints
	ActiveSeat            Seat
	Ending                *GameEnding
	GameConfig            GameConfig
	TakenSeats            []Seat
	TurnNumber            int
	EventNumber           int
	ReplaySafeEventNumber int
}

// NewGame builds the pre-deal state for a fresh game: seats and summary are
// set up, but no cards are dealt yet. Dealing happens when a StartGame
// command is processed, producing the first DeckShuffledEvent.
func NewGame(takenSeats []Seat, cfg GameConfig) Game {
	firstSeat := sortedSeats(takenSeats)[0]
	summary := make(map[Seat]int, len(takenSeats))
	for _, seat := range takenSeats {
		summary[seat] = GameStartingPoints
	}
	return Game{
		Round:      Round{RoundNumber: 1, FirstSeat: firstSeat, Phase: PhaseInitializing},
		Summary:    summary,
		ActiveSeat: firstSeat,
		GameConfig: cfg,
		TakenSeats: append([]Seat(nil), takenSeats...),
	}
}

// ActiveSeatInfo returns the SeatInfo of whichever seat must act next.
func (g Game) ActiveSeatInfo() SeatInfo {
	return g.Round.SeatInfos[g.ActiveSeat]
}

// Winners returns the seats whose summary reached <=0, valid only once
// g.Round.Phase == PhaseGameEnded.
func (g Game) Winners() []Seat {
	var winners []Seat
	for seat, points := range g.Summary {
		if points <= 0 {
			winners = append(winners, seat)
		}
	}
	return sortedSeats(winners)
}

// PublicSeatView is the seat-private fields stripped out: everything an
// observer who is not sitting in this seat is allowed to see.
type PublicSeatView struct {
	HandSize       int
	Bid            int
	TrickCount     int
	MarriagePoints []int
}

// PrivateSeatView is the full SeatInfo, sent only to the seat's own occupant.
type PrivateSeatView struct {
	Hand           []deck.Card
	Bid            int
	Points         int
	TrickCount     int
	MarriagePoints []int
}

// PublicView is what every observer of a table may see regardless of seat.
type PublicView struct {
	Phase               GamePhase
	RoundNumber         int
	FirstSeat           Seat
	IsMarriageAnnounced bool
	RequiredSuit        *deck.Suit
	TrumpSuit           *deck.Suit
	HighestBid          *Bid
	CardsOnBoard        map[Seat]*deck.Card
	SeatViews           map[Seat]PublicSeatView
	Results             []RoundResults
	Summary             map[Seat]int
	ActiveSeat          Seat
	Ending              *GameEnding
	EventNumber         int
}

// ToPublicView projects the game into the shape sent to observers with no
// seat of their own.
func (g Game) ToPublicView() PublicView {
	views := make(map[Seat]PublicSeatView, len(g.Round.SeatInfos))
	for seat, info := range g.Round.SeatInfos {
		views[seat] = PublicSeatView{
			HandSize:       info.Hand.Len(),
			Bid:            info.Bid,
			TrickCount:     info.TrickCount,
			MarriagePoints: info.MarriagePoints,
		}
	}
	return PublicView{
		Phase:               g.Round.Phase,
		RoundNumber:         g.Round.RoundNumber,
		FirstSeat:           g.Round.FirstSeat,
		IsMarriageAnnounced: g.Round.IsMarriageAnnounced,
		RequiredSuit:        g.Round.RequiredSuit,
		TrumpSuit:           g.Round.TrumpSuit,
		HighestBid:          g.Round.HighestBid,
		CardsOnBoard:        g.Round.CardsOnBoard,
		SeatViews:           views,
		Results:             g.Results,
		Summary:             g.Summary,
		ActiveSeat:          g.ActiveSeat,
		Ending:              g.Ending,
		EventNumber:         g.EventNumber,
	}
}

// ToPrivateView returns what only the occupant of the given seat may see:
// that seat's own full hand, with its bid, points, trick count and marriage
// points. It holds nothing about the other seats or the rest of the game.
func (g Game) ToPrivateView(seat Seat) PrivateSeatView {
	info := g.Round.SeatInfos[seat]
	return PrivateSeatView{
		Hand:           info.Hand.Cards(),
		Bid:            info.Bid,
		Points:         info.Points,
		TrickCount:     info.TrickCount,
		MarriagePoints: info.MarriagePoints,
	}
}
