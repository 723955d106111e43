package fivehundred

import "gametable/pkg/deck"

// getNextSeatToBid looks at the seat after activeSeat first; if that seat
// has not passed (bid >= 0: it has not bid yet this round, or it holds a
// bid), it bids next. Otherwise falls back to the seat before activeSeat.
// Returns nil once both neighbors have passed.
func getNextSeatToBid(activeSeat Seat, seatInfos map[Seat]SeatInfo) *Seat {
	taken := seatKeys(seatInfos)
	next := activeSeat.Next(taken)
	prev := activeSeat.Prev(taken)

	if seatInfos[next].Bid >= 0 {
		return &next
	}
	if seatInfos[prev].Bid >= 0 {
		return &prev
	}
	return nil
}

func seatKeys(m map[Seat]SeatInfo) []Seat {
	out := make([]Seat, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	return out
}

// hasMarriageInHand reports whether the hand contains any same-suit King+Queen pair.
func hasMarriageInHand(hand deck.Hand) bool {
	hasKing := make(map[deck.Suit]bool)
	hasQueen := make(map[deck.Suit]bool)
	for _, c := range hand.Cards() {
		switch c.Rank {
		case deck.King:
			hasKing[c.Suit] = true
		case deck.Queen:
			hasQueen[c.Suit] = true
		}
		if hasKing[c.Suit] && hasQueen[c.Suit] {
			return true
		}
	}
	return false
}

// isPlayedCardPartOfMarriage reports whether playedCard's King/Queen partner
// is still held, in which case leading it announces a marriage.
func isPlayedCardPartOfMarriage(playedCard deck.Card, cardsLeftInHand []deck.Card) bool {
	var partner deck.Card
	switch playedCard.Rank {
	case deck.Queen:
		partner = deck.Card{Suit: playedCard.Suit, Rank: deck.King}
	case deck.King:
		partner = deck.Card{Suit: playedCard.Suit, Rank: deck.Queen}
	default:
		return false
	}
	for _, c := range cardsLeftInHand {
		if c == partner {
			return true
		}
	}
	return false
}

// getTrickWinningCard picks the winner among the three cards played: highest
// trump if any were played, else highest card of the required (led) suit.
func getTrickWinningCard(trickCards []deck.Card, requiredSuit, trumpSuit *deck.Suit) (deck.Card, error) {
	if trumpSuit != nil {
		var trumps []deck.Card
		for _, c := range trickCards {
			if c.Suit == *trumpSuit {
				trumps = append(trumps, c)
			}
		}
		if best, ok := highestStrength(trumps); ok {
			return best, nil
		}
	}
	if requiredSuit != nil {
		var led []deck.Card
		for _, c := range trickCards {
			if c.Suit == *requiredSuit {
				led = append(led, c)
			}
		}
		if best, ok := highestStrength(led); ok {
			return best, nil
		}
	}
	return deck.Card{}, &InternalError{Reason: "no trick winner found among played cards"}
}

func highestStrength(cards []deck.Card) (deck.Card, bool) {
	if len(cards) == 0 {
		return deck.Card{}, false
	}
	best := cards[0]
	for _, c := range cards[1:] {
		if c.Strength() > best.Strength() {
			best = c
		}
	}
	return best, true
}
