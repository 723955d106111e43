package deck

import (
	"encoding/json"
	"fmt"
	"sort"
)

// EngineError reports an impossible state reached by the rules engine
// (spec's InternalError taxonomy) rather than a client-facing rule violation.
type EngineError struct {
	Reason string
}

func (e *EngineError) Error() string { return fmt.Sprintf("engine error: %s", e.Reason) }

// Hand is a sorted, immutable multiset of cards held by one seat: sorted by
// (suit, descending strength), matching how a player would naturally fan
// their cards. AddCards/RemoveCards return a new Hand.
type Hand struct {
	cards []Card
}

// NewHand builds a Hand from an unordered card list, sorting it into
// canonical order.
func NewHand(cards []Card) Hand {
	h := Hand{cards: append([]Card(nil), cards...)}
	h.sort()
	return h
}

func (h *Hand) sort() {
	sort.SliceStable(h.cards, func(i, j int) bool {
		a, b := h.cards[i], h.cards[j]
		if a.Suit != b.Suit {
			return a.Suit < b.Suit
		}
		return a.Strength() > b.Strength()
	})
}

// Cards returns the hand's cards in sorted order.
func (h Hand) Cards() []Card {
	out := make([]Card, len(h.cards))
	copy(out, h.cards)
	return out
}

// Len returns the number of cards held.
func (h Hand) Len() int { return len(h.cards) }

// Has reports whether the hand contains the given card.
func (h Hand) Has(c Card) bool {
	for _, hc := range h.cards {
		if hc == c {
			return true
		}
	}
	return false
}

// AddCards returns a new Hand with the given cards added.
func (h Hand) AddCards(cards ...Card) Hand {
	merged := append(append([]Card(nil), h.cards...), cards...)
	out := Hand{cards: merged}
	out.sort()
	return out
}

// RemoveCards returns a new Hand with the given cards removed. Fails with
// EngineError{card_not_in_hand} if any card is missing — removing a card
// the hand does not hold is an impossible state for a validated command.
func (h Hand) RemoveCards(cards ...Card) (Hand, error) {
	remaining := append([]Card(nil), h.cards...)
	for _, target := range cards {
		idx := -1
		for i, c := range remaining {
			if c == target {
				idx = i
				break
			}
		}
		if idx == -1 {
			return Hand{}, &EngineError{Reason: "card_not_in_hand"}
		}
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	out := Hand{cards: remaining}
	out.sort()
	return out, nil
}

// MarshalJSON encodes a Hand as its card list, since cards is unexported
// and would otherwise marshal to an empty object.
func (h Hand) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.cards)
}

// UnmarshalJSON restores a Hand from its card list and re-sorts it into
// canonical order.
func (h *Hand) UnmarshalJSON(data []byte) error {
	var cards []Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return err
	}
	h.cards = cards
	h.sort()
	return nil
}

// CardsAllowedToPlay implements Five Hundred's follow-suit rule: play a card
// of requiredSuit if held; else a trump if held; else any card.
func (h Hand) CardsAllowedToPlay(requiredSuit, trumpSuit *Suit) []Card {
	if requiredSuit == nil || trumpSuit == nil {
		return h.Cards()
	}
	var matchingRequired []Card
	for _, c := range h.cards {
		if c.Suit == *requiredSuit {
			matchingRequired = append(matchingRequired, c)
		}
	}
	if len(matchingRequired) > 0 {
		return matchingRequired
	}
	var matchingTrump []Card
	for _, c := range h.cards {
		if c.Suit == *trumpSuit {
			matchingTrump = append(matchingTrump, c)
		}
	}
	if len(matchingTrump) > 0 {
		return matchingTrump
	}
	return h.Cards()
}
