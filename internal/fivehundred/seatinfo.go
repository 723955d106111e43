package fivehundred

import "gametable/pkg/deck"

// SeatInfo is round-specific information about one seat: its hand, its
// current bid, and its running trick points for the round in progress.
type SeatInfo struct {
	Hand           deck.Hand
	Bid            int   // negative means passed, 0 means not bid yet
	Points         int   // card points taken this round, resets each round
	TrickCount     int   // informational, useful for UI
	MarriagePoints []int // informational, one entry per marriage scored
}

// CardsAllowedToPlay delegates to the hand's follow-suit rule.
func (s SeatInfo) CardsAllowedToPlay(requiredSuit, trumpSuit *deck.Suit) []deck.Card {
	return s.Hand.CardsAllowedToPlay(requiredSuit, trumpSuit)
}
