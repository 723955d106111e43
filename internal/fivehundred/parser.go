package fivehundred

import (
	"fmt"

	"gametable/pkg/deck"
)

// ParseCommand turns a wire command kind + loosely-typed payload into a
// typed Command. seat is the acting seat, resolved by the caller from the
// authenticated connection rather than trusted from the payload.
func ParseCommand(kind string, seat Seat, raw map[string]any) (Command, error) {
	switch kind {
	case "start_game":
		return StartGameCommand{}, nil

	case "make_bid":
		bid, err := asInt(raw["bid"])
		if err != nil {
			return nil, fmt.Errorf("make_bid: %w", err)
		}
		return MakeBidCommand{Seat: seat, Bid: bid}, nil

	case "give_up":
		return GiveUpCommand{Seat: seat}, nil

	case "pass_cards":
		next, err := parseCardField(raw, "card_to_next_seat")
		if err != nil {
			return nil, err
		}
		prev, err := parseCardField(raw, "card_to_prev_seat")
		if err != nil {
			return nil, err
		}
		return PassCardsCommand{Seat: seat, CardToNextSeat: next, CardToPrevSeat: prev}, nil

	case "play_card":
		card, err := parseCardField(raw, "card")
		if err != nil {
			return nil, err
		}
		return PlayCardCommand{Seat: seat, Card: card}, nil

	case "end_game":
		reasonStr, _ := raw["reason"].(string)
		reason, err := parseEndingReason(reasonStr)
		if err != nil {
			return nil, err
		}
		return EndGameCommand{Reason: reason, Seat: &seat}, nil

	default:
		return nil, fmt.Errorf("unknown command kind %q", kind)
	}
}

func parseCardField(raw map[string]any, key string) (deck.Card, error) {
	s, ok := raw[key].(string)
	if !ok {
		return deck.Card{}, fmt.Errorf("%s: expected a card string", key)
	}
	return deck.ParseCard(s)
}

func parseEndingReason(s string) (GameEndingReason, error) {
	switch s {
	case "aborted":
		return EndingAborted, nil
	default:
		return 0, fmt.Errorf("end_game: unsupported reason %q for a client-issued command", s)
	}
}
