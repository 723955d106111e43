package fivehundred

import (
	"encoding/json"
	"fmt"
)

// EventEnvelope is the wire/storage shape for a persisted event: a type tag
// plus the event's own fields, matching the original system's
// to_dict()/event-parser-registry split (game_play_event_repository.py,
// registries/game_event_parsers.py) translated into Go's json.RawMessage
// idiom instead of a per-game parser lookup table.
type EventEnvelope struct {
	Type string          `json:"type"`
	Seq  int             `json:"seq"`
	Data json.RawMessage `json:"data"`
}

// EncodeEvent produces the envelope a repository or fan-out consumer can
// serialize directly.
func EncodeEvent(e Event) (EventEnvelope, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("encode event: %w", err)
	}
	return EventEnvelope{Type: e.eventType(), Seq: e.SeqNumber(), Data: data}, nil
}

// DecodeEvent reconstructs the concrete, typed Event an envelope encodes.
func DecodeEvent(env EventEnvelope) (Event, error) {
	switch env.Type {
	case "deck_shuffled":
		var e DeckShuffledEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		e.Seq = env.Seq
		return e, nil
	case "bid_made":
		var e BidMadeEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		e.Seq = env.Seq
		return e, nil
	case "bidding_finished":
		var e BiddingFinishedEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		e.Seq = env.Seq
		return e, nil
	case "hidden_cards_taken":
		var e HiddenCardsTakenEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		e.Seq = env.Seq
		return e, nil
	case "declarer_gave_up":
		var e DeclarerGaveUpEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		e.Seq = env.Seq
		return e, nil
	case "cards_passed":
		var e CardsPassedEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		e.Seq = env.Seq
		return e, nil
	case "card_played":
		var e CardPlayedEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		e.Seq = env.Seq
		return e, nil
	case "marriage_points_added":
		var e MarriagePointsAddedEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		e.Seq = env.Seq
		return e, nil
	case "trick_taken":
		var e TrickTakenEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		e.Seq = env.Seq
		return e, nil
	case "round_finished":
		var e RoundFinishedEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		e.Seq = env.Seq
		return e, nil
	case "game_ended":
		var e GameEndedEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		e.Seq = env.Seq
		return e, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
}
