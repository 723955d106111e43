// Package analytics defines the write-side sink for round/game outcomes
// and the read-side queries built on top of them. It is intentionally
// decoupled from internal/storage: the analytics store is a reporting
// fan-out target, not something internal/tablemanager depends on to
// function, so it gets its own package and its own repository contract.
package analytics

import (
	"context"
	"time"

	"gametable/internal/fivehundred"
)

// EventType distinguishes the two shapes of record this package writes.
type EventType string

const (
	EventRoundFinished EventType = "round_finished"
	EventGameFinished  EventType = "game_finished"
)

// RoundRecord is one round's scored outcome, emitted each time
// internal/eventmirror observes a RoundFinishedEvent.
type RoundRecord struct {
	EventID      string      `json:"event_id" ch:"event_id"`
	EventType    EventType   `json:"event_type" ch:"event_type"`
	TableID      string      `json:"table_id" ch:"table_id"`
	GameName     string      `json:"game_name" ch:"game_name"`
	RoundNumber  int         `json:"round_number" ch:"round_number"`
	DeclarerSeat int         `json:"declarer_seat" ch:"declarer_seat"`
	BidAmount    int         `json:"bid_amount" ch:"bid_amount"`
	GivenUp      bool        `json:"given_up" ch:"given_up"`
	SeatPoints   map[int]int `json:"seat_points" ch:"-"` // flattened into per-seat columns at the storage boundary
	Timestamp    time.Time   `json:"timestamp" ch:"timestamp"`
}

// GameRecord is one finished game's final outcome, emitted on GameEndedEvent.
type GameRecord struct {
	EventID      string    `json:"event_id" ch:"event_id"`
	EventType    EventType `json:"event_type" ch:"event_type"`
	TableID      string    `json:"table_id" ch:"table_id"`
	GameName     string    `json:"game_name" ch:"game_name"`
	Ending       string    `json:"ending" ch:"ending"`
	WinnerSeats  []int     `json:"winner_seats" ch:"winner_seats"`
	RoundsPlayed int       `json:"rounds_played" ch:"rounds_played"`
	Timestamp    time.Time `json:"timestamp" ch:"timestamp"`
}

// RoundQuery narrows RoundRepository.GetRounds.
type RoundQuery struct {
	TableID   string
	GameName  fivehundred.GameName
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// TableOutcomeStats is an aggregate over a table's finished rounds, used
// for the kind of "how is this table trending" dashboard query the
// original fraud/session analytics surface supported for poker tables.
type TableOutcomeStats struct {
	TableID          string  `json:"table_id"`
	RoundsPlayed     int     `json:"rounds_played"`
	GivenUpRoundsPct float64 `json:"given_up_rounds_pct"`
	AvgBidAmount     float64 `json:"avg_bid_amount"`
}

// Repository is the analytics sink's contract: fire-and-forget writes plus
// a handful of aggregate reads.
type Repository interface {
	RecordRound(ctx context.Context, record RoundRecord) error
	RecordRounds(ctx context.Context, records []RoundRecord) error
	RecordGame(ctx context.Context, record GameRecord) error

	GetRounds(ctx context.Context, query RoundQuery) ([]RoundRecord, error)
	GetTableOutcomeStats(ctx context.Context, tableID string) (*TableOutcomeStats, error)

	Close() error
	Ping(ctx context.Context) error
}

// FromRoundFinished builds a RoundRecord from the authoritative event,
// the shape internal/fanout's consumer loop (or a dedicated subscriber)
// hands to a Repository after observing a RoundFinishedEvent.
func FromRoundFinished(tableID string, gameName fivehundred.GameName, e fivehundred.RoundFinishedEvent, results fivehundred.RoundResults, now time.Time) RoundRecord {
	declarerSeat := 0
	bidAmount := 0
	if results.BiddingResult != nil {
		declarerSeat = int(results.BiddingResult.Seat)
		bidAmount = results.BiddingResult.Amount
	}
	seatPoints := make(map[int]int, len(results.SeatPoints))
	for seat, pts := range results.SeatPoints {
		seatPoints[int(seat)] = pts
	}
	return RoundRecord{
		EventID:      tableID + ":round:" + itoa(results.RoundNumber),
		EventType:    EventRoundFinished,
		TableID:      tableID,
		GameName:     string(gameName),
		RoundNumber:  results.RoundNumber,
		DeclarerSeat: declarerSeat,
		BidAmount:    bidAmount,
		GivenUp:      e.GivenUp,
		SeatPoints:   seatPoints,
		Timestamp:    now,
	}
}

// FromGameEnded builds a GameRecord from the terminal event.
func FromGameEnded(tableID string, gameName fivehundred.GameName, winners []fivehundred.Seat, ending fivehundred.GameEndingReason, roundsPlayed int, now time.Time) GameRecord {
	seats := make([]int, len(winners))
	for i, s := range winners {
		seats[i] = int(s)
	}
	return GameRecord{
		EventID:      tableID + ":game-ended",
		EventType:    EventGameFinished,
		TableID:      tableID,
		GameName:     string(gameName),
		Ending:       ending.String(),
		WinnerSeats:  seats,
		RoundsPlayed: roundsPlayed,
		Timestamp:    now,
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
