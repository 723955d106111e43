package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"gametable/internal/fivehundred"
)

// EventPostgresStorage implements storage.GameEventRepository against the
// same game_events table TablePostgresStorage's ModifyDuringGameAction
// writes to. It exists separately so read-side consumers (replay, the
// background snapshotter) don't need a table-repository handle just to
// page through a log.
type EventPostgresStorage struct {
	db *sql.DB
}

// NewEventPostgresStorage wires an event log reader/appender.
func NewEventPostgresStorage(db *sql.DB) *EventPostgresStorage {
	return &EventPostgresStorage{db: db}
}

// Append bulk-inserts events numbered contiguously from the log's current
// max sequence number. Table mutations normally go through
// TablePostgresStorage.ModifyDuringGameAction instead, which appends events
// and persists the table's state blob in the same transaction; Append is
// for callers (tests, backfill tooling) that only touch the log.
func (s *EventPostgresStorage) Append(ctx context.Context, tableID string, events []fivehundred.Event) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin append tx: %w", err)
	}
	defer tx.Rollback()

	var maxSeq int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(sequence_number), 0) FROM game_events WHERE table_id = $1`, tableID).Scan(&maxSeq); err != nil {
		return 0, fmt.Errorf("find max seq for %s: %w", tableID, err)
	}

	lastSeq := maxSeq
	for i, event := range events {
		env, err := fivehundred.EncodeEvent(event)
		if err != nil {
			return 0, fmt.Errorf("encode event %d: %w", i, err)
		}
		seq := maxSeq + i + 1
		_, err = tx.ExecContext(ctx, `
			INSERT INTO game_events (table_id, sequence_number, event_type, payload, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, tableID, seq, env.Type, env.Data, time.Now())
		if err != nil {
			return 0, fmt.Errorf("insert event %d for %s: %w", seq, tableID, err)
		}
		lastSeq = seq
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit append %s: %w", tableID, err)
	}
	return lastSeq, nil
}

// FindMany returns events in [start, end] inclusive, ascending by sequence
// number. start<=0 means "from the beginning"; end<=0 means "through the
// most recent event" — matching the original system's open-ended replay
// range semantics.
func (s *EventPostgresStorage) FindMany(ctx context.Context, tableID string, start, end int) ([]fivehundred.Event, error) {
	if start <= 0 {
		start = 1
	}

	var rows *sql.Rows
	var err error
	if end > 0 {
		rows, err = s.db.QueryContext(ctx, `
			SELECT sequence_number, event_type, payload FROM game_events
			WHERE table_id = $1 AND sequence_number BETWEEN $2 AND $3
			ORDER BY sequence_number ASC
		`, tableID, start, end)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT sequence_number, event_type, payload FROM game_events
			WHERE table_id = $1 AND sequence_number >= $2
			ORDER BY sequence_number ASC
		`, tableID, start)
	}
	if err != nil {
		return nil, fmt.Errorf("find events for %s: %w", tableID, err)
	}
	defer rows.Close()

	var events []fivehundred.Event
	for rows.Next() {
		var seq int
		var eventType string
		var payload []byte
		if err := rows.Scan(&seq, &eventType, &payload); err != nil {
			return nil, fmt.Errorf("scan event row for %s: %w", tableID, err)
		}
		event, err := fivehundred.DecodeEvent(fivehundred.EventEnvelope{Type: eventType, Seq: seq, Data: payload})
		if err != nil {
			return nil, fmt.Errorf("decode event %d for %s: %w", seq, tableID, err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
