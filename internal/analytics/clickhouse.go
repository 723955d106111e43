package analytics

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// ClickHouseConfig holds ClickHouse connection configuration.
type ClickHouseConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Database     string        `yaml:"database"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	Secure       bool          `yaml:"secure"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	ConnTimeout  time.Duration `yaml:"conn_timeout"`
}

// ClickHouseRepository implements Repository against ClickHouse, the same
// ReplacingMergeTree-backed append-only sink shape the rest of this corpus
// uses for high-volume event analytics.
type ClickHouseRepository struct {
	db clickhouse.Conn
}

// NewClickHouseRepository connects and pings ClickHouse.
func NewClickHouseRepository(ctx context.Context, config ClickHouseConfig) (*ClickHouseRepository, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", config.Host, config.Port)},
		Auth: clickhouse.Auth{
			Database: config.Database,
			Username: config.Username,
			Password: config.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		TLS: &tls.Config{InsecureSkipVerify: config.Secure},
	})
	if err != nil {
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}
	return &ClickHouseRepository{db: conn}, nil
}

// CreateTables bootstraps the round/game analytics tables.
func (ch *ClickHouseRepository) CreateTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS round_analytics (
			event_id String,
			event_type String,
			table_id String,
			game_name String,
			round_number Int32,
			declarer_seat Int32,
			bid_amount Int32,
			given_up UInt8,
			seat_points_json String,
			timestamp DateTime64(3)
		) ENGINE = ReplacingMergeTree(timestamp)
		ORDER BY (table_id, round_number, timestamp)`,

		`CREATE TABLE IF NOT EXISTS game_analytics (
			event_id String,
			event_type String,
			table_id String,
			game_name String,
			ending String,
			winner_seats Array(Int32),
			rounds_played Int32,
			timestamp DateTime64(3)
		) ENGINE = ReplacingMergeTree(timestamp)
		ORDER BY (table_id, timestamp)`,
	}
	for _, q := range queries {
		if err := ch.db.Exec(ctx, q); err != nil {
			return fmt.Errorf("create analytics tables: %w", err)
		}
	}
	return nil
}

// RecordRound inserts one round's scored outcome.
func (ch *ClickHouseRepository) RecordRound(ctx context.Context, r RoundRecord) error {
	query := `
		INSERT INTO round_analytics (
			event_id, event_type, table_id, game_name, round_number,
			declarer_seat, bid_amount, given_up, seat_points_json, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	return ch.db.Exec(ctx, query,
		r.EventID, string(r.EventType), r.TableID, r.GameName, r.RoundNumber,
		r.DeclarerSeat, r.BidAmount, r.GivenUp, seatPointsJSON(r.SeatPoints), r.Timestamp,
	)
}

// RecordRounds inserts a batch of round outcomes.
func (ch *ClickHouseRepository) RecordRounds(ctx context.Context, records []RoundRecord) error {
	for _, r := range records {
		if err := ch.RecordRound(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// RecordGame inserts one finished game's terminal outcome.
func (ch *ClickHouseRepository) RecordGame(ctx context.Context, g GameRecord) error {
	query := `
		INSERT INTO game_analytics (
			event_id, event_type, table_id, game_name, ending,
			winner_seats, rounds_played, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	return ch.db.Exec(ctx, query,
		g.EventID, string(g.EventType), g.TableID, g.GameName, g.Ending,
		g.WinnerSeats, g.RoundsPlayed, g.Timestamp,
	)
}

// GetRounds retrieves round outcomes matching the given filters.
func (ch *ClickHouseRepository) GetRounds(ctx context.Context, query RoundQuery) ([]RoundRecord, error) {
	sqlQuery := `
		SELECT event_id, event_type, table_id, game_name, round_number,
			   declarer_seat, bid_amount, given_up, timestamp
		FROM round_analytics WHERE 1=1
	`
	args := make([]interface{}, 0)
	if query.TableID != "" {
		sqlQuery += " AND table_id = ?"
		args = append(args, query.TableID)
	}
	if query.GameName != "" {
		sqlQuery += " AND game_name = ?"
		args = append(args, string(query.GameName))
	}
	if !query.StartTime.IsZero() {
		sqlQuery += " AND timestamp >= ?"
		args = append(args, query.StartTime)
	}
	if !query.EndTime.IsZero() {
		sqlQuery += " AND timestamp <= ?"
		args = append(args, query.EndTime)
	}
	sqlQuery += " ORDER BY timestamp DESC"
	if query.Limit > 0 {
		sqlQuery += fmt.Sprintf(" LIMIT %d", query.Limit)
	}
	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	rows, err := ch.db.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("query round analytics: %w", err)
	}
	defer rows.Close()

	var out []RoundRecord
	for rows.Next() {
		var r RoundRecord
		var eventType string
		if err := rows.Scan(&r.EventID, &eventType, &r.TableID, &r.GameName, &r.RoundNumber,
			&r.DeclarerSeat, &r.BidAmount, &r.GivenUp, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan round analytics row: %w", err)
		}
		r.EventType = EventType(eventType)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetTableOutcomeStats aggregates a table's finished rounds.
func (ch *ClickHouseRepository) GetTableOutcomeStats(ctx context.Context, tableID string) (*TableOutcomeStats, error) {
	query := `
		SELECT count(), avgOrNull(given_up), avgOrNull(bid_amount)
		FROM round_analytics WHERE table_id = ?
	`
	row := ch.db.QueryRow(ctx, query, tableID)
	var rounds uint64
	var givenUpPct, avgBid *float64
	if err := row.Scan(&rounds, &givenUpPct, &avgBid); err != nil {
		return nil, fmt.Errorf("query table outcome stats for %s: %w", tableID, err)
	}
	stats := &TableOutcomeStats{TableID: tableID, RoundsPlayed: int(rounds)}
	if givenUpPct != nil {
		stats.GivenUpRoundsPct = *givenUpPct * 100
	}
	if avgBid != nil {
		stats.AvgBidAmount = *avgBid
	}
	return stats, nil
}

// Close releases the underlying connection pool.
func (ch *ClickHouseRepository) Close() error {
	return ch.db.Close()
}

// Ping checks connectivity.
func (ch *ClickHouseRepository) Ping(ctx context.Context) error {
	return ch.db.Ping(ctx)
}

func seatPointsJSON(points map[int]int) string {
	if len(points) == 0 {
		return "{}"
	}
	out := "{"
	first := true
	for seat, pts := range points {
		if !first {
			out += ","
		}
		first = false
		out += fmt.Sprintf("%q:%d", itoa(seat), pts)
	}
	return out + "}"
}
