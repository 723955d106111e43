package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"gametable/internal/fivehundred"
	"gametable/internal/storage"
	"gametable/internal/tableagg"
	"gametable/pkg/deck"
)

// TablePostgresStorage implements storage.GameTableRepository for
// PostgreSQL, in the same parameterized-query/CREATE-TABLE-bootstrap style
// as the session storage this package used to carry.
type TablePostgresStorage struct {
	db       *sql.DB
	shuffler deck.Shuffler
	registry *fivehundred.Registry
}

// NewTablePostgresStorage wires a table repository. shuffler is used to
// reconstruct each table's Engine on load, since deck.Shuffler values (e.g.
// pkg/rng.System) are not themselves serializable.
func NewTablePostgresStorage(db *sql.DB, shuffler deck.Shuffler) *TablePostgresStorage {
	return &TablePostgresStorage{db: db, shuffler: shuffler, registry: fivehundred.DefaultRegistry()}
}

// tableRecord is the JSON shape persisted in game_tables.state: everything
// about a Table except its Engine, which is not serializable and is
// rebuilt on load from GameName + shuffler.
type tableRecord struct {
	ID         string
	OwnerID    string
	GameName   fivehundred.GameName
	GameConfig fivehundred.GameConfig
	MaxSeats   int
	MinSeats   int
	Players    []tableagg.Player
	Status     tableagg.Status
	Game       fivehundred.Game
	Events     []fivehundred.EventEnvelope
}

func toRecord(t *tableagg.Table) (tableRecord, error) {
	envelopes := make([]fivehundred.EventEnvelope, len(t.Events))
	for i, e := range t.Events {
		env, err := fivehundred.EncodeEvent(e)
		if err != nil {
			return tableRecord{}, fmt.Errorf("encode table event %d: %w", i, err)
		}
		envelopes[i] = env
	}
	return tableRecord{
		ID:         t.ID,
		OwnerID:    t.OwnerID,
		GameName:   t.GameName,
		GameConfig: t.GameConfig,
		MaxSeats:   t.MaxSeats,
		MinSeats:   t.MinSeats,
		Players:    t.Players,
		Status:     t.Status,
		Game:       t.Game,
		Events:     envelopes,
	}, nil
}

func (s *TablePostgresStorage) fromRecord(r tableRecord) (*tableagg.Table, error) {
	bundle, err := s.registry.Get(r.GameName)
	if err != nil {
		return nil, fmt.Errorf("reconstruct table %s: %w", r.ID, err)
	}
	events := make([]fivehundred.Event, len(r.Events))
	for i, env := range r.Events {
		e, err := fivehundred.DecodeEvent(env)
		if err != nil {
			return nil, fmt.Errorf("decode table event %d for %s: %w", i, r.ID, err)
		}
		events[i] = e
	}
	return &tableagg.Table{
		ID:         r.ID,
		OwnerID:    r.OwnerID,
		GameName:   r.GameName,
		GameConfig: r.GameConfig,
		MaxSeats:   r.MaxSeats,
		MinSeats:   r.MinSeats,
		Players:    r.Players,
		Status:     r.Status,
		Engine:     bundle.NewEngine(s.shuffler),
		Game:       r.Game,
		Events:     events,
	}, nil
}

// Create inserts the table record in one statement; there are no separate
// denormalized config rows for this ruleset, so "atomic insert of table
// record + config rows" collapses to a single INSERT.
func (s *TablePostgresStorage) Create(ctx context.Context, table *tableagg.Table) (string, error) {
	if table.ID == "" {
		table.ID = uuid.NewString()
	}
	rec, err := toRecord(table)
	if err != nil {
		return "", fmt.Errorf("build table record: %w", err)
	}
	stateJSON, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal table state: %w", err)
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO game_tables (id, owner_id, game_name, status, state, last_event_seq, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`, table.ID, table.OwnerID, string(table.GameName), table.Status.String(), stateJSON, 0, now)
	if err != nil {
		return "", fmt.Errorf("insert table %s: %w", table.ID, err)
	}
	return table.ID, nil
}

// FindByID deserializes a table from its stored state blob.
func (s *TablePostgresStorage) FindByID(ctx context.Context, id string) (*tableagg.Table, error) {
	var stateJSON []byte
	err := s.db.QueryRowContext(ctx, `SELECT state FROM game_tables WHERE id = $1`, id).Scan(&stateJSON)
	if err == sql.ErrNoRows {
		return nil, &fivehundred.InternalError{Reason: "table not found: " + id}
	}
	if err != nil {
		return nil, fmt.Errorf("find table %s: %w", id, err)
	}

	var rec tableRecord
	if err := json.Unmarshal(stateJSON, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal table %s: %w", id, err)
	}
	return s.fromRecord(rec)
}

// Modify opens a transaction, locks the row, applies fn, and persists the
// updated players list and state blob.
func (s *TablePostgresStorage) Modify(ctx context.Context, id string, fn func(*tableagg.Table) error) (*tableagg.Table, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	table, err := s.lockTable(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(table); err != nil {
		return nil, err
	}
	if err := persistTable(ctx, tx, table); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit modify %s: %w", id, err)
	}
	return table, nil
}

// ModifyDuringGameAction is Modify plus contiguous event-log bookkeeping:
// fn's returned events are appended numbered maxSeq+1.. and the table's
// lastEventSeq is updated to match.
func (s *TablePostgresStorage) ModifyDuringGameAction(ctx context.Context, id string, fn func(*tableagg.Table) ([]fivehundred.Event, error)) ([]fivehundred.Event, *tableagg.Table, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	table, err := s.lockTable(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}
	events, err := fn(table)
	if err != nil {
		return nil, nil, err
	}

	var maxSeq int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(sequence_number), 0) FROM game_events WHERE table_id = $1`, id).Scan(&maxSeq); err != nil {
		return nil, nil, fmt.Errorf("find max seq for %s: %w", id, err)
	}

	lastSeq := maxSeq
	for i, event := range events {
		env, err := fivehundred.EncodeEvent(event)
		if err != nil {
			return nil, nil, fmt.Errorf("encode event %d: %w", i, err)
		}
		seq := maxSeq + i + 1
		_, err = tx.ExecContext(ctx, `
			INSERT INTO game_events (table_id, sequence_number, event_type, payload, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, id, seq, env.Type, env.Data, time.Now())
		if err != nil {
			return nil, nil, fmt.Errorf("insert event %d for %s: %w", seq, id, err)
		}
		lastSeq = seq
	}

	if err := persistTableWithSeq(ctx, tx, table, lastSeq); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit game action %s: %w", id, err)
	}
	return events, table, nil
}

// FindMany is a paginated, filtered browse of table records.
func (s *TablePostgresStorage) FindMany(ctx context.Context, filter storage.TableFilter) ([]*tableagg.Table, error) {
	var conditions []string
	var args []any
	argN := 0

	addArg := func(v any) string {
		argN++
		args = append(args, v)
		return "$" + strconv.Itoa(argN)
	}

	if filter.Status != nil {
		conditions = append(conditions, "status = "+addArg(filter.Status.String()))
	}
	if filter.GameName != nil {
		conditions = append(conditions, "game_name = "+addArg(string(*filter.GameName)))
	}

	query := "SELECT state FROM game_tables"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + addArg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + addArg(filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find many tables: %w", err)
	}
	defer rows.Close()

	var tables []*tableagg.Table
	for rows.Next() {
		var stateJSON []byte
		if err := rows.Scan(&stateJSON); err != nil {
			return nil, err
		}
		var rec tableRecord
		if err := json.Unmarshal(stateJSON, &rec); err != nil {
			return nil, err
		}
		table, err := s.fromRecord(rec)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, rows.Err()
}

// Delete removes a table record outright (only legal pre-start; the
// application layer enforces that, not the repository).
func (s *TablePostgresStorage) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM game_tables WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete table %s: %w", id, err)
	}
	return nil
}

func (s *TablePostgresStorage) lockTable(ctx context.Context, tx *sql.Tx, id string) (*tableagg.Table, error) {
	var stateJSON []byte
	err := tx.QueryRowContext(ctx, `SELECT state FROM game_tables WHERE id = $1 FOR UPDATE`, id).Scan(&stateJSON)
	if err == sql.ErrNoRows {
		return nil, &fivehundred.InternalError{Reason: "table not found: " + id}
	}
	if err != nil {
		return nil, fmt.Errorf("lock table %s: %w", id, err)
	}
	var rec tableRecord
	if err := json.Unmarshal(stateJSON, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal locked table %s: %w", id, err)
	}
	return s.fromRecord(rec)
}

func persistTable(ctx context.Context, tx *sql.Tx, table *tableagg.Table) error {
	rec, err := toRecord(table)
	if err != nil {
		return fmt.Errorf("build table record %s: %w", table.ID, err)
	}
	stateJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal table %s: %w", table.ID, err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE game_tables SET status = $1, state = $2, updated_at = $3 WHERE id = $4
	`, table.Status.String(), stateJSON, time.Now(), table.ID)
	if err != nil {
		return fmt.Errorf("persist table %s: %w", table.ID, err)
	}
	return nil
}

func persistTableWithSeq(ctx context.Context, tx *sql.Tx, table *tableagg.Table, lastEventSeq int) error {
	rec, err := toRecord(table)
	if err != nil {
		return fmt.Errorf("build table record %s: %w", table.ID, err)
	}
	stateJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal table %s: %w", table.ID, err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE game_tables SET status = $1, state = $2, last_event_seq = $3, updated_at = $4 WHERE id = $5
	`, table.Status.String(), stateJSON, lastEventSeq, time.Now(), table.ID)
	if err != nil {
		return fmt.Errorf("persist table %s: %w", table.ID, err)
	}
	return nil
}

// CreateTableSchema creates the game_tables/game_events tables if they
// don't exist yet.
func CreateTableSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS game_tables (
			id VARCHAR(64) PRIMARY KEY,
			owner_id VARCHAR(64) NOT NULL,
			game_name VARCHAR(64) NOT NULL,
			status VARCHAR(32) NOT NULL,
			state JSONB NOT NULL,
			last_event_seq INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_game_tables_status ON game_tables(status);
		CREATE INDEX IF NOT EXISTS idx_game_tables_game_name ON game_tables(game_name);
		CREATE INDEX IF NOT EXISTS idx_game_tables_owner_id ON game_tables(owner_id);

		CREATE TABLE IF NOT EXISTS game_events (
			table_id VARCHAR(64) NOT NULL,
			sequence_number INTEGER NOT NULL,
			event_type VARCHAR(64) NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (table_id, sequence_number)
		);
	`)
	if err != nil {
		return fmt.Errorf("create game table schema: %w", err)
	}
	return nil
}
