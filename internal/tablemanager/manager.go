// Package tablemanager is the application layer (C6): the only thing HTTP
// handlers and the websocket fan-out hub call into. It owns nothing about
// persistence or transport itself — it drives the Table aggregate through
// two repository primitives (modify / modifyDuringGameAction) and the
// snapshot-cache replay algorithm, exactly the shape
// application/game_table_manager.py used.
package tablemanager

import (
	"context"
	"fmt"
	"time"

	"gametable/internal/fivehundred"
	"gametable/internal/metrics"
	"gametable/internal/tableagg"
	"gametable/pkg/deck"
)

// TableRepository is the persistence contract for table aggregates (spec
// §4.6's GameTableRepository, minus findMany/ pagination which lives on the
// concrete Postgres implementation since it's a browse-only concern no
// application-layer method currently needs).
type TableRepository interface {
	Create(ctx context.Context, table *tableagg.Table) (string, error)
	FindByID(ctx context.Context, id string) (*tableagg.Table, error)
	// Modify loads the row under lock, applies fn (which must not emit
	// game events), persists, and returns the updated table.
	Modify(ctx context.Context, id string, fn func(*tableagg.Table) error) (*tableagg.Table, error)
	// ModifyDuringGameAction loads the row under lock, applies fn (which
	// returns the events it produced), appends those events with
	// contiguous sequence numbers, persists the updated table, and
	// returns both.
	ModifyDuringGameAction(ctx context.Context, id string, fn func(*tableagg.Table) ([]fivehundred.Event, error)) ([]fivehundred.Event, *tableagg.Table, error)
	Delete(ctx context.Context, id string) error
}

// EventRepository is spec §4.6's GameEventRepository.
type EventRepository interface {
	FindMany(ctx context.Context, tableID string, start, end int) ([]fivehundred.Event, error)
}

// Snapshot pairs a replayed state with the event number it reflects.
type Snapshot struct {
	EventNumber int
	Game        fivehundred.Game
}

// SnapshotCache is spec §4.7's contract, as seen from the application layer.
type SnapshotCache interface {
	// GetExactOrNearest returns the cached snapshot at eventNumber if
	// present (exact=true), else the nearest cached snapshot at or below
	// eventNumber (exact=false), else (nil, false, nil) if nothing is
	// cached for this table at all.
	GetExactOrNearest(ctx context.Context, tableID string, eventNumber int) (snap *Snapshot, exact bool, err error)
	Store(ctx context.Context, tableID string, snapshots []Snapshot) error
}

// BotOptions parameterizes AddBotPlayer.
type BotOptions struct {
	BotStrategyKind fivehundred.BotStrategyKind
	PreferredSeat   *fivehundred.Seat
}

// TableManager is the C6 application layer.
type TableManager struct {
	Tables    TableRepository
	Events    EventRepository
	Snapshots SnapshotCache
	Shuffler  deck.Shuffler
	Registry  *fivehundred.Registry
}

// New wires a TableManager against its dependencies.
func New(tables TableRepository, events EventRepository, snapshots SnapshotCache, shuffler deck.Shuffler) *TableManager {
	return &TableManager{
		Tables:    tables,
		Events:    events,
		Snapshots: snapshots,
		Shuffler:  shuffler,
		Registry:  fivehundred.DefaultRegistry(),
	}
}

func (m *TableManager) validateOwner(table *tableagg.Table, userID string) error {
	if table.OwnerID != userID {
		return &fivehundred.RulesError{Code: "not_table_owner", Message: "could not perform an action: not the table owner"}
	}
	return nil
}

// AddTable creates a not-yet-started table for gameName, owned by ownerID.
func (m *TableManager) AddTable(ctx context.Context, gameName fivehundred.GameName, rawGameConfig, rawTableConfig map[string]any, ownerID string) (string, error) {
	bundle, err := m.Registry.Get(gameName)
	if err != nil {
		return "", err
	}
	gameConfig, err := bundle.ParseConfig(rawGameConfig)
	if err != nil {
		return "", err
	}
	tableConfig := fivehundred.DefaultTableConfig()
	_ = rawTableConfig // table-level overrides (seat counts, auto-start) are fixed per spec §6's 3-seat rule; nothing to parse yet

	engine := bundle.NewEngine(m.Shuffler)
	table := tableagg.NewTable("", ownerID, gameName, gameConfig, engine)
	table.MinSeats = tableConfig.MinSeats
	table.MaxSeats = tableConfig.MaxSeats

	return m.Tables.Create(ctx, table)
}

// RemoveTable deletes a not-yet-started table outright, or cancels one
// already in progress (mirrors remove_table's not_started/else branch).
func (m *TableManager) RemoveTable(ctx context.Context, tableID, initiatedBy string) error {
	table, err := m.Tables.FindByID(ctx, tableID)
	if err != nil {
		return err
	}
	if err := m.validateOwner(table, initiatedBy); err != nil {
		return err
	}
	if table.Status == tableagg.StatusNotStarted {
		return m.Tables.Delete(ctx, tableID)
	}
	_, err = m.Tables.Modify(ctx, tableID, func(t *tableagg.Table) error {
		t.CancelGame()
		return nil
	})
	return err
}

// GetTable returns the current aggregate for tableID.
func (m *TableManager) GetTable(ctx context.Context, tableID string) (*tableagg.Table, error) {
	return m.Tables.FindByID(ctx, tableID)
}

// JoinTable seats userID, optionally at preferredSeat.
func (m *TableManager) JoinTable(ctx context.Context, tableID, userID, screenName string, preferredSeat *fivehundred.Seat) (*tableagg.Table, error) {
	return m.Tables.Modify(ctx, tableID, func(t *tableagg.Table) error {
		return t.AddPlayer(&userID, screenName, preferredSeat, "")
	})
}

// LeaveTable removes userID's seat.
func (m *TableManager) LeaveTable(ctx context.Context, tableID, userID string) (*tableagg.Table, error) {
	return m.Tables.Modify(ctx, tableID, func(t *tableagg.Table) error {
		return t.RemovePlayer(&userID, nil)
	})
}

// AddBotPlayer seats a bot, restricted to the table owner.
func (m *TableManager) AddBotPlayer(ctx context.Context, tableID, initiatedBy string, opts BotOptions) (*tableagg.Table, error) {
	table, err := m.Tables.FindByID(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if err := m.validateOwner(table, initiatedBy); err != nil {
		return nil, err
	}
	bundle, err := m.Registry.Get(table.GameName)
	if err != nil {
		return nil, err
	}
	if _, ok := bundle.BotStrategy[opts.BotStrategyKind]; !ok {
		return nil, &fivehundred.RulesError{Code: "unknown_bot_strategy", Message: string(opts.BotStrategyKind)}
	}
	return m.Tables.Modify(ctx, tableID, func(t *tableagg.Table) error {
		return t.AddPlayer(nil, "", opts.PreferredSeat, opts.BotStrategyKind)
	})
}

// RemoveBotPlayer removes whichever bot occupies seatNumber, restricted to
// the table owner.
func (m *TableManager) RemoveBotPlayer(ctx context.Context, tableID, initiatedBy string, seatNumber fivehundred.Seat) (*tableagg.Table, error) {
	table, err := m.Tables.FindByID(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if err := m.validateOwner(table, initiatedBy); err != nil {
		return nil, err
	}
	return m.Tables.Modify(ctx, tableID, func(t *tableagg.Table) error {
		return t.RemovePlayer(nil, &seatNumber)
	})
}

// StartGame deals the first round, restricted to the table owner.
func (m *TableManager) StartGame(ctx context.Context, tableID, initiatedBy string) ([]fivehundred.Event, *tableagg.Table, error) {
	table, err := m.Tables.FindByID(ctx, tableID)
	if err != nil {
		return nil, nil, err
	}
	if err := m.validateOwner(table, initiatedBy); err != nil {
		return nil, nil, err
	}
	return m.Tables.ModifyDuringGameAction(ctx, tableID, func(t *tableagg.Table) ([]fivehundred.Event, error) {
		return t.StartGame()
	})
}

// TakeRegularTurn routes a human-submitted command, validated against the
// active seat's occupant by Table.TakeRegularTurn itself.
func (m *TableManager) TakeRegularTurn(ctx context.Context, tableID, userID string, cmd fivehundred.Command) ([]fivehundred.Event, *tableagg.Table, error) {
	start := time.Now()
	events, table, err := m.Tables.ModifyDuringGameAction(ctx, tableID, func(t *tableagg.Table) ([]fivehundred.Event, error) {
		return t.TakeRegularTurn(userID, cmd)
	})
	m.recordCommandMetrics(ctx, tableID, fmt.Sprintf("%T", cmd), table, start, events, err)
	return events, table, err
}

// recordCommandMetrics reports a command's outcome to internal/metrics.
// Best-effort: on rejection the row-locked transaction never returns a
// table, so the game name is re-read once for labeling only; a failure
// there just means the metric is skipped, never that the command fails.
func (m *TableManager) recordCommandMetrics(ctx context.Context, tableID string, kind string, table *tableagg.Table, start time.Time, events []fivehundred.Event, err error) {
	gameName := "unknown"
	if table != nil {
		gameName = string(table.GameName)
	} else if t, lookupErr := m.Tables.FindByID(ctx, tableID); lookupErr == nil {
		gameName = string(t.GameName)
	}

	if err != nil {
		if rulesErr, ok := err.(*fivehundred.RulesError); ok {
			metrics.RecordCommandRejected(gameName, kind, rulesErr.Code)
		}
		return
	}

	metrics.RecordCommandProcessed(gameName, kind, time.Since(start).Seconds(), len(events))
	eventTypeCounts := make(map[string]int, len(events))
	for _, e := range events {
		env, encErr := fivehundred.EncodeEvent(e)
		if encErr != nil {
			continue
		}
		eventTypeCounts[env.Type]++
	}
	metrics.RecordEventsAppended(gameName, eventTypeCounts)
}

// TakeAutomaticTurn lets whichever bot currently occupies the active seat
// act. initiatedBy must be the table owner or the user of a seated player;
// the background bot scheduler calls it as the owner. The table itself only
// checks that the game is in progress and that the active seat is a bot.
func (m *TableManager) TakeAutomaticTurn(ctx context.Context, tableID, initiatedBy string) ([]fivehundred.Event, *tableagg.Table, error) {
	table, err := m.Tables.FindByID(ctx, tableID)
	if err != nil {
		return nil, nil, err
	}
	isMember := table.OwnerID == initiatedBy
	for _, p := range table.Players {
		if p.UserID != nil && *p.UserID == initiatedBy {
			isMember = true
		}
	}
	if !isMember {
		return nil, nil, &fivehundred.RulesError{Code: "not_table_member", Message: "could not perform an action: not a player at this table"}
	}
	start := time.Now()
	events, updated, err := m.Tables.ModifyDuringGameAction(ctx, tableID, func(t *tableagg.Table) ([]fivehundred.Event, error) {
		return t.TakeAutomaticTurn()
	})
	metricsTable := updated
	if metricsTable == nil {
		metricsTable = table // already fetched above, avoids a redundant lookup on the error path
	}
	m.recordCommandMetrics(ctx, tableID, "take_automatic_turn", metricsTable, start, events, err)
	return events, updated, err
}

// CancelGame marks a not-yet-finished table cancelled.
func (m *TableManager) CancelGame(ctx context.Context, tableID string) (*tableagg.Table, error) {
	return m.Tables.Modify(ctx, tableID, func(t *tableagg.Table) error {
		t.CancelGame()
		return nil
	})
}

// AbortGame marks the table aborted, attributing blame to blamedSeat.
func (m *TableManager) AbortGame(ctx context.Context, tableID string, blamedSeat *fivehundred.Seat) ([]fivehundred.Event, *tableagg.Table, error) {
	return m.Tables.ModifyDuringGameAction(ctx, tableID, func(t *tableagg.Table) ([]fivehundred.Event, error) {
		return t.AbortGame(blamedSeat)
	})
}

// GetGameStateSnapshot reconstructs the authoritative state as of
// eventNumber (spec §4.5's replay contract): an exact cache hit returns
// immediately, otherwise events are replayed forward from the nearest
// cached snapshot (or the table's pre-deal state) and the intermediate
// states are stored back into the cache in one batch.
func (m *TableManager) GetGameStateSnapshot(ctx context.Context, tableID string, eventNumber int) (fivehundred.Game, error) {
	table, err := m.Tables.FindByID(ctx, tableID)
	if err != nil {
		return fivehundred.Game{}, err
	}

	cached, exact, err := m.Snapshots.GetExactOrNearest(ctx, tableID, eventNumber)
	if err != nil {
		return fivehundred.Game{}, err
	}
	if cached != nil && exact {
		return cached.Game, nil
	}

	if eventNumber > table.Game.ReplaySafeEventNumber {
		return fivehundred.Game{}, &fivehundred.RulesError{
			Code:    "event_number_too_large",
			Message: fmt.Sprintf("event %d is ahead of the table's replay-safe position %d", eventNumber, table.Game.ReplaySafeEventNumber),
		}
	}

	var state fivehundred.Game
	startSeq := 1
	if cached != nil {
		state = cached.Game
		startSeq = cached.EventNumber + 1
	} else {
		seats := make([]fivehundred.Seat, len(table.Players))
		for i, p := range table.Players {
			seats[i] = p.SeatNumber
		}
		state = fivehundred.NewGame(seats, table.GameConfig)
	}

	events, err := m.Events.FindMany(ctx, tableID, startSeq, eventNumber)
	if err != nil {
		return fivehundred.Game{}, err
	}

	snapshots := make([]Snapshot, 0, len(events))
	for _, event := range events {
		state, err = fivehundred.ApplyEvent(state, table.Engine.Shuffler, event)
		if err != nil {
			return fivehundred.Game{}, err
		}
		if state.EventNumber != event.SeqNumber() {
			return fivehundred.Game{}, &fivehundred.InternalError{Reason: "event_number_mismatch"}
		}
		snapshots = append(snapshots, Snapshot{EventNumber: state.EventNumber, Game: state})
	}

	if len(snapshots) > 0 {
		if err := m.Snapshots.Store(ctx, tableID, snapshots); err != nil {
			return fivehundred.Game{}, err
		}
	}

	return state, nil
}
