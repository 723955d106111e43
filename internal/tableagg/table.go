package tableagg

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"gametable/internal/fivehundred"
)

// Table is one table's full aggregate: seating plus the authoritative game
// state, mutated only through the methods below. It carries no locking of
// its own — internal/tablemanager is responsible for serializing access
// per table (spec §4.5/§4.6); Table itself assumes single-threaded callers.
type Table struct {
	ID         string
	OwnerID    string
	GameName   fivehundred.GameName
	GameConfig fivehundred.GameConfig
	MaxSeats   int
	MinSeats   int

	Players []Player
	Status  Status

	Engine fivehundred.Engine
	Game   fivehundred.Game
	Events []fivehundred.Event // full ordered event log produced so far
}

// NewTable creates an empty, not-yet-started table.
func NewTable(id, ownerID string, gameName fivehundred.GameName, gameConfig fivehundred.GameConfig, engine fivehundred.Engine) *Table {
	return &Table{
		ID:         id,
		OwnerID:    ownerID,
		GameName:   gameName,
		GameConfig: gameConfig,
		MaxSeats:   fivehundred.MaxSeats,
		MinSeats:   fivehundred.MinSeats,
		Status:     StatusNotStarted,
		Engine:     engine,
	}
}

// ActivePlayer returns whoever occupies the game's active seat.
func (t *Table) ActivePlayer() (Player, error) {
	for _, p := range t.Players {
		if p.SeatNumber == t.Game.ActiveSeat {
			return p, nil
		}
	}
	return Player{}, fmt.Errorf("no player seated at active seat %d", t.Game.ActiveSeat)
}

// AddPlayer seats a human or bot player, assigning a random available seat
// unless preferredSeat is non-nil.
func (t *Table) AddPlayer(userID *string, screenName string, preferredSeat *fivehundred.Seat, botKind fivehundred.BotStrategyKind) error {
	if t.Status != StatusNotStarted {
		return fmt.Errorf("table %s: game already started, cannot add player", t.ID)
	}
	if len(t.Players) >= t.MaxSeats {
		return fmt.Errorf("table %s: full", t.ID)
	}
	if userID != nil {
		for _, p := range t.Players {
			if p.UserID != nil && *p.UserID == *userID {
				return fmt.Errorf("table %s: player %s already seated", t.ID, *userID)
			}
		}
	}

	taken := make(map[fivehundred.Seat]bool, len(t.Players))
	for _, p := range t.Players {
		taken[p.SeatNumber] = true
	}
	available := make([]fivehundred.Seat, 0, t.MaxSeats)
	for n := 1; n <= t.MaxSeats; n++ {
		seat := fivehundred.Seat(n)
		if !taken[seat] {
			available = append(available, seat)
		}
	}
	if len(available) == 0 {
		return fmt.Errorf("table %s: no available seats", t.ID)
	}

	var seat fivehundred.Seat
	if preferredSeat != nil {
		found := false
		for _, s := range available {
			if s == *preferredSeat {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("table %s: preferred seat %d is not available", t.ID, *preferredSeat)
		}
		seat = *preferredSeat
	} else {
		seat = available[rand.Intn(len(available))]
	}

	playerID := humanPlayerID(userID)
	if userID == nil {
		playerID = botPlayerID()
	}
	if screenName == "" {
		screenName = fmt.Sprintf("bot_%d", seat)
	}

	t.Players = append(t.Players, Player{
		PlayerID:   playerID,
		SeatNumber: seat,
		ScreenName: screenName,
		BotKind:    botKind,
		UserID:     userID,
	})
	return nil
}

// RemovePlayer removes whichever player matches userID (if non-nil) or
// seatNumber otherwise. Only legal before the game has started.
func (t *Table) RemovePlayer(userID *string, seatNumber *fivehundred.Seat) error {
	if t.Status != StatusNotStarted {
		return fmt.Errorf("table %s: game already started, cannot remove player", t.ID)
	}
	idx := -1
	for i, p := range t.Players {
		switch {
		case userID != nil && p.UserID != nil && *p.UserID == *userID:
			idx = i
		case userID == nil && seatNumber != nil && p.SeatNumber == *seatNumber:
			idx = i
		}
		if idx != -1 {
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("table %s: no matching player to remove", t.ID)
	}
	t.Players = append(t.Players[:idx], t.Players[idx+1:]...)
	return nil
}

// StartGame deals the first round and transitions the table to in-progress.
func (t *Table) StartGame() ([]fivehundred.Event, error) {
	if t.Status != StatusNotStarted {
		return nil, fmt.Errorf("table %s: already in progress or ended", t.ID)
	}
	if len(t.Players) < t.MinSeats {
		return nil, fmt.Errorf("table %s: not enough players to start", t.ID)
	}

	seats := make([]fivehundred.Seat, len(t.Players))
	for i, p := range t.Players {
		seats[i] = p.SeatNumber
	}

	game, events, err := t.Engine.StartGame(seats, t.GameConfig)
	if err != nil {
		return nil, err
	}
	t.Game = game
	t.Status = StatusInProgress
	t.Events = append(t.Events, events...)
	return events, nil
}

// TakeRegularTurn routes a human-submitted command through the engine,
// rejecting it if it isn't that user's turn.
func (t *Table) TakeRegularTurn(userID string, cmd fivehundred.Command) ([]fivehundred.Event, error) {
	if err := t.validateCanTakeTurn(); err != nil {
		return nil, err
	}
	active, err := t.ActivePlayer()
	if err != nil {
		return nil, err
	}
	if active.UserID == nil || *active.UserID != userID {
		return nil, fmt.Errorf("table %s: not user %s's turn", t.ID, userID)
	}
	return t.takeTurn(cmd)
}

// TakeAutomaticTurn lets whichever bot currently occupies the active seat
// act. Per the source this carries no caller-identity check beyond "the
// active seat is a bot" — any table member, or the background scheduler,
// may invoke it once it is that bot's turn.
func (t *Table) TakeAutomaticTurn() ([]fivehundred.Event, error) {
	if err := t.validateCanTakeTurn(); err != nil {
		return nil, err
	}
	active, err := t.ActivePlayer()
	if err != nil {
		return nil, err
	}
	if !active.IsBot() {
		return nil, fmt.Errorf("table %s: active seat is not a bot", t.ID)
	}

	bundle, err := fivehundred.DefaultRegistry().Get(t.GameName)
	if err != nil {
		return nil, err
	}
	strategy, ok := bundle.BotStrategy[active.BotKind]
	if !ok {
		return nil, fmt.Errorf("table %s: no bot strategy registered for kind %q", t.ID, active.BotKind)
	}

	cmd, err := strategy.CreateCommand(t.Game, active.SeatNumber)
	if err != nil {
		return nil, err
	}
	return t.takeTurn(cmd)
}

func (t *Table) validateCanTakeTurn() error {
	if t.Status != StatusInProgress {
		return fmt.Errorf("table %s: game is not in progress", t.ID)
	}
	return nil
}

func (t *Table) takeTurn(cmd fivehundred.Command) ([]fivehundred.Event, error) {
	nextSeq := 1
	if len(t.Events) > 0 {
		nextSeq = t.Events[len(t.Events)-1].SeqNumber() + 1
	}
	game, events, err := t.Engine.ProcessCommand(t.Game, cmd, nextSeq)
	if err != nil {
		return nil, err
	}
	t.Game = game
	t.Events = append(t.Events, events...)
	if game.Round.Phase == fivehundred.PhaseGameEnded {
		t.Status = StatusFinished
	}
	return events, nil
}

// CancelGame marks a not-yet-finished table as cancelled (players agreed to
// call it off, or an admin did).
func (t *Table) CancelGame() {
	if t.Status != StatusFinished && t.Status != StatusAborted {
		t.Status = StatusCancelled
	}
}

// AbortGame marks the table aborted because a seat left or something
// unexpected happened, attributing blame to blamedSeat for reputation
// bookkeeping further up the stack.
func (t *Table) AbortGame(blamedSeat *fivehundred.Seat) ([]fivehundred.Event, error) {
	if t.Status != StatusInProgress {
		t.Status = StatusAborted
		return nil, nil
	}
	events, err := t.takeTurn(fivehundred.EndGameCommand{Reason: fivehundred.EndingAborted, Seat: blamedSeat})
	if err != nil {
		return nil, err
	}
	t.Status = StatusAborted
	return events, nil
}

func humanPlayerID(userID *string) string {
	if userID == nil {
		return ""
	}
	return "human-" + *userID
}

func botPlayerID() string {
	return "bot-" + uuid.NewString()
}
