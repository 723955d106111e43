package fanout

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"gametable/internal/fivehundred"
	"gametable/internal/tableagg"
	"gametable/internal/tablemanager"
)

// Close codes for connection rejection, per spec §4.8.
const (
	CloseAuthFailed   = 4003
	CloseTableMissing = 4004
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// incomingMessage is the {action, data} envelope spec §4.8 dispatches on.
type incomingMessage struct {
	Action string         `json:"action"`
	Data   map[string]any `json:"data"`
}

// errorPayload is the minimal shape an AppError serializes to, delivered
// over the live connection rather than killing it.
type errorPayload struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Reason  string `json:"reason"`
	Context string `json:"context,omitempty"`
}

// gameActionPayload is broadcast after a command is successfully applied.
type gameActionPayload struct {
	Type              string                                 `json:"type"`
	Events            []eventDTO                             `json:"events"`
	PublicGameState   fivehundred.PublicView                 `json:"public_game_state"`
	PrivateGameStates map[string]fivehundred.PrivateSeatView `json:"private_game_states"`
	TableStatus       string                                 `json:"table_status"`
}

// tableActionPayload is broadcast after table membership changes (join,
// leave, bot added/removed, game cancelled).
type tableActionPayload struct {
	Type      string   `json:"type"`
	TableData tableDTO `json:"table_data"`
}

type eventDTO struct {
	Type string `json:"type"`
	Seq  int    `json:"seq"`
}

type seatDTO struct {
	SeatNumber int    `json:"seat_number"`
	ScreenName string `json:"screen_name"`
	UserID     string `json:"user_id,omitempty"`
	BotKind    string `json:"bot_kind,omitempty"`
}

type tableDTO struct {
	ID       string    `json:"id"`
	GameName string    `json:"game_name"`
	Status   string    `json:"status"`
	MinSeats int       `json:"min_seats"`
	MaxSeats int       `json:"max_seats"`
	Seats    []seatDTO `json:"seats"`
}

func toTableDTO(t *tableagg.Table) tableDTO {
	seats := make([]seatDTO, len(t.Players))
	for i, p := range t.Players {
		dto := seatDTO{SeatNumber: int(p.SeatNumber), ScreenName: p.ScreenName}
		if p.UserID != nil {
			dto.UserID = *p.UserID
		} else {
			dto.BotKind = string(p.BotKind)
		}
		seats[i] = dto
	}
	return tableDTO{
		ID: t.ID, GameName: string(t.GameName), Status: t.Status.String(),
		MinSeats: t.MinSeats, MaxSeats: t.MaxSeats, Seats: seats,
	}
}

func toEventDTOs(events []fivehundred.Event) []eventDTO {
	out := make([]eventDTO, len(events))
	for i, e := range events {
		env, err := fivehundred.EncodeEvent(e)
		if err != nil {
			continue
		}
		out[i] = eventDTO{Type: env.Type, Seq: env.Seq}
	}
	return out
}

func privateStatesFor(table *tableagg.Table) map[string]fivehundred.PrivateSeatView {
	states := make(map[string]fivehundred.PrivateSeatView)
	for _, p := range table.Players {
		if p.UserID == nil {
			continue
		}
		states[*p.UserID] = table.Game.ToPrivateView(p.SeatNumber)
	}
	return states
}

// Consumer is one live WebSocket connection: its read loop parses commands,
// its write loop drains the send channel filled in by Hub.Broadcast.
type Consumer struct {
	ctx      context.Context
	conn     *websocket.Conn
	hub      *Hub
	manager  *tablemanager.TableManager
	userID   string
	tableID  string
	gameName string
	send     chan []byte
}

// ServeWS upgrades an HTTP request to a WebSocket connection, resolves and
// validates the table, registers the consumer in the hub, and blocks
// running its read/write loops until the connection closes.
func ServeWS(w http.ResponseWriter, r *http.Request, hub *Hub, manager *tablemanager.TableManager, tableID, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("fanout: upgrade failed: %v", err)
		return
	}

	ctx := r.Context()
	table, err := manager.GetTable(ctx, tableID)
	if err != nil {
		closeWithCode(conn, CloseTableMissing, "table not found")
		return
	}

	c := &Consumer{
		ctx: ctx, conn: conn, hub: hub, manager: manager,
		userID: userID, tableID: tableID, gameName: string(table.GameName),
		send: make(chan []byte, 16),
	}

	hub.Join(c.gameName, c.tableID, c)
	defer hub.Leave(c.gameName, c.tableID, c)

	go c.writeLoop()
	c.readLoop()
}

func closeWithCode(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(5*time.Second))
	_ = conn.Close()
}

func (c *Consumer) writeLoop() {
	defer c.conn.Close()
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (c *Consumer) readLoop() {
	defer close(c.send)
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("fanout: connection error for %s: %v", c.userID, err)
			}
			return
		}

		var msg incomingMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError(&fivehundred.RulesError{Code: "invalid_message", Message: err.Error()})
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Consumer) sendError(err error) {
	payload := errorPayload{Type: "error"}
	switch e := err.(type) {
	case *fivehundred.RulesError:
		payload.Code = e.Code
		payload.Reason = e.Message
	case *fivehundred.InternalError:
		payload.Code = "internal_error"
		payload.Reason = e.Reason
	default:
		payload.Code = "internal_error"
		payload.Reason = err.Error()
	}
	data, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// dispatch parses the action, calls into the table manager, and broadcasts
// the result to the whole group. Table-membership actions produce a
// table.action broadcast; in-game commands produce a game.action broadcast.
func (c *Consumer) dispatch(msg incomingMessage) {
	ctx := c.ctx
	switch msg.Action {
	case "join_table":
		screenName, _ := msg.Data["screen_name"].(string)
		seat := seatFromData(msg.Data)
		if _, err := c.manager.JoinTable(ctx, c.tableID, c.userID, screenName, seat); err != nil {
			c.sendError(err)
			return
		}
		c.broadcastTableAction()

	case "leave_table":
		if _, err := c.manager.LeaveTable(ctx, c.tableID, c.userID); err != nil {
			c.sendError(err)
			return
		}
		c.broadcastTableAction()

	case "add_bot":
		kind, _ := msg.Data["bot_kind"].(string)
		seat := seatFromData(msg.Data)
		opts := tablemanager.BotOptions{BotStrategyKind: fivehundred.BotStrategyKind(kind), PreferredSeat: seat}
		if _, err := c.manager.AddBotPlayer(ctx, c.tableID, c.userID, opts); err != nil {
			c.sendError(err)
			return
		}
		c.broadcastTableAction()

	case "remove_bot":
		seat := seatFromData(msg.Data)
		if seat == nil {
			c.sendError(&fivehundred.RulesError{Code: "missing_seat_number"})
			return
		}
		if _, err := c.manager.RemoveBotPlayer(ctx, c.tableID, c.userID, *seat); err != nil {
			c.sendError(err)
			return
		}
		c.broadcastTableAction()

	case "start_game":
		events, table, err := c.manager.StartGame(ctx, c.tableID, c.userID)
		if err != nil {
			c.sendError(err)
			return
		}
		c.broadcastGameAction(events, table)

	case "cancel_game":
		if _, err := c.manager.CancelGame(ctx, c.tableID); err != nil {
			c.sendError(err)
			return
		}
		c.broadcastTableAction()

	case "take_automatic_turn":
		events, table, err := c.manager.TakeAutomaticTurn(ctx, c.tableID, c.userID)
		if err != nil {
			c.sendError(err)
			return
		}
		c.broadcastGameAction(events, table)

	default:
		c.dispatchGameCommand(msg)
	}
}

// dispatchGameCommand handles the regular-turn command kinds (make_bid,
// pass_cards, play_card, give_up, end_game) — anything ParseCommand knows
// how to build for the acting seat.
func (c *Consumer) dispatchGameCommand(msg incomingMessage) {
	table, err := c.manager.GetTable(c.ctx, c.tableID)
	if err != nil {
		c.sendError(err)
		return
	}
	var actingSeat fivehundred.Seat
	for _, p := range table.Players {
		if p.UserID != nil && *p.UserID == c.userID {
			actingSeat = p.SeatNumber
		}
	}

	bundle, err := fivehundred.DefaultRegistry().Get(table.GameName)
	if err != nil {
		c.sendError(err)
		return
	}
	cmd, err := bundle.ParseCommand(msg.Action, actingSeat, msg.Data)
	if err != nil {
		c.sendError(&fivehundred.RulesError{Code: "invalid_command", Message: err.Error()})
		return
	}

	events, updated, err := c.manager.TakeRegularTurn(c.ctx, c.tableID, c.userID, cmd)
	if err != nil {
		c.sendError(err)
		return
	}
	c.broadcastGameAction(events, updated)
}

func (c *Consumer) broadcastGameAction(events []fivehundred.Event, table *tableagg.Table) {
	allPrivateStates := privateStatesFor(table)
	c.hub.Broadcast(c.gameName, c.tableID, func(target *Consumer) ([]byte, error) {
		var ownState map[string]fivehundred.PrivateSeatView
		if view, ok := allPrivateStates[target.userID]; ok {
			ownState = map[string]fivehundred.PrivateSeatView{target.userID: view}
		}
		return json.Marshal(gameActionPayload{
			Type:              "game.action",
			Events:            toEventDTOs(events),
			PublicGameState:   table.Game.ToPublicView(),
			PrivateGameStates: ownState,
			TableStatus:       table.Status.String(),
		})
	})
	c.hub.mu.RLock()
	sink := c.hub.sink
	c.hub.mu.RUnlock()
	if sink != nil {
		go sink.MirrorGameAction(context.Background(), table, events)
	}
}

func (c *Consumer) broadcastTableAction() {
	table, err := c.manager.GetTable(c.ctx, c.tableID)
	if err != nil {
		c.sendError(err)
		return
	}
	c.hub.Broadcast(c.gameName, c.tableID, func(target *Consumer) ([]byte, error) {
		return json.Marshal(tableActionPayload{Type: "table.action", TableData: toTableDTO(table)})
	})
}

func seatFromData(data map[string]any) *fivehundred.Seat {
	v, ok := data["seat_number"]
	if !ok {
		return nil
	}
	n, ok := v.(float64)
	if !ok {
		return nil
	}
	seat := fivehundred.Seat(int(n))
	return &seat
}
