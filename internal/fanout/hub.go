// Package fanout implements the per-connection WebSocket fan-out (C9):
// a Hub groups connections by table, and each Consumer's read loop parses
// incoming {action, data} messages, dispatches them to the table manager,
// and broadcasts the resulting state to every connection in the group —
// each one projecting down to its own authenticated seat. Grounded in
// cmd/game-server/main.go's GameServer (gorilla/websocket upgrade, a
// table-keyed connection map, a blocking per-connection read loop),
// generalized from one global map to a group-broadcast Hub.
package fanout

import (
	"context"
	"fmt"
	"log"
	"sync"

	"gametable/internal/fivehundred"
	"gametable/internal/metrics"
	"gametable/internal/tableagg"
)

// groupKey names a broadcast group the same way the original system scoped
// its pub/sub channels: one group per (game, table).
func groupKey(gameName, tableID string) string {
	return fmt.Sprintf("table_%s_%s", gameName, tableID)
}

// EventSink mirrors a game action's events to durable side channels
// (Kafka, the analytics warehouse) outside the broadcast path, invoked in
// its own goroutine after a game action is processed — the same
// fire-into-a-side-channel-and-never-block-the-connection shape
// cmd/game-server/main.go used to hand every action to its fraud service.
type EventSink interface {
	MirrorGameAction(ctx context.Context, table *tableagg.Table, events []fivehundred.Event)
}

// Hub tracks which Consumers belong to which table's broadcast group.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[*Consumer]struct{}
	sink   EventSink
}

// NewHub builds an empty hub with no event sink wired in.
func NewHub() *Hub {
	return &Hub{groups: make(map[string]map[*Consumer]struct{})}
}

// SetSink wires a durable-mirror sink into the hub; every subsequent game
// action broadcast also fires sink.MirrorGameAction in its own goroutine.
// Optional: a hub with no sink set behaves exactly as before.
func (h *Hub) SetSink(sink EventSink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sink = sink
}

// Join adds a consumer to a table's group.
func (h *Hub) Join(gameName, tableID string, c *Consumer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := groupKey(gameName, tableID)
	if h.groups[key] == nil {
		h.groups[key] = make(map[*Consumer]struct{})
	}
	h.groups[key][c] = struct{}{}
	metrics.FanoutConnections.Inc()
}

// Leave removes a consumer from a table's group. Idempotent, matching
// spec's "connection close discards group membership" guarantee.
func (h *Hub) Leave(gameName, tableID string, c *Consumer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := groupKey(gameName, tableID)
	group := h.groups[key]
	if group == nil {
		return
	}
	if _, ok := group[c]; !ok {
		return
	}
	delete(group, c)
	metrics.FanoutConnections.Dec()
	if len(group) == 0 {
		delete(h.groups, key)
	}
}

// Broadcast hands build(consumer) to every member of (gameName, tableID)'s
// group, in group iteration order, so each consumer can render its own
// seat-private projection of a shared event. A member whose channel is full
// is skipped rather than blocking the rest of the group.
func (h *Hub) Broadcast(gameName, tableID string, build func(c *Consumer) ([]byte, error)) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	key := groupKey(gameName, tableID)
	for c := range h.groups[key] {
		payload, err := build(c)
		if err != nil {
			log.Printf("fanout: build broadcast payload for %s: %v", c.userID, err)
			continue
		}
		select {
		case c.send <- payload:
		default:
			log.Printf("fanout: send buffer full, dropping broadcast to %s", c.userID)
		}
	}
}
