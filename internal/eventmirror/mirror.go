// Package eventmirror fans committed game events out to the durable side
// channels (the Kafka event log, the analytics warehouse) that the core
// command/event pipeline itself does not depend on. It implements
// fanout.EventSink, invoked in its own goroutine after every broadcast
// game action, mirroring cmd/game-server/main.go's non-blocking
// "send every action to the fraud service" glue, repurposed here to mirror
// events durably rather than score them for abuse.
package eventmirror

import (
	"context"
	"log"
	"time"

	"gametable/internal/analytics"
	"gametable/internal/eventbus"
	"gametable/internal/fivehundred"
	"gametable/internal/tableagg"
)

// Mirror implements fanout.EventSink. Either dependency may be nil — a nil
// Publisher skips the Kafka mirror, a nil Repository skips analytics
// recording — so a deployment without Kafka or ClickHouse configured still
// serves gameplay normally.
type Mirror struct {
	publisher *eventbus.Publisher
	analytics analytics.Repository
}

// New wires a Mirror. Pass nil for either dependency to disable it.
func New(publisher *eventbus.Publisher, repo analytics.Repository) *Mirror {
	return &Mirror{publisher: publisher, analytics: repo}
}

// MirrorGameAction publishes events onto Kafka and records round/game
// outcomes into the analytics sink. Failures here are logged, never
// propagated: a downed Kafka broker or ClickHouse cluster must not affect
// the table's own authoritative state.
func (m *Mirror) MirrorGameAction(ctx context.Context, table *tableagg.Table, events []fivehundred.Event) {
	if m.publisher != nil {
		if err := m.publisher.PublishBatch(ctx, table.ID, table.GameName, events); err != nil {
			log.Printf("eventmirror: publish batch for table %s: %v", table.ID, err)
		}
	}
	if m.analytics == nil {
		return
	}
	now := time.Now()
	for _, e := range events {
		switch ev := e.(type) {
		case fivehundred.RoundFinishedEvent:
			m.recordRound(ctx, table, ev, now)
		case fivehundred.GameEndedEvent:
			m.recordGame(ctx, table, ev, now)
		}
	}
}

func (m *Mirror) recordRound(ctx context.Context, table *tableagg.Table, ev fivehundred.RoundFinishedEvent, now time.Time) {
	if len(table.Game.Results) == 0 {
		return
	}
	results := table.Game.Results[len(table.Game.Results)-1]
	record := analytics.FromRoundFinished(table.ID, table.GameName, ev, results, now)
	if err := m.analytics.RecordRound(ctx, record); err != nil {
		log.Printf("eventmirror: record round for table %s: %v", table.ID, err)
	}
}

func (m *Mirror) recordGame(ctx context.Context, table *tableagg.Table, ev fivehundred.GameEndedEvent, now time.Time) {
	winners := table.Game.Winners()
	record := analytics.FromGameEnded(table.ID, table.GameName, winners, ev.Reason, len(table.Game.Results), now)
	if err := m.analytics.RecordGame(ctx, record); err != nil {
		log.Printf("eventmirror: record game for table %s: %v", table.ID, err)
	}
}
