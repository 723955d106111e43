// Package metrics declares the package-level Prometheus collectors and
// RecordXxx helper functions the rest of the module reports through.
// Adapted from internal/fraud/metrics.go's promauto-var-block idiom,
// repurposed from fraud-pipeline metrics to table/command/snapshot metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TablesActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gametable_tables_active",
		Help: "Number of tables currently in a given status",
	}, []string{"game_name", "status"})

	CommandsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gametable_commands_processed_total",
		Help: "Total number of commands successfully processed",
	}, []string{"game_name", "command_kind"})

	CommandsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gametable_commands_rejected_total",
		Help: "Total number of commands rejected with a rules error",
	}, []string{"game_name", "command_kind", "reason"})

	CommandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gametable_command_duration_seconds",
		Help:    "Time spent processing one command end to end",
		Buckets: prometheus.DefBuckets,
	}, []string{"game_name"})

	EventsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gametable_events_appended_total",
		Help: "Total number of events appended to a table's event log",
	}, []string{"game_name", "event_type"})

	EventAppendBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gametable_event_append_batch_size",
		Help:    "Number of events produced by a single command",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
	})

	SnapshotCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gametable_snapshot_cache_results_total",
		Help: "Snapshot cache lookups, by result",
	}, []string{"result"})

	SnapshotsBackfilled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gametable_snapshots_backfilled_total",
		Help: "Total number of snapshots written by the background backfill worker",
	}, []string{"game_name"})

	FanoutConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gametable_fanout_connections",
		Help: "Number of live WebSocket connections",
	})

	BotTurnsTaken = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gametable_bot_turns_total",
		Help: "Total number of automatic turns taken by the bot scheduler",
	}, []string{"game_name", "result"})
)

// RecordCommandProcessed records a successfully applied command.
func RecordCommandProcessed(gameName, commandKind string, durationSeconds float64, eventCount int) {
	CommandsProcessed.WithLabelValues(gameName, commandKind).Inc()
	CommandDuration.WithLabelValues(gameName).Observe(durationSeconds)
	EventAppendBatchSize.Observe(float64(eventCount))
}

// RecordCommandRejected records a command a RulesError stopped.
func RecordCommandRejected(gameName, commandKind, reason string) {
	CommandsRejected.WithLabelValues(gameName, commandKind, reason).Inc()
}

// RecordEventsAppended records one append batch, per distinct event type.
func RecordEventsAppended(gameName string, eventTypeCounts map[string]int) {
	for eventType, count := range eventTypeCounts {
		EventsAppended.WithLabelValues(gameName, eventType).Add(float64(count))
	}
}

// RecordSnapshotCacheResult records an exact hit, a nearest-prior hit, or a
// total miss.
func RecordSnapshotCacheResult(result string) {
	SnapshotCacheHits.WithLabelValues(result).Inc()
}

// RecordSnapshotsBackfilled records the background worker writing n
// snapshots for gameName.
func RecordSnapshotsBackfilled(gameName string, n int) {
	SnapshotsBackfilled.WithLabelValues(gameName).Add(float64(n))
}

// RecordBotTurn records the bot scheduler's outcome for one table on one
// poll tick.
func RecordBotTurn(gameName string, succeeded bool) {
	result := "ok"
	if !succeeded {
		result = "error"
	}
	BotTurnsTaken.WithLabelValues(gameName, result).Inc()
}

// SetTablesActive sets the current table-count gauge for one
// (game, status) pair, for a caller that periodically recomputes it from
// storage rather than tracking deltas incrementally.
func SetTablesActive(gameName, status string, count float64) {
	TablesActive.WithLabelValues(gameName, status).Set(count)
}
