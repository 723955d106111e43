package tasklock

import (
	"context"
	"log"
	"sync"
	"time"

	"gametable/internal/fivehundred"
	"gametable/internal/metrics"
	"gametable/internal/storage"
	"gametable/internal/tableagg"
)

// turnTaker is the one TableManager method BotScheduler drives bots
// through. Kept as a narrow interface (rather than the concrete
// *tablemanager.TableManager) so the poll-and-select logic can be tested
// without a full engine/registry wiring.
type turnTaker interface {
	TakeAutomaticTurn(ctx context.Context, tableID, initiatedBy string) ([]fivehundred.Event, *tableagg.Table, error)
}

// BotScheduler is the background counterpart of a human player clicking
// "play" on a bot's turn: it polls in-progress tables and, for any whose
// active seat is a bot, drives that bot's turn. Adapted from
// internal/game/table.go's ticker-driven gameLoop goroutine, generalized
// from one table's direct state mutation to a fleet-wide poll that calls
// back into TableManager.TakeAutomaticTurn through the same row-locked path
// a human action would use.
type BotScheduler struct {
	tables   storage.GameTableRepository
	manager  turnTaker
	interval time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewBotScheduler wires a BotScheduler to poll every interval.
func NewBotScheduler(tables storage.GameTableRepository, manager turnTaker, interval time.Duration) *BotScheduler {
	return &BotScheduler{
		tables:   tables,
		manager:  manager,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start runs the poll loop in a goroutine until ctx is cancelled or Stop is
// called.
func (s *BotScheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop signals the loop to exit and waits for it to finish.
func (s *BotScheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

func (s *BotScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *BotScheduler) tick(ctx context.Context) {
	inProgress := tableagg.StatusInProgress
	tables, err := s.tables.FindMany(ctx, storage.TableFilter{Status: &inProgress})
	if err != nil {
		log.Printf("tasklock: bot scheduler poll failed: %v", err)
		return
	}

	for _, table := range tables {
		active, err := table.ActivePlayer()
		if err != nil || !active.IsBot() {
			continue
		}
		_, _, err = s.manager.TakeAutomaticTurn(ctx, table.ID, table.OwnerID)
		metrics.RecordBotTurn(string(table.GameName), err == nil)
		if err != nil {
			log.Printf("tasklock: automatic turn for table %s seat %d failed: %v", table.ID, active.SeatNumber, err)
		}
	}
}
