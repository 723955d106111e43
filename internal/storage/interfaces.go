// Package storage defines the repository contracts (C7) that
// internal/tablemanager drives tables and their event logs through, plus
// the concrete implementations under storage/postgres.
package storage

import (
	"context"
	"time"

	"gametable/internal/fivehundred"
	"gametable/internal/tableagg"
)

// TableFilter narrows GameTableRepository.FindMany's browse results.
type TableFilter struct {
	Status   *tableagg.Status
	GameName *fivehundred.GameName
	Limit    int
	Offset   int
}

// GameTableRepository is spec §4.6's table-record contract: atomic
// creation, row-locked read-modify-write, and paginated browse.
type GameTableRepository interface {
	// Create inserts the table record plus its denormalized config rows
	// in one transaction and returns the generated id.
	Create(ctx context.Context, table *tableagg.Table) (string, error)

	// FindByID deserializes a table from its stored state blob.
	FindByID(ctx context.Context, id string) (*tableagg.Table, error)

	// Modify opens a transaction, SELECTs the row FOR UPDATE, applies fn
	// (no event emission), persists the players list and state blob
	// wholesale, and commits.
	Modify(ctx context.Context, id string, fn func(*tableagg.Table) error) (*tableagg.Table, error)

	// ModifyDuringGameAction is Modify plus event-log bookkeeping: events
	// fn returns are bulk-inserted numbered maxSeq+1.., and status/
	// updatedAt/lastEventSeq are persisted alongside the state blob.
	ModifyDuringGameAction(ctx context.Context, id string, fn func(*tableagg.Table) ([]fivehundred.Event, error)) ([]fivehundred.Event, *tableagg.Table, error)

	// FindMany is a paginated, filtered browse of table records.
	FindMany(ctx context.Context, filter TableFilter) ([]*tableagg.Table, error)

	Delete(ctx context.Context, id string) error
}

// GameEventRepository is spec §4.6's event-log contract.
type GameEventRepository interface {
	// Append bulk-inserts events numbered contiguously from the log's
	// current max sequence number, returning the last sequence number
	// assigned.
	Append(ctx context.Context, tableID string, events []fivehundred.Event) (lastSeq int, err error)

	// FindMany returns events in [start, end] inclusive, ascending by
	// sequence number. start<=0 means "from the beginning"; end<=0 means
	// "through the most recent event".
	FindMany(ctx context.Context, tableID string, start, end int) ([]fivehundred.Event, error)
}

// TableRecordMeta is the denormalized bookkeeping columns
// GameTableRepository persists alongside the JSON state blob, used by
// FindMany's filters without needing to deserialize every row's state.
type TableRecordMeta struct {
	ID             string
	OwnerID        string
	GameName       fivehundred.GameName
	Status         tableagg.Status
	LastEventSeq   int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
