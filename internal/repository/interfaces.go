package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/octane/cashier/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// TicketRepository provides access to the tickets table. Finders return
// (nil, nil) when no row matches.
type TicketRepository interface {
	// FindByID returns a ticket by id.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.PhysicalTicket, error)

	// LockForUpdate acquires a row-level lock (SELECT FOR UPDATE) on the
	// ticket. Must run inside a transaction; this is the mutual-exclusion
	// boundary that makes payout at-most-once.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.PhysicalTicket, error)

	// LockByCode is LockForUpdate keyed by the normalized ticket code.
	LockByCode(ctx context.Context, tx pgx.Tx, code string) (*domain.PhysicalTicket, error)

	// Insert persists a freshly issued ticket. A unique violation on the
	// code column comes back as CODE_COLLISION so the caller can regenerate.
	Insert(ctx context.Context, db DBTX, t *domain.PhysicalTicket) error

	// UpdateState writes the mutable columns (status, balances, payout
	// fields) of a locked row and returns the stored row.
	UpdateState(ctx context.Context, tx pgx.Tx, t *domain.PhysicalTicket) (*domain.PhysicalTicket, error)
}

// EntryRepository provides access to the append-only ticket_entries table.
type EntryRepository interface {
	// Insert appends an audit entry.
	Insert(ctx context.Context, db DBTX, e domain.TicketEntry) error

	// ListByTicket returns a ticket's trail, oldest first.
	ListByTicket(ctx context.Context, db DBTX, ticketID uuid.UUID) ([]domain.TicketEntry, error)
}

// OutboxRow is an event_outbox row plus its publish-order sequence id.
type OutboxRow struct {
	SeqID int64
	domain.OutboxDraft
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event (within the same transaction as the
	// mutation it describes).
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error

	// FetchUnpublished returns unpublished events in sequence order.
	FetchUnpublished(ctx context.Context, db DBTX, limit int) ([]OutboxRow, error)

	// MarkPublished stamps events as published.
	MarkPublished(ctx context.Context, db DBTX, ids []int64) error
}

// OperatorRepository provides access to the operators table.
type OperatorRepository interface {
	// FindByEmail returns an operator by email.
	FindByEmail(ctx context.Context, db DBTX, email string) (*domain.Operator, error)

	// FindByID returns an operator by id.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Operator, error)

	// Create inserts a new operator.
	Create(ctx context.Context, db DBTX, op *domain.Operator) error
}
