// Package store owns the physical ticket population. It enforces the
// lifecycle state machine, code uniqueness, lazy expiry, and the atomic
// check-then-commit payout boundary.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/octane/cashier/internal/domain"
)

// TicketStore is the ownership boundary for physical tickets. Two
// implementations exist: the mutex-guarded MemoryStore for unit tests and
// single-terminal dev mode, and the Postgres store for production, which
// takes a row lock for the same atomicity.
//
// Every method either fully applies or leaves the store unchanged. Reads
// have one permitted side effect: the lazy expiry transition, which is
// persisted when it fires so two reads never disagree.
type TicketStore interface {
	// CreateTicket allocates a fresh unique code and persists a new ticket
	// in not_played state with balance equal to the deposit.
	CreateTicket(ctx context.Context, params domain.CreateTicketParams) (*domain.PhysicalTicket, error)

	// GetByID returns a snapshot, evaluating lazy expiry first.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PhysicalTicket, error)

	// GetByCode normalizes the code, evaluates lazy expiry, and returns a
	// snapshot.
	GetByCode(ctx context.Context, code string) (*domain.PhysicalTicket, error)

	// ApplyGameplay applies a balance debit / winnings credit from the
	// gameplay backend and recomputes status transitions.
	ApplyGameplay(ctx context.Context, id uuid.UUID, delta domain.GameplayDelta) (*domain.PhysicalTicket, error)

	// CommitPayout recomputes eligibility and transitions to paid_out as one
	// atomic operation. Of two concurrent calls for the same ticket exactly
	// one succeeds; the loser observes the committed state and gets
	// PAYOUT_NOT_ELIGIBLE.
	CommitPayout(ctx context.Context, id uuid.UUID, mode domain.PayoutMode, operatorID uuid.UUID) (*domain.PayoutReceipt, error)

	// ListEntries returns the append-only audit trail for a ticket, oldest
	// first.
	ListEntries(ctx context.Context, id uuid.UUID) ([]domain.TicketEntry, error)
}

// codeAttempts bounds regeneration on code collision before giving up.
const codeAttempts = 5
