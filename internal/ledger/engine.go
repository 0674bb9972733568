// Package ledger holds the transactional write primitives for the Postgres
// ticket store. Every mutation follows the same pattern: row lock, lazy
// expiry, business transition, then an atomic post of ticket update +
// append-only entry + outbox event inside the caller's transaction.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/octane/cashier/internal/domain"
	"github.com/octane/cashier/internal/payout"
	"github.com/octane/cashier/internal/repository"
)

// Engine provides the foundational ticket-ledger operations:
//  1. LockTicket / LockTicketByCode: row-level pessimistic lock plus the
//     persisted lazy-expiry transition
//  2. PostMutation: atomic ticket update + append-only entry + outbox event
//
// All commands run inside a transaction owned by the caller, so the
// eligibility check and the terminal transition of a payout share one
// mutual-exclusion boundary.
type Engine struct {
	tickets repository.TicketRepository
	entries repository.EntryRepository
	outbox  repository.OutboxRepository
}

// NewEngine creates a ledger engine with the given repositories.
func NewEngine(
	tickets repository.TicketRepository,
	entries repository.EntryRepository,
	outbox repository.OutboxRepository,
) *Engine {
	return &Engine{
		tickets: tickets,
		entries: entries,
		outbox:  outbox,
	}
}

// LockTicket acquires a row-level lock, fires the lazy expiry transition if
// the validity window has lapsed (persisting it, so two reads never
// disagree), and verifies record consistency. Must be called within a
// transaction. Returns nil when no row matches.
func (e *Engine) LockTicket(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.PhysicalTicket, error) {
	t, err := e.tickets.LockForUpdate(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("lock ticket: %w", err)
	}
	return e.refreshLocked(ctx, tx, t)
}

// LockTicketByCode is LockTicket keyed by the normalized code.
func (e *Engine) LockTicketByCode(ctx context.Context, tx pgx.Tx, code string) (*domain.PhysicalTicket, error) {
	t, err := e.tickets.LockByCode(ctx, tx, code)
	if err != nil {
		return nil, fmt.Errorf("lock ticket by code: %w", err)
	}
	return e.refreshLocked(ctx, tx, t)
}

func (e *Engine) refreshLocked(ctx context.Context, tx pgx.Tx, t *domain.PhysicalTicket) (*domain.PhysicalTicket, error) {
	if t == nil {
		return nil, nil
	}

	if t.Status != domain.StatusExpired && t.ExpiredAt(time.Now()) {
		t.Status = domain.StatusExpired
		updated, err := e.PostMutation(ctx, tx, t, domain.NewTicketEntry(t, domain.EntryExpiry, 0, 0), domain.NewTicketLifecycleEvent(t))
		if err != nil {
			return nil, fmt.Errorf("persist expiry: %w", err)
		}
		t = updated
	}

	if err := t.CheckConsistency(); err != nil {
		return nil, domain.ErrInternal("ticket record corrupt", err)
	}
	return t, nil
}

// PostMutation atomically writes a mutated ticket, its audit entry, and the
// accompanying event. This is the single write primitive every command
// delegates to.
func (e *Engine) PostMutation(ctx context.Context, tx pgx.Tx, t *domain.PhysicalTicket, entry domain.TicketEntry, event domain.OutboxDraft) (*domain.PhysicalTicket, error) {
	updated, err := e.tickets.UpdateState(ctx, tx, t)
	if err != nil {
		return nil, fmt.Errorf("update ticket: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrTicketNotFound(t.ID.String())
	}

	if err := e.entries.Insert(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("insert ticket entry: %w", err)
	}

	if err := e.outbox.Insert(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("insert outbox event: %w", err)
	}

	return updated, nil
}

// ExecuteIssue persists a freshly issued ticket with its issue entry and
// event. The caller has already allocated the code; a CODE_COLLISION error
// tells it to regenerate and retry.
func (e *Engine) ExecuteIssue(ctx context.Context, tx pgx.Tx, t *domain.PhysicalTicket) error {
	if err := e.tickets.Insert(ctx, tx, t); err != nil {
		return err
	}

	entry := domain.NewTicketEntry(t, domain.EntryIssue, t.DepositAmount, 0)
	if err := e.entries.Insert(ctx, tx, entry); err != nil {
		return fmt.Errorf("insert issue entry: %w", err)
	}

	if err := e.outbox.Insert(ctx, tx, domain.NewTicketIssuedEvent(t)); err != nil {
		return fmt.Errorf("insert issue event: %w", err)
	}
	return nil
}

// ExecuteGameplay applies a gameplay delta under the row lock.
// Pattern: Lock → transition → PostMutation.
func (e *Engine) ExecuteGameplay(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta domain.GameplayDelta) (*domain.PhysicalTicket, error) {
	t, err := e.LockTicket(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrTicketNotFound(id.String())
	}

	if err := domain.ApplyGameplayDelta(t, delta); err != nil {
		return nil, err
	}

	entry := domain.NewTicketEntry(t, domain.EntryGameplay, -delta.Debit, delta.WinCredit)
	if delta.GameID != "" {
		gameID := delta.GameID
		entry.GameID = &gameID
	}
	return e.PostMutation(ctx, tx, t, entry, domain.NewTicketLifecycleEvent(t))
}

// ExecutePayout recomputes eligibility and commits the paid_out transition
// under the row lock. Of two concurrent attempts exactly one reaches this
// with an eligible snapshot; the other observes paid_out and is refused.
func (e *Engine) ExecutePayout(ctx context.Context, tx pgx.Tx, id uuid.UUID, mode domain.PayoutMode, operatorID uuid.UUID) (*domain.PayoutReceipt, error) {
	t, err := e.LockTicket(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrTicketNotFound(id.String())
	}

	calc := payout.Calculate(t, mode)
	if !calc.CanPayout {
		return nil, domain.ErrPayoutNotEligible(calc.Reason)
	}

	now := time.Now()
	paidBy := operatorID
	paidAmount := calc.TotalPayout
	t.Status = domain.StatusPaidOut
	t.PaidOutAt = &now
	t.PaidOutBy = &paidBy
	t.PaidOutAmount = &paidAmount

	entry := domain.NewTicketEntry(t, domain.EntryPayout, 0, 0)
	entry.OperatorID = &paidBy

	updated, err := e.PostMutation(ctx, tx, t, entry, domain.NewTicketPaidOutEvent(t, calc.TotalPayout, operatorID))
	if err != nil {
		return nil, err
	}

	return &domain.PayoutReceipt{
		Ticket:      updated,
		AmountPaid:  calc.TotalPayout,
		Calculation: calc,
	}, nil
}
