package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/octane/cashier/internal/domain"
	"github.com/octane/cashier/internal/guard"
	"github.com/octane/cashier/internal/payout"
	"github.com/octane/cashier/internal/policy"
	"github.com/octane/cashier/internal/provider"
	"github.com/octane/cashier/internal/store"
	"github.com/octane/cashier/internal/ticketcode"
)

// TicketService is the application surface over the ticket store: issuance,
// lookup (local and draw-oracle), payout preview/commit, and gameplay
// deltas from the backend.
type TicketService struct {
	store        store.TicketStore
	oracle       provider.DrawOracle
	issueGuard   *guard.IdempotencyGuard
	payoutRL     *guard.RateLimiter
	limits       policy.CounterLimitPolicy
	payoutTotals *policy.PayoutTracker
	logger       *slog.Logger
}

// NewTicketService creates a ticket service. oracle may be nil when no draw
// system is configured; draw lookups then fail with a validation error.
func NewTicketService(st store.TicketStore, oracle provider.DrawOracle, logger *slog.Logger) *TicketService {
	return &TicketService{
		store:        st,
		oracle:       oracle,
		issueGuard:   guard.NewIdempotencyGuard(),
		payoutRL:     guard.NewRateLimiter(30, time.Minute),
		limits:       policy.DefaultCounterLimits(),
		payoutTotals: policy.NewPayoutTracker(),
		logger:       logger,
	}
}

// CreateTicket issues a new physical ticket. idempotencyKey deduplicates
// terminal double-taps; pass "" to skip.
func (s *TicketService) CreateTicket(ctx context.Context, params domain.CreateTicketParams, idempotencyKey string) (*domain.PhysicalTicket, error) {
	if eval := policy.EvaluateDeposit(s.limits, params.Amount); !eval.Allowed {
		return nil, domain.ErrForbidden("deposit exceeds the counter limit")
	}
	if res := s.issueGuard.Check(ctx, idempotencyKey); !res.Allowed {
		return nil, domain.ErrConflict(res.Reason)
	}

	t, err := s.store.CreateTicket(ctx, params)
	if err != nil {
		// Nothing was committed; allow a retry with the same key.
		s.issueGuard.Remove(idempotencyKey)
		return nil, err
	}

	s.logger.Info("ticket issued",
		"ticket_id", t.ID,
		"code", t.Code,
		"deposit", t.DepositAmount,
		"scope", t.GameScope)
	return t, nil
}

// LookupResult is the answer to a scanned or typed code. Exactly one of
// Ticket and DrawTicket is set, according to Kind.
type LookupResult struct {
	Kind       ticketcode.Kind        `json:"kind"`
	Ticket     *domain.PhysicalTicket `json:"ticket,omitempty"`
	DrawTicket *domain.DrawTicket     `json:"draw_ticket,omitempty"`
}

// Lookup classifies the raw scan and routes it: store codes resolve
// locally, draw numbers go to the draw oracle, anything else is rejected
// before touching either backend.
func (s *TicketService) Lookup(ctx context.Context, raw string) (*LookupResult, error) {
	switch ticketcode.Classify(raw) {
	case ticketcode.KindQR:
		t, err := s.store.GetByCode(ctx, raw)
		if err != nil {
			return nil, err
		}
		return &LookupResult{Kind: ticketcode.KindQR, Ticket: t}, nil
	case ticketcode.KindDraw:
		if s.oracle == nil {
			return nil, domain.ErrValidation("draw ticket lookups are not available")
		}
		dt, err := s.oracle.LookupDrawTicket(ctx, ticketcode.Normalize(raw))
		if err != nil {
			return nil, err
		}
		return &LookupResult{Kind: ticketcode.KindDraw, DrawTicket: dt}, nil
	default:
		return nil, domain.ErrValidation("unrecognized ticket code")
	}
}

// GetByID returns a ticket snapshot.
func (s *TicketService) GetByID(ctx context.Context, id uuid.UUID) (*domain.PhysicalTicket, error) {
	return s.store.GetByID(ctx, id)
}

// PreviewPayout computes what a payout would hand over without committing
// anything. The answer is advisory; CommitPayout re-checks under the lock.
func (s *TicketService) PreviewPayout(ctx context.Context, id uuid.UUID, mode domain.PayoutMode) (*domain.PayoutCalculation, error) {
	if !mode.Valid() {
		return nil, domain.ErrValidation("unknown payout mode")
	}
	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	calc := payout.Calculate(t, mode)
	return &calc, nil
}

// ProcessPayout commits a payout on behalf of an operator.
func (s *TicketService) ProcessPayout(ctx context.Context, id uuid.UUID, mode domain.PayoutMode, operatorID uuid.UUID) (*domain.PayoutReceipt, error) {
	if res := s.payoutRL.Check(ctx, operatorID.String()); !res.Allowed {
		return nil, domain.ErrForbidden(res.Reason)
	}

	// Advisory limit check against the current snapshot. The store re-checks
	// eligibility under the row lock; this only refuses over-limit cash
	// handling before any money moves.
	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	calc := payout.Calculate(t, mode)
	if eval := policy.EvaluatePayout(s.limits, calc.TotalPayout, s.payoutTotals.Total(operatorID.String())); !eval.Allowed {
		return nil, domain.ErrForbidden("payout exceeds the counter limit")
	}

	receipt, err := s.store.CommitPayout(ctx, id, mode, operatorID)
	if err != nil {
		return nil, err
	}
	s.payoutTotals.Add(operatorID.String(), receipt.AmountPaid)

	s.logger.Info("payout committed",
		"ticket_id", id,
		"operator_id", operatorID,
		"mode", mode,
		"amount", receipt.AmountPaid)
	return receipt, nil
}

// ApplyGameplay applies a debit/credit delta reported by the gameplay
// backend.
func (s *TicketService) ApplyGameplay(ctx context.Context, id uuid.UUID, delta domain.GameplayDelta) (*domain.PhysicalTicket, error) {
	t, err := s.store.ApplyGameplay(ctx, id, delta)
	if err != nil {
		return nil, err
	}

	s.logger.Info("gameplay applied",
		"ticket_id", id,
		"game_id", delta.GameID,
		"debit", delta.Debit,
		"win_credit", delta.WinCredit,
		"round_ended", delta.RoundEnded,
		"status", t.Status)
	return t, nil
}

// Entries returns a ticket's audit trail, oldest first.
func (s *TicketService) Entries(ctx context.Context, id uuid.UUID) ([]domain.TicketEntry, error) {
	return s.store.ListEntries(ctx, id)
}
