package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octane/cashier/internal/domain"
	"github.com/octane/cashier/internal/ledger"
	"github.com/octane/cashier/internal/repository"
	"github.com/octane/cashier/internal/ticketcode"
)

// PostgresStore is the production TicketStore. Mutations run inside a
// transaction with a SELECT FOR UPDATE on the ticket row, giving payout the
// same check-then-commit atomicity the memory store gets from its mutex.
type PostgresStore struct {
	pool     *pgxpool.Pool
	engine   *ledger.Engine
	tickets  repository.TicketRepository
	entries  repository.EntryRepository
	validity time.Duration
}

// NewPostgresStore wires the store over a connection pool.
func NewPostgresStore(
	pool *pgxpool.Pool,
	engine *ledger.Engine,
	tickets repository.TicketRepository,
	entries repository.EntryRepository,
	validity time.Duration,
) *PostgresStore {
	return &PostgresStore{
		pool:     pool,
		engine:   engine,
		tickets:  tickets,
		entries:  entries,
		validity: validity,
	}
}

// withTx runs fn in a transaction, rolling back on error.
func (s *PostgresStore) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateTicket(ctx context.Context, params domain.CreateTicketParams) (*domain.PhysicalTicket, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	// The code column carries a unique constraint; on the (vanishingly
	// rare) collision we regenerate and retry with a fresh transaction.
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := ticketcode.Generate()
		if err != nil {
			return nil, domain.ErrInternal("generate ticket code", err)
		}

		now := time.Now()
		t := &domain.PhysicalTicket{
			ID:               uuid.New(),
			Code:             code,
			Status:           domain.StatusNotPlayed,
			DepositAmount:    params.Amount,
			RemainingBalance: params.Amount,
			TotalWinnings:    0,
			GameScope:        params.GameScope,
			GameID:           optional(params.GameID),
			GameName:         optional(params.GameName),
			PhoneNumber:      optional(params.PhoneNumber),
			IssuedAt:         now,
			ExpiresAt:        now.Add(s.validity),
			UpdatedAt:        now,
		}

		err = s.withTx(ctx, func(tx pgx.Tx) error {
			return s.engine.ExecuteIssue(ctx, tx, t)
		})
		if err == nil {
			return t, nil
		}

		var appErr *domain.AppError
		if errors.As(err, &appErr) && appErr.Code == "CODE_COLLISION" {
			continue
		}
		return nil, err
	}
	return nil, domain.ErrInternal("allocate ticket code", nil)
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.PhysicalTicket, error) {
	var t *domain.PhysicalTicket
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		t, err = s.engine.LockTicket(ctx, tx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return domain.ErrTicketNotFound(id.String())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *PostgresStore) GetByCode(ctx context.Context, code string) (*domain.PhysicalTicket, error) {
	normalized := ticketcode.Normalize(code)

	var t *domain.PhysicalTicket
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		t, err = s.engine.LockTicketByCode(ctx, tx, normalized)
		if err != nil {
			return err
		}
		if t == nil {
			return domain.ErrTicketNotFound(normalized)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *PostgresStore) ApplyGameplay(ctx context.Context, id uuid.UUID, delta domain.GameplayDelta) (*domain.PhysicalTicket, error) {
	if err := delta.Validate(); err != nil {
		return nil, err
	}

	var t *domain.PhysicalTicket
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		t, err = s.engine.ExecuteGameplay(ctx, tx, id, delta)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *PostgresStore) CommitPayout(ctx context.Context, id uuid.UUID, mode domain.PayoutMode, operatorID uuid.UUID) (*domain.PayoutReceipt, error) {
	if !mode.Valid() {
		return nil, domain.ErrValidation(fmt.Sprintf("unknown payout mode %q", mode))
	}

	var receipt *domain.PayoutReceipt
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		receipt, err = s.engine.ExecutePayout(ctx, tx, id, mode, operatorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (s *PostgresStore) ListEntries(ctx context.Context, id uuid.UUID) ([]domain.TicketEntry, error) {
	t, err := s.tickets.FindByID(ctx, s.pool, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrTicketNotFound(id.String())
	}
	return s.entries.ListByTicket(ctx, s.pool, id)
}
