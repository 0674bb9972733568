package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/octane/cashier/internal/domain"
)

const ticketColumns = `id, code, status, deposit_amount, remaining_balance, total_winnings,
	       game_scope, game_id, game_name, phone_number,
	       issued_at, expires_at, paid_out_at, paid_out_by, paid_out_amount, updated_at`

type ticketRepo struct{}

// NewTicketRepository returns a pgx-backed TicketRepository.
func NewTicketRepository() TicketRepository {
	return &ticketRepo{}
}

func (r *ticketRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.PhysicalTicket, error) {
	row := db.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
	return scanTicket(row)
}

func (r *ticketRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.PhysicalTicket, error) {
	row := tx.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1 FOR UPDATE`, id)
	return scanTicket(row)
}

func (r *ticketRepo) LockByCode(ctx context.Context, tx pgx.Tx, code string) (*domain.PhysicalTicket, error) {
	row := tx.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE code = $1 FOR UPDATE`, code)
	return scanTicket(row)
}

func (r *ticketRepo) Insert(ctx context.Context, db DBTX, t *domain.PhysicalTicket) error {
	var paidAmount interface{}
	if t.PaidOutAmount != nil {
		paidAmount = CentsToNumeric(*t.PaidOutAmount)
	}

	_, err := db.Exec(ctx, `
		INSERT INTO tickets
		  (id, code, status, deposit_amount, remaining_balance, total_winnings,
		   game_scope, game_id, game_name, phone_number,
		   issued_at, expires_at, paid_out_at, paid_out_by, paid_out_amount, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		t.ID,
		t.Code,
		string(t.Status),
		CentsToNumeric(t.DepositAmount),
		CentsToNumeric(t.RemainingBalance),
		CentsToNumeric(t.TotalWinnings),
		string(t.GameScope),
		t.GameID,
		t.GameName,
		t.PhoneNumber,
		t.IssuedAt,
		t.ExpiresAt,
		t.PaidOutAt,
		t.PaidOutBy,
		paidAmount,
		t.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "tickets_code_key" {
			return domain.ErrCodeCollision(t.Code)
		}
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

func (r *ticketRepo) UpdateState(ctx context.Context, tx pgx.Tx, t *domain.PhysicalTicket) (*domain.PhysicalTicket, error) {
	var paidAmount interface{}
	if t.PaidOutAmount != nil {
		paidAmount = CentsToNumeric(*t.PaidOutAmount)
	}

	row := tx.QueryRow(ctx, `
		UPDATE tickets SET
		  status = $2,
		  remaining_balance = $3,
		  total_winnings = $4,
		  paid_out_at = $5,
		  paid_out_by = $6,
		  paid_out_amount = $7,
		  updated_at = now()
		WHERE id = $1
		RETURNING `+ticketColumns,
		t.ID,
		string(t.Status),
		CentsToNumeric(t.RemainingBalance),
		CentsToNumeric(t.TotalWinnings),
		t.PaidOutAt,
		t.PaidOutBy,
		paidAmount,
	)
	return scanTicket(row)
}

func scanTicket(row pgx.Row) (*domain.PhysicalTicket, error) {
	var t domain.PhysicalTicket
	var depositNum, balanceNum, winningsNum pgtype.Numeric
	var paidAmountNum pgtype.Numeric

	err := row.Scan(
		&t.ID, &t.Code, &t.Status, &depositNum, &balanceNum, &winningsNum,
		&t.GameScope, &t.GameID, &t.GameName, &t.PhoneNumber,
		&t.IssuedAt, &t.ExpiresAt, &t.PaidOutAt, &t.PaidOutBy, &paidAmountNum, &t.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan ticket: %w", err)
	}

	var convErr error
	t.DepositAmount, convErr = NumericToCents(depositNum)
	if convErr != nil {
		return nil, fmt.Errorf("convert deposit_amount: %w", convErr)
	}
	t.RemainingBalance, convErr = NumericToCents(balanceNum)
	if convErr != nil {
		return nil, fmt.Errorf("convert remaining_balance: %w", convErr)
	}
	t.TotalWinnings, convErr = NumericToCents(winningsNum)
	if convErr != nil {
		return nil, fmt.Errorf("convert total_winnings: %w", convErr)
	}
	if paidAmountNum.Valid {
		amount, convErr := NumericToCents(paidAmountNum)
		if convErr != nil {
			return nil, fmt.Errorf("convert paid_out_amount: %w", convErr)
		}
		t.PaidOutAmount = &amount
	}

	return &t, nil
}
