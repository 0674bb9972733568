package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/octane/cashier/internal/domain"
)

type entryRepo struct{}

// NewEntryRepository returns a pgx-backed EntryRepository.
func NewEntryRepository() EntryRepository {
	return &entryRepo{}
}

func (r *entryRepo) Insert(ctx context.Context, db DBTX, e domain.TicketEntry) error {
	meta := e.Metadata
	if meta == nil {
		meta = json.RawMessage(`{}`)
	}

	_, err := db.Exec(ctx, `
		INSERT INTO ticket_entries
		  (id, ticket_id, type, balance_delta, winnings_delta,
		   balance_after, winnings_after, status_after, operator_id, game_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID,
		e.TicketID,
		string(e.Type),
		CentsToNumeric(e.BalanceDelta),
		CentsToNumeric(e.WinningsDelta),
		CentsToNumeric(e.BalanceAfter),
		CentsToNumeric(e.WinningsAfter),
		string(e.StatusAfter),
		e.OperatorID,
		e.GameID,
		meta,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ticket entry: %w", err)
	}
	return nil
}

func (r *entryRepo) ListByTicket(ctx context.Context, db DBTX, ticketID uuid.UUID) ([]domain.TicketEntry, error) {
	rows, err := db.Query(ctx, `
		SELECT id, ticket_id, type, balance_delta, winnings_delta,
		       balance_after, winnings_after, status_after, operator_id, game_id, metadata, created_at
		FROM ticket_entries
		WHERE ticket_id = $1
		ORDER BY created_at ASC, id ASC`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("query ticket entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.TicketEntry
	for rows.Next() {
		var e domain.TicketEntry
		var balDelta, winDelta, balAfter, winAfter pgtype.Numeric
		err := rows.Scan(
			&e.ID, &e.TicketID, &e.Type, &balDelta, &winDelta,
			&balAfter, &winAfter, &e.StatusAfter, &e.OperatorID, &e.GameID, &e.Metadata, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ticket entry: %w", err)
		}

		var convErr error
		e.BalanceDelta, convErr = NumericToCents(balDelta)
		if convErr != nil {
			return nil, convErr
		}
		e.WinningsDelta, convErr = NumericToCents(winDelta)
		if convErr != nil {
			return nil, convErr
		}
		e.BalanceAfter, convErr = NumericToCents(balAfter)
		if convErr != nil {
			return nil, convErr
		}
		e.WinningsAfter, convErr = NumericToCents(winAfter)
		if convErr != nil {
			return nil, convErr
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
