package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/octane/cashier/internal/domain"
)

type operatorRepo struct{}

// NewOperatorRepository returns a pgx-backed OperatorRepository.
func NewOperatorRepository() OperatorRepository {
	return &operatorRepo{}
}

func (r *operatorRepo) FindByEmail(ctx context.Context, db DBTX, email string) (*domain.Operator, error) {
	row := db.QueryRow(ctx, `
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM operators WHERE email = $1`, email)
	return scanOperator(row)
}

func (r *operatorRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Operator, error) {
	row := db.QueryRow(ctx, `
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM operators WHERE id = $1`, id)
	return scanOperator(row)
}

func (r *operatorRepo) Create(ctx context.Context, db DBTX, op *domain.Operator) error {
	_, err := db.Exec(ctx, `
		INSERT INTO operators (id, email, name, password_hash)
		VALUES ($1, $2, $3, $4)`,
		op.ID, op.Email, op.Name, op.PasswordHash)
	if err != nil {
		return fmt.Errorf("insert operator: %w", err)
	}
	return nil
}

func scanOperator(row pgx.Row) (*domain.Operator, error) {
	var op domain.Operator
	err := row.Scan(&op.ID, &op.Email, &op.Name, &op.PasswordHash, &op.CreatedAt, &op.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan operator: %w", err)
	}
	return &op, nil
}
