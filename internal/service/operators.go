package service

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octane/cashier/internal/domain"
	"github.com/octane/cashier/internal/repository"
)

// OperatorDirectory is where cashier accounts live. Production backs it
// with the operators table; the memory variant serves single-terminal dev
// mode and tests.
type OperatorDirectory interface {
	FindByEmail(ctx context.Context, email string) (*domain.Operator, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Operator, error)
	Create(ctx context.Context, op *domain.Operator) error
}

// PgOperatorDirectory backs the directory with the operators table.
type PgOperatorDirectory struct {
	pool *pgxpool.Pool
	repo repository.OperatorRepository
}

// NewPgOperatorDirectory creates a Postgres-backed operator directory.
func NewPgOperatorDirectory(pool *pgxpool.Pool, repo repository.OperatorRepository) *PgOperatorDirectory {
	return &PgOperatorDirectory{pool: pool, repo: repo}
}

func (d *PgOperatorDirectory) FindByEmail(ctx context.Context, email string) (*domain.Operator, error) {
	return d.repo.FindByEmail(ctx, d.pool, email)
}

func (d *PgOperatorDirectory) FindByID(ctx context.Context, id uuid.UUID) (*domain.Operator, error) {
	return d.repo.FindByID(ctx, d.pool, id)
}

func (d *PgOperatorDirectory) Create(ctx context.Context, op *domain.Operator) error {
	return d.repo.Create(ctx, d.pool, op)
}

// MemOperatorDirectory is the in-memory directory for dev mode.
type MemOperatorDirectory struct {
	mu      sync.Mutex
	byEmail map[string]*domain.Operator
	byID    map[uuid.UUID]*domain.Operator
}

// NewMemOperatorDirectory creates an empty in-memory directory.
func NewMemOperatorDirectory() *MemOperatorDirectory {
	return &MemOperatorDirectory{
		byEmail: make(map[string]*domain.Operator),
		byID:    make(map[uuid.UUID]*domain.Operator),
	}
}

func (d *MemOperatorDirectory) FindByEmail(_ context.Context, email string) (*domain.Operator, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	op, ok := d.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	cp := *op
	return &cp, nil
}

func (d *MemOperatorDirectory) FindByID(_ context.Context, id uuid.UUID) (*domain.Operator, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	op, ok := d.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *op
	return &cp, nil
}

func (d *MemOperatorDirectory) Create(_ context.Context, op *domain.Operator) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := strings.ToLower(op.Email)
	if _, taken := d.byEmail[key]; taken {
		return domain.ErrConflict("email already registered")
	}
	cp := *op
	d.byEmail[key] = &cp
	d.byID[op.ID] = &cp
	return nil
}
