package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/octane/cashier/internal/auth"
	"github.com/octane/cashier/internal/domain"
	"github.com/octane/cashier/internal/guard"
	"github.com/octane/cashier/internal/repository"
)

// AuthService handles cashier login and operator provisioning. The lockout
// check and the login event only apply when a Postgres pool is wired; the
// memory backend skips both.
type AuthService struct {
	ops    OperatorDirectory
	pool   *pgxpool.Pool
	outbox repository.OutboxRepository
	jwtMgr *auth.JWTManager
}

// NewAuthService creates a new AuthService. pool and outbox may be nil in
// memory-backend mode.
func NewAuthService(ops OperatorDirectory, pool *pgxpool.Pool, outbox repository.OutboxRepository, jwtMgr *auth.JWTManager) *AuthService {
	return &AuthService{
		ops:    ops,
		pool:   pool,
		outbox: outbox,
		jwtMgr: jwtMgr,
	}
}

// LoginInput holds the login request fields.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	IP       string `json:"-"`
}

// AuthResult is returned on successful login.
type AuthResult struct {
	Token      string    `json:"token"`
	OperatorID uuid.UUID `json:"operator_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
}

// Login authenticates a cashier and returns a JWT for the cashier realm.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	if s.pool != nil {
		if err := guard.CheckLocked(ctx, s.pool, input.Email); err != nil {
			return nil, err
		}
	}

	op, err := s.ops.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, domain.ErrInternal("find operator", err)
	}
	if op == nil {
		s.recordAttempt(ctx, input, false)
		return nil, domain.ErrUnauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(input.Password)); err != nil {
		s.recordAttempt(ctx, input, false)
		return nil, domain.ErrUnauthorized("invalid credentials")
	}
	s.recordAttempt(ctx, input, true)

	token, err := s.jwtMgr.GenerateToken(auth.RealmCashier, op.ID, op.Email)
	if err != nil {
		return nil, domain.ErrInternal("generate token", err)
	}

	if s.pool != nil && s.outbox != nil {
		_ = s.outbox.Insert(ctx, s.pool, domain.NewOperatorLoginEvent(op.ID, op.Email))
	}

	return &AuthResult{
		Token:      token,
		OperatorID: op.ID,
		Email:      op.Email,
		Name:       op.Name,
	}, nil
}

func (s *AuthService) recordAttempt(ctx context.Context, input LoginInput, success bool) {
	if s.pool == nil {
		return
	}
	guard.RecordAttempt(ctx, s.pool, input.Email, input.IP, success)
}

// CreateOperatorInput holds the operator provisioning fields.
type CreateOperatorInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// CreateOperator provisions a cashier account.
func (s *AuthService) CreateOperator(ctx context.Context, input CreateOperatorInput) (*domain.Operator, error) {
	if err := domain.ValidateEmail(input.Email); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if len(input.Password) < 8 {
		return nil, domain.ErrValidation("password must be at least 8 characters")
	}

	existing, err := s.ops.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, domain.ErrInternal("find operator", err)
	}
	if existing != nil {
		return nil, domain.ErrConflict("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.ErrInternal("hash password", err)
	}

	now := time.Now()
	op := &domain.Operator{
		ID:           uuid.New(),
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.ops.Create(ctx, op); err != nil {
		return nil, err
	}
	return op, nil
}
