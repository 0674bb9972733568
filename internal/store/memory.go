package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/octane/cashier/internal/domain"
	"github.com/octane/cashier/internal/payout"
	"github.com/octane/cashier/internal/ticketcode"
)

// MemoryStore is the process-lifetime TicketStore. One mutex covers the
// whole population, which makes the payout check-then-commit trivially
// race-free and is plenty for a single terminal. Nothing is ever deleted;
// paid-out and expired tickets stay for audit.
type MemoryStore struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*domain.PhysicalTicket
	byCode   map[string]uuid.UUID
	entries  map[uuid.UUID][]domain.TicketEntry
	validity time.Duration
	now      func() time.Time
}

// NewMemoryStore creates an empty store. Tickets expire validity after
// issuance.
func NewMemoryStore(validity time.Duration) *MemoryStore {
	return &MemoryStore{
		byID:     make(map[uuid.UUID]*domain.PhysicalTicket),
		byCode:   make(map[string]uuid.UUID),
		entries:  make(map[uuid.UUID][]domain.TicketEntry),
		validity: validity,
		now:      time.Now,
	}
}

func (s *MemoryStore) CreateTicket(ctx context.Context, params domain.CreateTicketParams) (*domain.PhysicalTicket, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var code string
	for attempt := 0; ; attempt++ {
		c, err := ticketcode.Generate()
		if err != nil {
			return nil, domain.ErrInternal("generate ticket code", err)
		}
		if _, taken := s.byCode[c]; !taken {
			code = c
			break
		}
		if attempt+1 >= codeAttempts {
			return nil, domain.ErrInternal("allocate ticket code", domain.ErrCodeCollision(c))
		}
	}

	now := s.now()
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

	s.byID[t.ID] = t
	s.byCode[t.Code] = t.ID
	s.append(domain.NewTicketEntry(t, domain.EntryIssue, params.Amount, 0))

	return t.Clone(), nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.PhysicalTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.loadLocked(id)
	if err != nil {
		return nil, err
	}
	return t.Clone(), nil
}

func (s *MemoryStore) GetByCode(ctx context.Context, code string) (*domain.PhysicalTicket, error) {
	normalized := ticketcode.Normalize(code)

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byCode[normalized]
	if !ok {
		return nil, domain.ErrTicketNotFound(normalized)
	}
	t, err := s.loadLocked(id)
	if err != nil {
		return nil, err
	}
	return t.Clone(), nil
}

func (s *MemoryStore) ApplyGameplay(ctx context.Context, id uuid.UUID, delta domain.GameplayDelta) (*domain.PhysicalTicket, error) {
	if err := delta.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.loadLocked(id)
	if err != nil {
		return nil, err
	}

	updated := t.Clone()
	if err := domain.ApplyGameplayDelta(updated, delta); err != nil {
		return nil, err
	}
	updated.UpdatedAt = s.now()

	*t = *updated
	s.append(domain.NewTicketEntry(t, domain.EntryGameplay, -delta.Debit, delta.WinCredit))

	return t.Clone(), nil
}

func (s *MemoryStore) CommitPayout(ctx context.Context, id uuid.UUID, mode domain.PayoutMode, operatorID uuid.UUID) (*domain.PayoutReceipt, error) {
	if !mode.Valid() {
		return nil, domain.ErrValidation("unknown payout mode")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.loadLocked(id)
	if err != nil {
		return nil, err
	}

	calc := payout.Calculate(t, mode)
	if !calc.CanPayout {
		return nil, domain.ErrPayoutNotEligible(calc.Reason)
	}

	now := s.now()
	paidBy := operatorID
	paidAmount := calc.TotalPayout
	t.Status = domain.StatusPaidOut
	t.PaidOutAt = &now
	t.PaidOutBy = &paidBy
	t.PaidOutAmount = &paidAmount
	t.UpdatedAt = now

	entry := domain.NewTicketEntry(t, domain.EntryPayout, 0, 0)
	entry.OperatorID = &paidBy
	s.append(entry)

	return &domain.PayoutReceipt{
		Ticket:      t.Clone(),
		AmountPaid:  calc.TotalPayout,
		Calculation: calc,
	}, nil
}

func (s *MemoryStore) ListEntries(ctx context.Context, id uuid.UUID) ([]domain.TicketEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return nil, domain.ErrTicketNotFound(id.String())
	}
	trail := s.entries[id]
	out := make([]domain.TicketEntry, len(trail))
	copy(out, trail)
	return out, nil
}

// loadLocked fetches a ticket, fires the lazy expiry transition if due, and
// verifies internal consistency. Callers hold s.mu.
func (s *MemoryStore) loadLocked(id uuid.UUID) (*domain.PhysicalTicket, error) {
	t, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrTicketNotFound(id.String())
	}

	if t.Status != domain.StatusExpired && t.ExpiredAt(s.now()) {
		t.Status = domain.StatusExpired
		t.UpdatedAt = s.now()
		s.append(domain.NewTicketEntry(t, domain.EntryExpiry, 0, 0))
	}

	if err := t.CheckConsistency(); err != nil {
		return nil, domain.ErrInternal("ticket record corrupt", err)
	}
	return t, nil
}

func (s *MemoryStore) append(e domain.TicketEntry) {
	s.entries[e.TicketID] = append(s.entries[e.TicketID], e)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
