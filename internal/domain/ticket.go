package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TicketStatus enumerates the physical ticket lifecycle states.
type TicketStatus string

const (
	StatusNotPlayed    TicketStatus = "not_played"
	StatusActive       TicketStatus = "active"
	StatusFinishedWon  TicketStatus = "finished_won"
	StatusFinishedLost TicketStatus = "finished_lost"
	StatusPaidOut      TicketStatus = "paid_out"
	StatusExpired      TicketStatus = "expired"
)

// Valid reports whether s is one of the six known statuses.
func (s TicketStatus) Valid() bool {
	switch s {
	case StatusNotPlayed, StatusActive, StatusFinishedWon, StatusFinishedLost, StatusPaidOut, StatusExpired:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves this status.
func (s TicketStatus) Terminal() bool {
	switch s {
	case StatusPaidOut, StatusExpired:
		return true
	case StatusNotPlayed, StatusActive, StatusFinishedWon, StatusFinishedLost:
		return false
	}
	return false
}

// Playable reports whether gameplay deltas may be applied in this status.
func (s TicketStatus) Playable() bool {
	return s == StatusNotPlayed || s == StatusActive
}

// CanTransitionTo enforces the lifecycle graph. Transitions are monotonic:
// there is no path back out of paid_out or expired, and no backward edge.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	switch s {
	case StatusNotPlayed:
		return next == StatusActive || next == StatusPaidOut || next == StatusExpired
	case StatusActive:
		return next == StatusFinishedWon || next == StatusFinishedLost ||
			next == StatusPaidOut || next == StatusExpired
	case StatusFinishedWon:
		return next == StatusPaidOut || next == StatusExpired
	case StatusFinishedLost:
		return next == StatusExpired
	case StatusPaidOut, StatusExpired:
		return false
	}
	return false
}

// GameScope restricts a ticket to a single game or opens it to all games.
type GameScope string

const (
	ScopeSingle GameScope = "single"
	ScopeAll    GameScope = "all"
)

// Valid reports whether g is a known scope.
func (g GameScope) Valid() bool {
	return g == ScopeSingle || g == ScopeAll
}

// PhysicalTicket is a prepaid QR-coded lottery ticket. Amounts are integer
// cents. The code is the external lookup key and never changes after issue.
type PhysicalTicket struct {
	ID               uuid.UUID    `json:"id"`
	Code             string       `json:"code"`
	Status           TicketStatus `json:"status"`
	DepositAmount    int64        `json:"deposit_amount"`
	RemainingBalance int64        `json:"remaining_balance"`
	TotalWinnings    int64        `json:"total_winnings"`
	GameScope        GameScope    `json:"game_scope"`
	GameID           *string      `json:"game_id,omitempty"`
	GameName         *string      `json:"game_name,omitempty"`
	PhoneNumber      *string      `json:"phone_number,omitempty"`
	IssuedAt         time.Time    `json:"issued_at"`
	ExpiresAt        time.Time    `json:"expires_at"`
	PaidOutAt        *time.Time   `json:"paid_out_at,omitempty"`
	PaidOutBy        *uuid.UUID   `json:"paid_out_by,omitempty"`
	PaidOutAmount    *int64       `json:"paid_out_amount,omitempty"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// ExpiredAt reports whether the ticket's validity window has lapsed at the
// given instant. Paid-out tickets never expire; payout froze them first.
func (t *PhysicalTicket) ExpiredAt(now time.Time) bool {
	return t.Status != StatusPaidOut && now.After(t.ExpiresAt)
}

// CheckConsistency detects data corruption that must be surfaced loudly
// rather than silently patched: a paid-out ticket with missing payout fields
// or a balance above the original deposit.
func (t *PhysicalTicket) CheckConsistency() error {
	if t.Status == StatusPaidOut && (t.PaidOutAt == nil || t.PaidOutBy == nil || t.PaidOutAmount == nil) {
		return fmt.Errorf("ticket %s is paid_out with incomplete payout record", t.ID)
	}
	if t.RemainingBalance < 0 || t.TotalWinnings < 0 {
		return fmt.Errorf("ticket %s has negative balance or winnings", t.ID)
	}
	if t.RemainingBalance > t.DepositAmount {
		return fmt.Errorf("ticket %s balance %d exceeds deposit %d", t.ID, t.RemainingBalance, t.DepositAmount)
	}
	return nil
}

// Clone returns an independent snapshot safe to hand to callers.
func (t *PhysicalTicket) Clone() *PhysicalTicket {
	c := *t
	if t.GameID != nil {
		v := *t.GameID
		c.GameID = &v
	}
	if t.GameName != nil {
		v := *t.GameName
		c.GameName = &v
	}
	if t.PhoneNumber != nil {
		v := *t.PhoneNumber
		c.PhoneNumber = &v
	}
	if t.PaidOutAt != nil {
		v := *t.PaidOutAt
		c.PaidOutAt = &v
	}
	if t.PaidOutBy != nil {
		v := *t.PaidOutBy
		c.PaidOutBy = &v
	}
	if t.PaidOutAmount != nil {
		v := *t.PaidOutAmount
		c.PaidOutAmount = &v
	}
	return &c
}

// CreateTicketParams is the input to ticket issuance.
type CreateTicketParams struct {
	Amount      int64     `json:"amount"`
	GameScope   GameScope `json:"game_scope"`
	GameID      string    `json:"game_id,omitempty"`
	GameName    string    `json:"game_name,omitempty"`
	PhoneNumber string    `json:"phone_number,omitempty"`
}

// Validate checks issuance inputs before any state is touched.
func (p CreateTicketParams) Validate() error {
	if p.Amount <= 0 {
		return ErrInvalidAmount(p.Amount)
	}
	if !p.GameScope.Valid() {
		return ErrInvalidScope(fmt.Sprintf("unknown game scope %q", p.GameScope))
	}
	if p.GameScope == ScopeSingle && p.GameID == "" {
		return ErrInvalidScope("single-game tickets require a game_id")
	}
	return nil
}

// GameplayDelta is the narrow mutation surface exposed to the gameplay
// backend: a balance debit, a winnings credit, and a round-ended marker.
type GameplayDelta struct {
	GameID     string `json:"game_id,omitempty"`
	Debit      int64  `json:"debit"`
	WinCredit  int64  `json:"win_credit"`
	RoundEnded bool   `json:"round_ended"`
}

// Validate rejects malformed deltas. Debits and credits are both expressed
// as non-negative amounts.
func (d GameplayDelta) Validate() error {
	if d.Debit < 0 {
		return ErrValidation("gameplay debit must not be negative")
	}
	if d.WinCredit < 0 {
		return ErrValidation("gameplay win credit must not be negative")
	}
	if d.Debit == 0 && d.WinCredit == 0 && !d.RoundEnded {
		return ErrValidation("gameplay delta is empty")
	}
	return nil
}

// ApplyGameplayDelta mutates a ticket per the gameplay state machine. Both
// store backends route through this so they agree on every transition. The
// caller holds whatever lock covers the ticket.
func ApplyGameplayDelta(t *PhysicalTicket, delta GameplayDelta) error {
	if !t.Status.Playable() {
		return ErrTicketNotPlayable(t.Status)
	}
	if t.GameScope == ScopeSingle && delta.GameID != "" && t.GameID != nil && delta.GameID != *t.GameID {
		return ErrInvalidScope("ticket is restricted to game " + *t.GameID)
	}

	if t.RemainingBalance-delta.Debit < 0 {
		return ErrInsufficientBalance()
	}

	// First gameplay action activates a fresh ticket; a not_played ticket
	// always has a positive balance since the deposit is positive.
	if t.Status == StatusNotPlayed && t.RemainingBalance > 0 {
		t.Status = StatusActive
	}

	t.RemainingBalance -= delta.Debit
	t.TotalWinnings += delta.WinCredit

	if delta.RoundEnded && t.Status == StatusActive {
		switch {
		case t.TotalWinnings > 0:
			t.Status = StatusFinishedWon
		case t.RemainingBalance == 0:
			t.Status = StatusFinishedLost
		}
		// Round ended with no winnings but balance left: the ticket stays
		// active, the holder can keep playing or cash the balance out.
	}

	return nil
}
