package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EntryType enumerates the kinds of append-only ticket ledger entries.
type EntryType string

const (
	EntryIssue    EntryType = "issue"
	EntryGameplay EntryType = "gameplay"
	EntryExpiry   EntryType = "expiry"
	EntryPayout   EntryType = "payout"
)

// TicketEntry is one row of a ticket's audit trail. Entries are append-only;
// each carries the post-mutation balance/winnings/status snapshot so the
// trail replays to the current ticket state.
type TicketEntry struct {
	ID            uuid.UUID       `json:"id"`
	TicketID      uuid.UUID       `json:"ticket_id"`
	Type          EntryType       `json:"type"`
	BalanceDelta  int64           `json:"balance_delta"`
	WinningsDelta int64           `json:"winnings_delta"`
	BalanceAfter  int64           `json:"balance_after"`
	WinningsAfter int64           `json:"winnings_after"`
	StatusAfter   TicketStatus    `json:"status_after"`
	OperatorID    *uuid.UUID      `json:"operator_id,omitempty"`
	GameID        *string         `json:"game_id,omitempty"`
	Metadata      json.RawMessage `json:"metadata"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewTicketEntry builds an entry from a freshly mutated ticket.
func NewTicketEntry(t *PhysicalTicket, entryType EntryType, balanceDelta, winningsDelta int64) TicketEntry {
	return TicketEntry{
		ID:            uuid.New(),
		TicketID:      t.ID,
		Type:          entryType,
		BalanceDelta:  balanceDelta,
		WinningsDelta: winningsDelta,
		BalanceAfter:  t.RemainingBalance,
		WinningsAfter: t.TotalWinnings,
		StatusAfter:   t.Status,
		Metadata:      json.RawMessage(`{}`),
		CreatedAt:     time.Now(),
	}
}
