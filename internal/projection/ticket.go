package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/octane/cashier/internal/domain"
)

// TicketProjection is the display-facing snapshot of a ticket, rebuilt from
// the event stream. It carries only what the player display shows.
type TicketProjection struct {
	TicketID         string `json:"ticket_id"`
	Code             string `json:"code"`
	Status           string `json:"status"`
	RemainingBalance int64  `json:"remaining_balance"`
	TotalWinnings    int64  `json:"total_winnings"`
	UpdatedAt        string `json:"updated_at"`
}

const ticketTTL = 24 * time.Hour

func ticketKey(ticketID string) string {
	return fmt.Sprintf("projection:ticket:%s", ticketID)
}

// UpdateTicket caches a ticket snapshot.
func UpdateTicket(ctx context.Context, store Store, p TicketProjection) error {
	p.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return SetJSON(ctx, store, ticketKey(p.TicketID), p, ticketTTL)
}

// GetTicket retrieves a cached ticket snapshot.
func GetTicket(ctx context.Context, store Store, ticketID string) (*TicketProjection, error) {
	var p TicketProjection
	if err := GetJSON(ctx, store, ticketKey(ticketID), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// InvalidateTicket removes a ticket snapshot.
func InvalidateTicket(ctx context.Context, store Store, ticketID string) error {
	return store.Delete(ctx, ticketKey(ticketID))
}

// ApplyEvent folds one outbox event into the projection store. Lifecycle
// events carry the full ticket state; paid_out carries only the settlement
// summary, so the existing snapshot is patched rather than replaced. The
// display shows zero claimable on a paid-out ticket even though the row
// keeps its frozen balances for audit.
func ApplyEvent(ctx context.Context, store Store, evt domain.OutboxDraft) error {
	if evt.AggregateType != domain.AggregateTicket {
		return nil
	}

	if evt.EventType == domain.EventTicketPaidOut {
		var payload struct {
			TicketID   string `json:"ticket_id"`
			Code       string `json:"code"`
			AmountPaid int64  `json:"amount_paid"`
		}
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			return fmt.Errorf("decode paid_out payload: %w", err)
		}
		p, err := GetTicket(ctx, store, payload.TicketID)
		if err != nil {
			p = &TicketProjection{TicketID: payload.TicketID, Code: payload.Code}
		}
		p.Status = string(domain.StatusPaidOut)
		p.RemainingBalance = 0
		p.TotalWinnings = 0
		return UpdateTicket(ctx, store, *p)
	}

	var t domain.PhysicalTicket
	if err := json.Unmarshal(evt.Payload, &t); err != nil {
		return fmt.Errorf("decode ticket payload: %w", err)
	}
	return UpdateTicket(ctx, store, TicketProjection{
		TicketID:         t.ID.String(),
		Code:             t.Code,
		Status:           string(t.Status),
		RemainingBalance: t.RemainingBalance,
		TotalWinnings:    t.TotalWinnings,
	})
}
