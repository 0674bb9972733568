package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the domain events emitted through the outbox. The
// player-facing display mirrors ticket state off this stream.
type EventType string

const (
	EventTicketIssued   EventType = "pos.ticket.issued"
	EventTicketActive   EventType = "pos.ticket.activated"
	EventTicketFinished EventType = "pos.ticket.finished"
	EventTicketExpired  EventType = "pos.ticket.expired"
	EventTicketPaidOut  EventType = "pos.ticket.paid_out"
	EventOperatorLogin  EventType = "pos.operator.login"
)

// AggregateType enumerates the aggregate roots for outbox events.
type AggregateType string

const (
	AggregateTicket   AggregateType = "ticket"
	AggregateOperator AggregateType = "operator"
)

// OutboxDraft is the payload written to the event_outbox table, inside the
// same transaction as the mutation it describes.
type OutboxDraft struct {
	EventID       uuid.UUID       `json:"eventId"`
	AggregateType AggregateType   `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	EventType     EventType       `json:"eventType"`
	PartitionKey  string          `json:"partitionKey"`
	Headers       json.RawMessage `json:"headers"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

func newTicketEvent(t *PhysicalTicket, evtType EventType) OutboxDraft {
	payload, _ := json.Marshal(t)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateTicket,
		AggregateID:   t.ID.String(),
		EventType:     evtType,
		PartitionKey:  t.ID.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewTicketIssuedEvent announces a freshly issued ticket.
func NewTicketIssuedEvent(t *PhysicalTicket) OutboxDraft {
	return newTicketEvent(t, EventTicketIssued)
}

// NewTicketLifecycleEvent maps a post-transition status to its event type.
// Issuance and payout have dedicated factories; this covers the transitions
// driven by gameplay and expiry.
func NewTicketLifecycleEvent(t *PhysicalTicket) OutboxDraft {
	switch t.Status {
	case StatusActive:
		return newTicketEvent(t, EventTicketActive)
	case StatusFinishedWon, StatusFinishedLost:
		return newTicketEvent(t, EventTicketFinished)
	case StatusExpired:
		return newTicketEvent(t, EventTicketExpired)
	case StatusPaidOut:
		return newTicketEvent(t, EventTicketPaidOut)
	case StatusNotPlayed:
		return newTicketEvent(t, EventTicketIssued)
	}
	return newTicketEvent(t, EventTicketIssued)
}

// NewTicketPaidOutEvent announces a committed payout, including the amount.
func NewTicketPaidOutEvent(t *PhysicalTicket, amount int64, operatorID uuid.UUID) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"ticket_id":   t.ID.String(),
		"code":        t.Code,
		"amount_paid": amount,
		"operator_id": operatorID.String(),
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateTicket,
		AggregateID:   t.ID.String(),
		EventType:     EventTicketPaidOut,
		PartitionKey:  t.ID.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewOperatorLoginEvent records a successful cashier login.
func NewOperatorLoginEvent(operatorID uuid.UUID, email string) OutboxDraft {
	payload, _ := json.Marshal(map[string]string{
		"operator_id": operatorID.String(),
		"email":       email,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateOperator,
		AggregateID:   operatorID.String(),
		EventType:     EventOperatorLogin,
		PartitionKey:  operatorID.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}
