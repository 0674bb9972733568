package domain

import "time"

// DrawTicketStatus is the read-only status surface the draw-result oracle
// exposes for legacy numeric tickets.
type DrawTicketStatus string

const (
	DrawPending DrawTicketStatus = "pending"
	DrawWon     DrawTicketStatus = "won"
	DrawLost    DrawTicketStatus = "lost"
	DrawClaimed DrawTicketStatus = "claimed"
)

// DrawTicket is the external collaborator's entity. This core never mutates
// it; win/lose is decided by the authoritative draw-result service and only
// its id/status/win-amount surface is consumed here.
type DrawTicket struct {
	Number    string           `json:"number"`
	Status    DrawTicketStatus `json:"status"`
	WinAmount int64            `json:"win_amount"`
	DrawDate  time.Time        `json:"draw_date"`
}

// Payable reports whether the oracle's answer leaves anything for the
// cashier to hand over.
func (d *DrawTicket) Payable() bool {
	return d.Status == DrawWon && d.WinAmount > 0
}
