package domain

// PayoutMode selects what a cashier pays against the ticket.
type PayoutMode string

const (
	// ModeWinningsOnly pays accumulated winnings and keeps the remaining
	// balance on the ticket for further play.
	ModeWinningsOnly PayoutMode = "winnings_only"
	// ModeWinningsPlusBalance cashes the ticket out entirely.
	ModeWinningsPlusBalance PayoutMode = "winnings_plus_balance"
)

// Valid reports whether m is a known payout mode.
func (m PayoutMode) Valid() bool {
	return m == ModeWinningsOnly || m == ModeWinningsPlusBalance
}

// PayoutCalculation is the pure result of evaluating a ticket snapshot under
// a payout mode. It commits nothing.
type PayoutCalculation struct {
	CanPayout      bool       `json:"can_payout"`
	Reason         string     `json:"reason,omitempty"`
	Mode           PayoutMode `json:"mode"`
	WinningsAmount int64      `json:"winnings_amount"`
	BalanceAmount  int64      `json:"balance_amount"`
	TotalPayout    int64      `json:"total_payout"`
}

// PayoutReceipt is returned by a committed payout.
type PayoutReceipt struct {
	Ticket      *PhysicalTicket   `json:"ticket"`
	AmountPaid  int64             `json:"amount_paid"`
	Calculation PayoutCalculation `json:"calculation"`
}
