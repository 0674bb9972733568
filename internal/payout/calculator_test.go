package payout

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/octane/cashier/internal/domain"
	"github.com/stretchr/testify/assert"
)

func ticket(status domain.TicketStatus, deposit, balance, winnings int64) *domain.PhysicalTicket {
	return &domain.PhysicalTicket{
		ID:               uuid.New(),
		Code:             "OCT-TESTAB12-N0PL",
		Status:           status,
		DepositAmount:    deposit,
		RemainingBalance: balance,
		TotalWinnings:    winnings,
		GameScope:        domain.ScopeAll,
		IssuedAt:         time.Now(),
		ExpiresAt:        time.Now().Add(24 * time.Hour),
	}
}

func TestCalculate_ModeCorrectness(t *testing.T) {
	tk := ticket(domain.StatusActive, 5000, 3500, 2500)

	winningsOnly := Calculate(tk, domain.ModeWinningsOnly)
	assert.True(t, winningsOnly.CanPayout)
	assert.Equal(t, int64(2500), winningsOnly.WinningsAmount)
	assert.Equal(t, int64(0), winningsOnly.BalanceAmount)
	assert.Equal(t, int64(2500), winningsOnly.TotalPayout)

	full := Calculate(tk, domain.ModeWinningsPlusBalance)
	assert.True(t, full.CanPayout)
	assert.Equal(t, int64(2500), full.WinningsAmount)
	assert.Equal(t, int64(3500), full.BalanceAmount)
	assert.Equal(t, int64(6000), full.TotalPayout)
}

func TestCalculate_TerminalIneligibility(t *testing.T) {
	tests := []struct {
		name       string
		status     domain.TicketStatus
		wantReason string
	}{
		{"finished_lost", domain.StatusFinishedLost, ReasonFinishedLost},
		{"paid_out", domain.StatusPaidOut, ReasonAlreadyPaid},
		{"expired", domain.StatusExpired, ReasonExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Residual numbers on the ticket must not make it payable.
			tk := ticket(tt.status, 5000, 1000, 2000)
			for _, mode := range []domain.PayoutMode{domain.ModeWinningsOnly, domain.ModeWinningsPlusBalance} {
				calc := Calculate(tk, mode)
				assert.False(t, calc.CanPayout, "mode %s", mode)
				assert.Equal(t, int64(0), calc.TotalPayout, "mode %s", mode)
				assert.Equal(t, tt.wantReason, calc.Reason, "mode %s", mode)
			}
		})
	}
}

func TestCalculate_RefundEligibility(t *testing.T) {
	// A never-played ticket with zero winnings refunds its full deposit.
	tk := ticket(domain.StatusNotPlayed, 5000, 5000, 0)

	calc := Calculate(tk, domain.ModeWinningsPlusBalance)
	assert.True(t, calc.CanPayout)
	assert.Equal(t, int64(5000), calc.TotalPayout)
}

func TestCalculate_NotPlayedAlwaysEligible(t *testing.T) {
	// Even under winnings_only, where the amount is zero, a not_played
	// ticket stays eligible; refund vs forfeiture is a status distinction,
	// not an amount distinction.
	tk := ticket(domain.StatusNotPlayed, 5000, 5000, 0)

	calc := Calculate(tk, domain.ModeWinningsOnly)
	assert.True(t, calc.CanPayout)
	assert.Equal(t, int64(0), calc.TotalPayout)
}

func TestCalculate_ActiveWithNothingToPay(t *testing.T) {
	tk := ticket(domain.StatusActive, 5000, 0, 0)

	calc := Calculate(tk, domain.ModeWinningsPlusBalance)
	assert.False(t, calc.CanPayout)
	assert.Equal(t, ReasonNothingToPay, calc.Reason)
}

func TestCalculate_FinishedWon(t *testing.T) {
	tk := ticket(domain.StatusFinishedWon, 5000, 0, 7500)

	calc := Calculate(tk, domain.ModeWinningsOnly)
	assert.True(t, calc.CanPayout)
	assert.Equal(t, int64(7500), calc.TotalPayout)
}

func TestCalculate_Deterministic(t *testing.T) {
	tk := ticket(domain.StatusActive, 5000, 3500, 2500)

	first := Calculate(tk, domain.ModeWinningsPlusBalance)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Calculate(tk, domain.ModeWinningsPlusBalance))
	}
}
