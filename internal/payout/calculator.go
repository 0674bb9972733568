// Package payout computes what a ticket holder is owed. Calculate is a pure
// function over a ticket snapshot; committing the payout is the store's job.
package payout

import (
	"github.com/octane/cashier/internal/domain"
)

// Reasons surfaced to the cashier UI when a payout is refused. These map
// one-to-one onto the operator-facing messages, so keep them stable.
const (
	ReasonAlreadyPaid  = "ticket already paid out"
	ReasonExpired      = "ticket expired"
	ReasonFinishedLost = "ticket finished with no winnings"
	ReasonNothingToPay = "no winnings to pay"
)

// Calculate evaluates a ticket snapshot under the requested payout mode.
// It is deterministic: no clock reads and no randomness; expiry is already
// baked into the snapshot's status by the store's lazy-expiry read path.
//
// Eligibility is driven by status, not by the amount being non-zero: a
// never-played ticket is always refundable (the deposit itself is
// returnable), while finished_lost, paid_out and expired tickets are never
// payable regardless of any residual numbers.
func Calculate(t *domain.PhysicalTicket, mode domain.PayoutMode) domain.PayoutCalculation {
	calc := domain.PayoutCalculation{Mode: mode}

	switch t.Status {
	case domain.StatusPaidOut:
		calc.Reason = ReasonAlreadyPaid
		return calc
	case domain.StatusExpired:
		calc.Reason = ReasonExpired
		return calc
	case domain.StatusFinishedLost:
		calc.Reason = ReasonFinishedLost
		return calc
	case domain.StatusNotPlayed, domain.StatusActive, domain.StatusFinishedWon:
		// payable statuses, fall through
	}

	calc.WinningsAmount = t.TotalWinnings
	if mode == domain.ModeWinningsPlusBalance {
		calc.BalanceAmount = t.RemainingBalance
	}
	calc.TotalPayout = calc.WinningsAmount + calc.BalanceAmount

	switch {
	case calc.TotalPayout > 0:
		calc.CanPayout = true
	case t.Status == domain.StatusNotPlayed:
		// Refund semantics: an untouched ticket stays payable even when the
		// selected mode yields zero, because the deposit is returnable.
		calc.CanPayout = true
	default:
		calc.Reason = ReasonNothingToPay
	}

	return calc
}
