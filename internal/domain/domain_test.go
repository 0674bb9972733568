package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTicket(status TicketStatus) *PhysicalTicket {
	now := time.Now()
	return &PhysicalTicket{
		ID:               uuid.New(),
		Code:             "OCT-TESTAB12-N0PL",
		Status:           status,
		DepositAmount:    5000,
		RemainingBalance: 5000,
		TotalWinnings:    0,
		GameScope:        ScopeAll,
		IssuedAt:         now,
		ExpiresAt:        now.Add(30 * 24 * time.Hour),
		UpdatedAt:        now,
	}
}

func TestStatusLifecycleGraph(t *testing.T) {
	tests := []struct {
		from    TicketStatus
		to      TicketStatus
		allowed bool
	}{
		{StatusNotPlayed, StatusActive, true},
		{StatusNotPlayed, StatusPaidOut, true},
		{StatusNotPlayed, StatusExpired, true},
		{StatusNotPlayed, StatusFinishedWon, false},
		{StatusActive, StatusFinishedWon, true},
		{StatusActive, StatusFinishedLost, true},
		{StatusActive, StatusPaidOut, true},
		{StatusActive, StatusExpired, true},
		{StatusActive, StatusNotPlayed, false},
		{StatusFinishedWon, StatusPaidOut, true},
		{StatusFinishedWon, StatusExpired, true},
		{StatusFinishedWon, StatusActive, false},
		{StatusFinishedLost, StatusExpired, true},
		{StatusFinishedLost, StatusPaidOut, false},
		{StatusPaidOut, StatusExpired, false},
		{StatusPaidOut, StatusActive, false},
		{StatusExpired, StatusPaidOut, false},
		{StatusExpired, StatusActive, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusNotPlayed.Playable())
	assert.True(t, StatusActive.Playable())
	assert.False(t, StatusFinishedWon.Playable())
	assert.False(t, StatusPaidOut.Playable())

	assert.True(t, StatusPaidOut.Terminal())
	assert.True(t, StatusExpired.Terminal())
	assert.False(t, StatusFinishedWon.Terminal())
	assert.False(t, StatusFinishedLost.Terminal())

	assert.True(t, StatusActive.Valid())
	assert.False(t, TicketStatus("refunded").Valid())
}

func TestExpiredAt(t *testing.T) {
	tk := sampleTicket(StatusActive)

	assert.False(t, tk.ExpiredAt(tk.ExpiresAt.Add(-time.Hour)))
	assert.True(t, tk.ExpiredAt(tk.ExpiresAt.Add(time.Hour)))

	// Payout froze the ticket; the validity window no longer applies.
	tk.Status = StatusPaidOut
	assert.False(t, tk.ExpiredAt(tk.ExpiresAt.Add(time.Hour)))
}

func TestCheckConsistency(t *testing.T) {
	ok := sampleTicket(StatusActive)
	require.NoError(t, ok.CheckConsistency())

	incomplete := sampleTicket(StatusPaidOut)
	assert.Error(t, incomplete.CheckConsistency())

	now := time.Now()
	operator := uuid.New()
	amount := int64(5000)
	complete := sampleTicket(StatusPaidOut)
	complete.PaidOutAt = &now
	complete.PaidOutBy = &operator
	complete.PaidOutAmount = &amount
	require.NoError(t, complete.CheckConsistency())

	negative := sampleTicket(StatusActive)
	negative.RemainingBalance = -1
	assert.Error(t, negative.CheckConsistency())

	inflated := sampleTicket(StatusActive)
	inflated.RemainingBalance = inflated.DepositAmount + 1
	assert.Error(t, inflated.CheckConsistency())
}

func TestCloneIsIndependent(t *testing.T) {
	original := sampleTicket(StatusActive)
	gameID := "octane-spin"
	original.GameID = &gameID

	clone := original.Clone()
	*clone.GameID = "other-game"
	clone.RemainingBalance = 0

	assert.Equal(t, "octane-spin", *original.GameID)
	assert.Equal(t, int64(5000), original.RemainingBalance)
}

func TestCreateTicketParamsValidate(t *testing.T) {
	tests := []struct {
		name     string
		params   CreateTicketParams
		wantCode string
	}{
		{"valid all-games", CreateTicketParams{Amount: 1000, GameScope: ScopeAll}, ""},
		{"valid single-game", CreateTicketParams{Amount: 1000, GameScope: ScopeSingle, GameID: "g1"}, ""},
		{"zero amount", CreateTicketParams{Amount: 0, GameScope: ScopeAll}, "INVALID_AMOUNT"},
		{"negative amount", CreateTicketParams{Amount: -500, GameScope: ScopeAll}, "INVALID_AMOUNT"},
		{"unknown scope", CreateTicketParams{Amount: 1000, GameScope: "regional"}, "INVALID_SCOPE"},
		{"single without game", CreateTicketParams{Amount: 1000, GameScope: ScopeSingle}, "INVALID_SCOPE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			var appErr *AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
		})
	}
}

func TestGameplayDeltaValidate(t *testing.T) {
	assert.NoError(t, GameplayDelta{Debit: 100}.Validate())
	assert.NoError(t, GameplayDelta{WinCredit: 100}.Validate())
	assert.NoError(t, GameplayDelta{RoundEnded: true}.Validate())
	assert.Error(t, GameplayDelta{Debit: -1}.Validate())
	assert.Error(t, GameplayDelta{WinCredit: -1}.Validate())
	assert.Error(t, GameplayDelta{}.Validate())
}

func TestApplyGameplayDelta_ActivatesOnFirstAction(t *testing.T) {
	tk := sampleTicket(StatusNotPlayed)

	err := ApplyGameplayDelta(tk, GameplayDelta{Debit: 1000})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, tk.Status)
	assert.Equal(t, int64(4000), tk.RemainingBalance)
}

func TestApplyGameplayDelta_RoundEndedOutcomes(t *testing.T) {
	won := sampleTicket(StatusActive)
	require.NoError(t, ApplyGameplayDelta(won, GameplayDelta{Debit: 500, WinCredit: 2500, RoundEnded: true}))
	assert.Equal(t, StatusFinishedWon, won.Status)

	lost := sampleTicket(StatusActive)
	require.NoError(t, ApplyGameplayDelta(lost, GameplayDelta{Debit: 5000, RoundEnded: true}))
	assert.Equal(t, StatusFinishedLost, lost.Status)
	assert.Equal(t, int64(0), lost.RemainingBalance)

	// No winnings but balance remains: stays active.
	open := sampleTicket(StatusActive)
	require.NoError(t, ApplyGameplayDelta(open, GameplayDelta{Debit: 1000, RoundEnded: true}))
	assert.Equal(t, StatusActive, open.Status)
}

func TestApplyGameplayDelta_Rejections(t *testing.T) {
	terminal := sampleTicket(StatusFinishedWon)
	err := ApplyGameplayDelta(terminal, GameplayDelta{Debit: 100})
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "TICKET_NOT_PLAYABLE", appErr.Code)

	broke := sampleTicket(StatusActive)
	err = ApplyGameplayDelta(broke, GameplayDelta{Debit: 5001})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INSUFFICIENT_BALANCE", appErr.Code)
	assert.Equal(t, int64(5000), broke.RemainingBalance)

	restricted := sampleTicket(StatusActive)
	restricted.GameScope = ScopeSingle
	gameID := "octane-spin"
	restricted.GameID = &gameID
	err = ApplyGameplayDelta(restricted, GameplayDelta{GameID: "other-game", Debit: 100})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "INVALID_SCOPE", appErr.Code)
}

func TestTicketLifecycleEventMapping(t *testing.T) {
	tests := []struct {
		status TicketStatus
		want   EventType
	}{
		{StatusActive, EventTicketActive},
		{StatusFinishedWon, EventTicketFinished},
		{StatusFinishedLost, EventTicketFinished},
		{StatusExpired, EventTicketExpired},
		{StatusPaidOut, EventTicketPaidOut},
	}
	for _, tt := range tests {
		tk := sampleTicket(tt.status)
		evt := NewTicketLifecycleEvent(tk)
		assert.Equal(t, tt.want, evt.EventType, "status %s", tt.status)
		assert.Equal(t, tk.ID.String(), evt.AggregateID)
		assert.Equal(t, AggregateTicket, evt.AggregateType)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("pool exhausted")
	err := ErrInternal("acquire connection", cause)
	assert.ErrorIs(t, err, cause)
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("cashier@octane.example"))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail(""))
}

func TestDrawTicketPayable(t *testing.T) {
	assert.True(t, (&DrawTicket{Status: DrawWon, WinAmount: 100}).Payable())
	assert.False(t, (&DrawTicket{Status: DrawWon, WinAmount: 0}).Payable())
	assert.False(t, (&DrawTicket{Status: DrawLost, WinAmount: 100}).Payable())
	assert.False(t, (&DrawTicket{Status: DrawClaimed, WinAmount: 100}).Payable())
	assert.False(t, (&DrawTicket{Status: DrawPending}).Payable())
}
