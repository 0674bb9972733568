package store

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octane/cashier/internal/domain"
	"github.com/octane/cashier/internal/payout"
)

const testValidity = 30 * 24 * time.Hour

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	return NewMemoryStore(testValidity)
}

func mustCreate(t *testing.T, s *MemoryStore, amount int64) *domain.PhysicalTicket {
	t.Helper()
	tk, err := s.CreateTicket(context.Background(), domain.CreateTicketParams{
		Amount:    amount,
		GameScope: domain.ScopeAll,
	})
	require.NoError(t, err)
	return tk
}

// --- Creation ---

func TestCreateTicket_DepositConservation(t *testing.T) {
	s := newTestStore(t)
	tk := mustCreate(t, s, 5000)

	assert.Equal(t, domain.StatusNotPlayed, tk.Status)
	assert.Equal(t, int64(5000), tk.DepositAmount)
	assert.Equal(t, int64(5000), tk.RemainingBalance)
	assert.Equal(t, int64(0), tk.TotalWinnings)
	assert.Equal(t, tk.IssuedAt.Add(testValidity), tk.ExpiresAt)
	assert.Nil(t, tk.PaidOutAt)
	assert.Nil(t, tk.PaidOutBy)
	assert.Nil(t, tk.PaidOutAmount)
}

func TestCreateTicket_CodesPairwiseDistinct(t *testing.T) {
	s := newTestStore(t)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tk := mustCreate(t, s, 1000)
		require.False(t, seen[tk.Code], "duplicate code %s", tk.Code)
		seen[tk.Code] = true
	}
}

func TestCreateTicket_InvalidAmount(t *testing.T) {
	s := newTestStore(t)
	for _, amount := range []int64{0, -1, -5000} {
		_, err := s.CreateTicket(context.Background(), domain.CreateTicketParams{
			Amount:    amount,
			GameScope: domain.ScopeAll,
		})
		require.Error(t, err)
		appErr := asAppError(t, err)
		assert.Equal(t, "INVALID_AMOUNT", appErr.Code)
	}
}

func TestCreateTicket_SingleScopeRequiresGame(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateTicket(context.Background(), domain.CreateTicketParams{
		Amount:    1000,
		GameScope: domain.ScopeSingle,
	})
	require.Error(t, err)
	assert.Equal(t, "INVALID_SCOPE", asAppError(t, err).Code)

	tk, err := s.CreateTicket(context.Background(), domain.CreateTicketParams{
		Amount:    1000,
		GameScope: domain.ScopeSingle,
		GameID:    "lucky-seven",
		GameName:  "Lucky Seven",
	})
	require.NoError(t, err)
	require.NotNil(t, tk.GameID)
	assert.Equal(t, "lucky-seven", *tk.GameID)
}

// --- Lookup ---

func TestGetByCode_NormalizesInput(t *testing.T) {
	s := newTestStore(t)
	tk := mustCreate(t, s, 2000)

	got, err := s.GetByCode(context.Background(), "  "+strings.ToLower(tk.Code)+" ")
	require.NoError(t, err)
	assert.Equal(t, tk.ID, got.ID)
}

func TestGetByCode_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetByCode(context.Background(), "OCT-NOSUCH00-CODE")
	require.Error(t, err)
	assert.Equal(t, "TICKET_NOT_FOUND", asAppError(t, err).Code)
}

func TestGetByCode_IdempotentLookup(t *testing.T) {
	s := newTestStore(t)
	tk := mustCreate(t, s, 2000)

	first, err := s.GetByCode(context.Background(), tk.Code)
	require.NoError(t, err)
	second, err := s.GetByCode(context.Background(), tk.Code)
	require.NoError(t, err)

	// No field moves between reads of a non-expired ticket.
	assert.Equal(t, first, second)
}

func TestSnapshotsAreIsolated(t *testing.T) {
	s := newTestStore(t)
	tk := mustCreate(t, s, 2000)

	// Mutating a returned snapshot must not touch the store.
	tk.RemainingBalance = 0
	tk.Status = domain.StatusPaidOut

	got, err := s.GetByID(context.Background(), tk.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotPlayed, got.Status)
	assert.Equal(t, int64(2000), got.RemainingBalance)
}

// --- Lazy expiry ---

func TestLazyExpiry_PersistedOnRead(t *testing.T) {
	s := newTestStore(t)
	tk := mustCreate(t, s, 3000)

	// Jump the clock past the validity window.
	s.now = func() time.Time { return tk.ExpiresAt.Add(time.Minute) }

	got, err := s.GetByID(context.Background(), tk.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, got.Status)

	// Persisted: a second read at any clock agrees.
	s.now = time.Now
	again, err := s.GetByID(context.Background(), tk.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, again.Status)

	entries, err := s.ListEntries(context.Background(), tk.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.EntryExpiry, entries[1].Type)
}

func TestLazyExpiry_PrecedesPayout(t *testing.T) {
	s := newTestStore(t)
	tk := mustCreate(t, s, 3000)

	// Play it into an eligible active state first.
	_, err := s.ApplyGameplay(context.Background(), tk.ID, domain.GameplayDelta{Debit: 1000, WinCredit: 500})
	require.NoError(t, err)

	s.now = func() time.Time { return tk.ExpiresAt.Add(time.Hour) }

	_, err = s.CommitPayout(context.Background(), tk.ID, domain.ModeWinningsPlusBalance, uuid.New())
	require.Error(t, err)
	appErr := asAppError(t, err)
	assert.Equal(t, "PAYOUT_NOT_ELIGIBLE", appErr.Code)
	assert.Equal(t, payout.ReasonExpired, appErr.Message)
}

func TestLazyExpiry_NeverTouchesPaidOut(t *testing.T) {
	s := newTestStore(t)
	tk := mustCreate(t, s, 3000)

	receipt, err := s.CommitPayout(context.Background(), tk.ID, domain.ModeWinningsPlusBalance, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(3000), receipt.AmountPaid)

	s.now = func() time.Time { return tk.ExpiresAt.Add(time.Hour) }
	got, err := s.GetByID(context.Background(), tk.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaidOut, got.Status)
}

// --- Gameplay ---

func TestApplyGameplay_ActivatesOnFirstAction(t *testing.T) {
	s := newTestStore(t)
	tk := mustCreate(t, s, 5000)

	got, err := s.ApplyGameplay(context.Background(), tk.ID, domain.GameplayDelta{Debit: 1000})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, got.Status)
	assert.Equal(t, int64(4000), got.RemainingBalance)
}

func TestApplyGameplay_InsufficientBalance(t *testing.T) {
	s := newTestStore(t)
	tk := mustCreate(t, s, 1000)

	_, err := s.ApplyGameplay(context.Background(), tk.ID, domain.GameplayDelta{Debit: 1500})
	require.Error(t, err)
	assert.Equal(t, "INSUFFICIENT_BALANCE", asAppError(t, err).Code)

	// No partial application.
	got, err := s.GetByID(context.Background(), tk.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotPlayed, got.Status)
	assert.Equal(t, int64(1000), got.RemainingBalance)
}

func TestApplyGameplay_FinishedWon(t *testing.T) {
	s := newTestStore(t)
	tk := mustCreate(t, s, 1000)

	got, err := s.ApplyGameplay(context.Background(), tk.ID, domain.GameplayDelta{
		Debit: 1000, WinCredit: 2500, RoundEnded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinishedWon, got.Status)
	assert.Equal(t, int64(0), got.RemainingBalance)
	assert.Equal(t, int64(2500), got.TotalWinnings)
}

func TestApplyGameplay_FinishedLost(t *testing.T) {
	s := newTestStore(t)
	tk := mustCreate(t, s, 1000)

	got, err := s.ApplyGameplay(context.Background(), tk.ID, domain.GameplayDelta{
		Debit: 1000, RoundEnded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinishedLost, got.Status)
}

func TestApplyGameplay_RoundEndedWithBalanceLeftStaysActive(t *testing.T) {
	s := newTestStore(t)
	tk := mustCreate(t, s, 1000)

	got, err := s.ApplyGameplay(context.Background(), tk.ID, domain.GameplayDelta{
		Debit: 400, RoundEnded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, got.Status)
	assert.Equal(t, int64(600), got.RemainingBalance)
}

func TestApplyGameplay_RejectsTerminalStatuses(t *testing.T) {
	s := newTestStore(t)
	tk := mustCreate(t, s, 1000)

	_, err := s.CommitPayout(context.Background(), tk.ID, domain.ModeWinningsPlusBalance, uuid.New())
	require.NoError(t, err)

	_, err = s.ApplyGameplay(context.Background(), tk.ID, domain.GameplayDelta{Debit: 100})
	require.Error(t, err)
	assert.Equal(t, "TICKET_NOT_PLAYABLE", asAppError(t, err).Code)
}

func TestApplyGameplay_SingleScopeEnforced(t *testing.T) {
	s := newTestStore(t)
	tk, err := s.CreateTicket(context.Background(), domain.CreateTicketParams{
		Amount:    1000,
		GameScope: domain.ScopeSingle,
		GameID:    "lucky-seven",
	})
	require.NoError(t, err)

	_, err = s.ApplyGameplay(context.Background(), tk.ID, domain.GameplayDelta{
		GameID: "other-game", Debit: 100,
	})
	require.Error(t, err)
	assert.Equal(t, "INVALID_SCOPE", asAppError(t, err).Code)

	_, err = s.ApplyGameplay(context.Background(), tk.ID, domain.GameplayDelta{
		GameID: "lucky-seven", Debit: 100,
	})
	require.NoError(t, err)
}

// --- Payout ---

func TestCommitPayout_SetsPayoutFields(t *testing.T) {
	s := newTestStore(t)
	tk := mustCreate(t, s, 5000)
	operator := uuid.New()

	_, err := s.ApplyGameplay(context.Background(), tk.ID, domain.GameplayDelta{Debit: 1500, WinCredit: 2500})
	require.NoError(t, err)

	receipt, err := s.CommitPayout(context.Background(), tk.ID, domain.ModeWinningsPlusBalance, operator)
	require.NoError(t, err)

	assert.Equal(t, int64(2500+3500), receipt.AmountPaid)
	got := receipt.Ticket
	assert.Equal(t, domain.StatusPaidOut, got.Status)
	require.NotNil(t, got.PaidOutAt)
	require.NotNil(t, got.PaidOutBy)
	require.NotNil(t, got.PaidOutAmount)
	assert.Equal(t, operator, *got.PaidOutBy)
	assert.Equal(t, receipt.AmountPaid, *got.PaidOutAmount)
}

func TestCommitPayout_SecondAttemptNotEligible(t *testing.T) {
	s := newTestStore(t)
	tk := mustCreate(t, s, 5000)

	_, err := s.CommitPayout(context.Background(), tk.ID, domain.ModeWinningsPlusBalance, uuid.New())
	require.NoError(t, err)

	_, err = s.CommitPayout(context.Background(), tk.ID, domain.ModeWinningsPlusBalance, uuid.New())
	require.Error(t, err)
	appErr := asAppError(t, err)
	assert.Equal(t, "PAYOUT_NOT_ELIGIBLE", appErr.Code)
	assert.Equal(t, payout.ReasonAlreadyPaid, appErr.Message)
}

func TestCommitPayout_NoDoublePayout(t *testing.T) {
	s := newTestStore(t)
	tk := mustCreate(t, s, 5000)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.CommitPayout(context.Background(), tk.ID, domain.ModeWinningsPlusBalance, uuid.New())
		}(i)
	}
	wg.Wait()

	var succeeded, refused int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		refused++
		assert.Equal(t, "PAYOUT_NOT_ELIGIBLE", asAppError(t, err).Code)
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent payout must win")
	assert.Equal(t, attempts-1, refused)
}

func TestCommitPayout_FinishedLostNeverPayable(t *testing.T) {
	s := newTestStore(t)
	tk := mustCreate(t, s, 1000)

	_, err := s.ApplyGameplay(context.Background(), tk.ID, domain.GameplayDelta{Debit: 1000, RoundEnded: true})
	require.NoError(t, err)

	for _, mode := range []domain.PayoutMode{domain.ModeWinningsOnly, domain.ModeWinningsPlusBalance} {
		_, err := s.CommitPayout(context.Background(), tk.ID, mode, uuid.New())
		require.Error(t, err, "mode %s", mode)
		assert.Equal(t, "PAYOUT_NOT_ELIGIBLE", asAppError(t, err).Code)
	}
}

func TestCommitPayout_UnknownMode(t *testing.T) {
	s := newTestStore(t)
	tk := mustCreate(t, s, 1000)

	_, err := s.CommitPayout(context.Background(), tk.ID, domain.PayoutMode("cash_in_hand"), uuid.New())
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", asAppError(t, err).Code)
}

// --- Audit trail ---

func TestListEntries_FullTrail(t *testing.T) {
	s := newTestStore(t)
	tk := mustCreate(t, s, 5000)
	operator := uuid.New()

	_, err := s.ApplyGameplay(context.Background(), tk.ID, domain.GameplayDelta{Debit: 2000, WinCredit: 1000})
	require.NoError(t, err)
	_, err = s.CommitPayout(context.Background(), tk.ID, domain.ModeWinningsPlusBalance, operator)
	require.NoError(t, err)

	entries, err := s.ListEntries(context.Background(), tk.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, domain.EntryIssue, entries[0].Type)
	assert.Equal(t, int64(5000), entries[0].BalanceAfter)

	assert.Equal(t, domain.EntryGameplay, entries[1].Type)
	assert.Equal(t, int64(-2000), entries[1].BalanceDelta)
	assert.Equal(t, int64(3000), entries[1].BalanceAfter)
	assert.Equal(t, int64(1000), entries[1].WinningsAfter)

	assert.Equal(t, domain.EntryPayout, entries[2].Type)
	require.NotNil(t, entries[2].OperatorID)
	assert.Equal(t, operator, *entries[2].OperatorID)
	assert.Equal(t, domain.StatusPaidOut, entries[2].StatusAfter)
}

// --- Corruption detection ---

func TestRead_SurfacesCorruptRecord(t *testing.T) {
	s := newTestStore(t)
	tk := mustCreate(t, s, 1000)

	// Simulate a corrupt row: paid_out without payout fields.
	s.byID[tk.ID].Status = domain.StatusPaidOut

	_, err := s.GetByID(context.Background(), tk.ID)
	require.Error(t, err)
	assert.Equal(t, "INTERNAL_ERROR", asAppError(t, err).Code)
}

func asAppError(t *testing.T, err error) *domain.AppError {
	t.Helper()
	appErr, ok := err.(*domain.AppError)
	require.True(t, ok, "expected *domain.AppError, got %T: %v", err, err)
	return appErr
}
