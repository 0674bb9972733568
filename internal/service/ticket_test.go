package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octane/cashier/internal/domain"
	"github.com/octane/cashier/internal/policy"
	"github.com/octane/cashier/internal/store"
	"github.com/octane/cashier/internal/ticketcode"
)

type fakeOracle struct {
	tickets map[string]*domain.DrawTicket
}

func (f *fakeOracle) LookupDrawTicket(_ context.Context, number string) (*domain.DrawTicket, error) {
	dt, ok := f.tickets[number]
	if !ok {
		return nil, domain.ErrTicketNotFound(number)
	}
	return dt, nil
}

func newTestService(oracle *fakeOracle) *TicketService {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	st := store.NewMemoryStore(30 * 24 * time.Hour)
	if oracle == nil {
		return NewTicketService(st, nil, logger)
	}
	return NewTicketService(st, oracle, logger)
}

func TestCreateTicket_IdempotencyKeyDeduplicates(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	params := domain.CreateTicketParams{Amount: 5000, GameScope: domain.ScopeAll}

	first, err := svc.CreateTicket(ctx, params, "terminal-1-req-9")
	require.NoError(t, err)

	_, err = svc.CreateTicket(ctx, params, "terminal-1-req-9")
	require.Error(t, err)

	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFLICT", appErr.Code)

	// A different key issues a fresh ticket.
	second, err := svc.CreateTicket(ctx, params, "terminal-1-req-10")
	require.NoError(t, err)
	assert.NotEqual(t, first.Code, second.Code)
}

func TestCreateTicket_FailureFreesIdempotencyKey(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	_, err := svc.CreateTicket(ctx, domain.CreateTicketParams{Amount: -1, GameScope: domain.ScopeAll}, "retry-key")
	require.Error(t, err)

	_, err = svc.CreateTicket(ctx, domain.CreateTicketParams{Amount: 2000, GameScope: domain.ScopeAll}, "retry-key")
	require.NoError(t, err)
}

func TestLookup_RoutesQRToStore(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	issued, err := svc.CreateTicket(ctx, domain.CreateTicketParams{Amount: 1000, GameScope: domain.ScopeAll}, "")
	require.NoError(t, err)

	res, err := svc.Lookup(ctx, "  "+issued.Code+"  ")
	require.NoError(t, err)
	assert.Equal(t, ticketcode.KindQR, res.Kind)
	require.NotNil(t, res.Ticket)
	assert.Equal(t, issued.ID, res.Ticket.ID)
	assert.Nil(t, res.DrawTicket)
}

func TestLookup_RoutesDrawToOracle(t *testing.T) {
	oracle := &fakeOracle{tickets: map[string]*domain.DrawTicket{
		"0289-2397122442-00028362302": {
			Number:    "0289-2397122442-00028362302",
			Status:    domain.DrawWon,
			WinAmount: 75000,
		},
	}}
	svc := newTestService(oracle)

	res, err := svc.Lookup(context.Background(), "0289-2397122442-00028362302")
	require.NoError(t, err)
	assert.Equal(t, ticketcode.KindDraw, res.Kind)
	require.NotNil(t, res.DrawTicket)
	assert.Equal(t, int64(75000), res.DrawTicket.WinAmount)
	assert.Nil(t, res.Ticket)
}

func TestLookup_UnknownCodeRejectedBeforeBackends(t *testing.T) {
	svc := newTestService(nil)

	_, err := svc.Lookup(context.Background(), "garbage")
	require.Error(t, err)

	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestLookup_DrawWithoutOracleConfigured(t *testing.T) {
	svc := newTestService(nil)

	_, err := svc.Lookup(context.Background(), "0289-2397122442-00028362302")
	require.Error(t, err)

	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestPreviewPayout_DoesNotCommit(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	issued, err := svc.CreateTicket(ctx, domain.CreateTicketParams{Amount: 5000, GameScope: domain.ScopeAll}, "")
	require.NoError(t, err)

	calc, err := svc.PreviewPayout(ctx, issued.ID, domain.ModeWinningsPlusBalance)
	require.NoError(t, err)
	assert.True(t, calc.CanPayout)
	assert.Equal(t, int64(5000), calc.TotalPayout)

	after, err := svc.GetByID(ctx, issued.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotPlayed, after.Status)
}

func TestPreviewPayout_UnknownMode(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	issued, err := svc.CreateTicket(ctx, domain.CreateTicketParams{Amount: 5000, GameScope: domain.ScopeAll}, "")
	require.NoError(t, err)

	_, err = svc.PreviewPayout(ctx, issued.ID, domain.PayoutMode("partial"))
	assert.Error(t, err)
}

func TestProcessPayout_CommitsOnce(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	operatorID := uuid.New()

	issued, err := svc.CreateTicket(ctx, domain.CreateTicketParams{Amount: 5000, GameScope: domain.ScopeAll}, "")
	require.NoError(t, err)

	receipt, err := svc.ProcessPayout(ctx, issued.ID, domain.ModeWinningsPlusBalance, operatorID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), receipt.AmountPaid)
	assert.Equal(t, domain.StatusPaidOut, receipt.Ticket.Status)

	_, err = svc.ProcessPayout(ctx, issued.ID, domain.ModeWinningsPlusBalance, operatorID)
	require.Error(t, err)

	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "PAYOUT_NOT_ELIGIBLE", appErr.Code)
}

func TestApplyGameplay_FlowsThroughToStore(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	issued, err := svc.CreateTicket(ctx, domain.CreateTicketParams{Amount: 3000, GameScope: domain.ScopeAll}, "")
	require.NoError(t, err)

	updated, err := svc.ApplyGameplay(ctx, issued.ID, domain.GameplayDelta{
		GameID: "octane-spin", Debit: 1000, WinCredit: 2500, RoundEnded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinishedWon, updated.Status)
	assert.Equal(t, int64(2000), updated.RemainingBalance)
	assert.Equal(t, int64(2500), updated.TotalWinnings)

	entries, err := svc.Entries(ctx, issued.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.EntryIssue, entries[0].Type)
	assert.Equal(t, domain.EntryGameplay, entries[1].Type)
}

func TestCreateTicket_RefusesDepositOverCounterLimit(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	_, err := svc.CreateTicket(ctx, domain.CreateTicketParams{Amount: 60_000, GameScope: domain.ScopeAll}, "")
	require.Error(t, err)

	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
}

func TestProcessPayout_RefusesOverDailyCounterLimit(t *testing.T) {
	svc := newTestService(nil)
	svc.limits = policy.CounterLimitPolicy{DailyPayoutMax: 8_000}
	ctx := context.Background()
	operatorID := uuid.New()

	first, err := svc.CreateTicket(ctx, domain.CreateTicketParams{Amount: 5_000, GameScope: domain.ScopeAll}, "")
	require.NoError(t, err)
	second, err := svc.CreateTicket(ctx, domain.CreateTicketParams{Amount: 5_000, GameScope: domain.ScopeAll}, "")
	require.NoError(t, err)

	_, err = svc.ProcessPayout(ctx, first.ID, domain.ModeWinningsPlusBalance, operatorID)
	require.NoError(t, err)

	_, err = svc.ProcessPayout(ctx, second.ID, domain.ModeWinningsPlusBalance, operatorID)
	require.Error(t, err)

	var appErr *domain.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)

	// A different operator is under their own daily total.
	_, err = svc.ProcessPayout(ctx, second.ID, domain.ModeWinningsPlusBalance, uuid.New())
	require.NoError(t, err)
}
