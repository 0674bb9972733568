//go:build integration

package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
)

// DecodeJSON reads and decodes a JSON response body into dst.
func DecodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
}

// AssertStatus checks that the response has the expected HTTP status code.
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// AssertErrorCode checks that the response body contains the expected error code.
func AssertErrorCode(t *testing.T, resp *http.Response, expectedCode string) {
	t.Helper()
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	DecodeJSON(t, resp, &errResp)
	if errResp.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, errResp.Code, errResp.Message)
	}
}

// AssertTicketState queries the tickets table and asserts status and balances.
func AssertTicketState(t *testing.T, env *TestEnv, ticketID uuid.UUID, status string, balance, winnings int64) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var st string
	var bal, win int64
	err := env.Pool.QueryRow(ctx,
		"SELECT status, remaining_balance, total_winnings FROM tickets WHERE id = $1",
		ticketID).Scan(&st, &bal, &win)
	if err != nil {
		t.Fatalf("AssertTicketState: query: %v", err)
	}
	if st != status {
		t.Errorf("status: expected %q, got %q", status, st)
	}
	if bal != balance {
		t.Errorf("remaining_balance: expected %d, got %d", balance, bal)
	}
	if win != winnings {
		t.Errorf("total_winnings: expected %d, got %d", winnings, win)
	}
}

// CountEntries returns the number of audit entries for a ticket.
func CountEntries(t *testing.T, env *TestEnv, ticketID uuid.UUID) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	err := env.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM ticket_entries WHERE ticket_id = $1", ticketID).Scan(&count)
	if err != nil {
		t.Fatalf("CountEntries: %v", err)
	}
	return count
}

// CountOutboxEvents returns the number of outbox events for an aggregate.
func CountOutboxEvents(t *testing.T, env *TestEnv, aggregateID string) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	err := env.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM event_outbox WHERE aggregate_id = $1", aggregateID).Scan(&count)
	if err != nil {
		t.Fatalf("CountOutboxEvents: %v", err)
	}
	return count
}
