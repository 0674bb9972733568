// Package provider holds clients for external services the POS talks to.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/octane/cashier/internal/domain"
	"github.com/octane/cashier/internal/guard"
)

// DrawOracle resolves a printed draw-game ticket number to its result.
// Scanned draw tickets are not held in the local store; the national
// draw system is their source of truth.
type DrawOracle interface {
	LookupDrawTicket(ctx context.Context, number string) (*domain.DrawTicket, error)
}

// DrawOracleClient talks to the draw system's HTTP API, behind a circuit
// breaker so a flapping upstream doesn't stall the counter.
type DrawOracleClient struct {
	baseURL string
	logger  *slog.Logger
	client  *http.Client
	breaker *guard.CircuitBreaker
}

// NewDrawOracleClient creates a draw oracle client for the given base URL.
func NewDrawOracleClient(baseURL string, logger *slog.Logger) *DrawOracleClient {
	return &DrawOracleClient{
		baseURL: baseURL,
		logger:  logger,
		client:  &http.Client{Timeout: 5 * time.Second},
		breaker: guard.NewCircuitBreaker(5, 30*time.Second),
	}
}

// LookupDrawTicket fetches the draw result for a ticket number. Returns
// TICKET_NOT_FOUND when the draw system doesn't know the number.
func (c *DrawOracleClient) LookupDrawTicket(ctx context.Context, number string) (*domain.DrawTicket, error) {
	if c.baseURL == "" {
		return nil, domain.ErrInternal("draw oracle not configured", nil)
	}
	if res := c.breaker.Check(); !res.Allowed {
		return nil, domain.ErrInternal("draw oracle unavailable: "+res.Reason, nil)
	}

	endpoint := fmt.Sprintf("%s/v1/draw-tickets/%s", c.baseURL, url.PathEscape(number))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, domain.ErrInternal("draw oracle call failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var payload struct {
			Number    string `json:"number"`
			Status    string `json:"status"`
			WinAmount int64  `json:"win_amount"`
			DrawDate  string `json:"draw_date"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			c.breaker.RecordFailure()
			return nil, domain.ErrInternal("decode draw oracle response", err)
		}
		c.breaker.RecordSuccess()

		drawDate, _ := time.Parse(time.RFC3339, payload.DrawDate)
		return &domain.DrawTicket{
			Number:    payload.Number,
			Status:    domain.DrawTicketStatus(payload.Status),
			WinAmount: payload.WinAmount,
			DrawDate:  drawDate,
		}, nil
	case http.StatusNotFound:
		c.breaker.RecordSuccess()
		return nil, domain.ErrTicketNotFound(number)
	default:
		c.breaker.RecordFailure()
		return nil, domain.ErrInternal(fmt.Sprintf("draw oracle returned %d", resp.StatusCode), nil)
	}
}
