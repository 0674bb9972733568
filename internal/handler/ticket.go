package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/octane/cashier/internal/auth"
	"github.com/octane/cashier/internal/domain"
	"github.com/octane/cashier/internal/service"
)

// TicketHandler handles the ticket lifecycle endpoints.
type TicketHandler struct {
	tickets *service.TicketService
}

// NewTicketHandler creates a new TicketHandler.
func NewTicketHandler(tickets *service.TicketService) *TicketHandler {
	return &TicketHandler{tickets: tickets}
}

// Create handles POST /tickets. The optional Idempotency-Key header
// deduplicates terminal double-taps.
func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	var params domain.CreateTicketParams
	if err := DecodeJSON(r, &params); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "invalid request body",
		})
		return
	}

	t, err := h.tickets.CreateTicket(r.Context(), params, r.Header.Get("Idempotency-Key"))
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, t)
}

// Lookup handles GET /tickets/lookup?code=...
func (h *TicketHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		RespondError(w, domain.ErrValidation("code query parameter is required"))
		return
	}

	res, err := h.tickets.Lookup(r.Context(), code)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, res)
}

// Get handles GET /tickets/{id}.
func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := ticketID(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	t, err := h.tickets.GetByID(r.Context(), id)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, t)
}

// Entries handles GET /tickets/{id}/entries.
func (h *TicketHandler) Entries(w http.ResponseWriter, r *http.Request) {
	id, err := ticketID(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	entries, err := h.tickets.Entries(r.Context(), id)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// PreviewPayout handles GET /tickets/{id}/payout-preview?mode=...
func (h *TicketHandler) PreviewPayout(w http.ResponseWriter, r *http.Request) {
	id, err := ticketID(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	mode := domain.PayoutMode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = domain.ModeWinningsPlusBalance
	}

	calc, err := h.tickets.PreviewPayout(r.Context(), id, mode)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, calc)
}

// payoutRequest is the body of POST /tickets/{id}/payout.
type payoutRequest struct {
	Mode domain.PayoutMode `json:"mode"`
}

// Payout handles POST /tickets/{id}/payout. The paying operator comes from
// the cashier JWT, not the body.
func (h *TicketHandler) Payout(w http.ResponseWriter, r *http.Request) {
	id, err := ticketID(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	operatorID, err := uuid.Parse(auth.SubjectFromContext(r.Context()))
	if err != nil {
		RespondError(w, domain.ErrUnauthorized("no operator in auth context"))
		return
	}

	// An absent body means the default mode.
	var req payoutRequest
	if err := DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "invalid request body",
		})
		return
	}
	if req.Mode == "" {
		req.Mode = domain.ModeWinningsPlusBalance
	}

	receipt, err := h.tickets.ProcessPayout(r.Context(), id, req.Mode, operatorID)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, receipt)
}

// Gameplay handles POST /tickets/{id}/gameplay (backend realm).
func (h *TicketHandler) Gameplay(w http.ResponseWriter, r *http.Request) {
	id, err := ticketID(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var delta domain.GameplayDelta
	if err := DecodeJSON(r, &delta); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "invalid request body",
		})
		return
	}

	t, err := h.tickets.ApplyGameplay(r.Context(), id, delta)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, t)
}

func ticketID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, domain.ErrValidation("invalid ticket id")
	}
	return id, nil
}
