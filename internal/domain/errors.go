package domain

import "fmt"

// AppError is the base domain error type. Every fallible operation in the
// cashier core returns one of these; handlers map Code/Status to responses.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Ticket business errors.

func ErrInvalidAmount(amount int64) *AppError {
	return &AppError{Code: "INVALID_AMOUNT", Message: fmt.Sprintf("deposit amount must be positive, got %d", amount), Status: 400}
}

func ErrInvalidScope(msg string) *AppError {
	return &AppError{Code: "INVALID_SCOPE", Message: msg, Status: 400}
}

func ErrTicketNotFound(ref string) *AppError {
	return &AppError{Code: "TICKET_NOT_FOUND", Message: fmt.Sprintf("ticket %s not found", ref), Status: 404}
}

func ErrInsufficientBalance() *AppError {
	return &AppError{Code: "INSUFFICIENT_BALANCE", Message: "debit exceeds remaining balance", Status: 400}
}

func ErrPayoutNotEligible(reason string) *AppError {
	return &AppError{Code: "PAYOUT_NOT_ELIGIBLE", Message: reason, Status: 409}
}

func ErrTicketNotPlayable(status TicketStatus) *AppError {
	return &AppError{Code: "TICKET_NOT_PLAYABLE", Message: fmt.Sprintf("ticket status %s does not accept gameplay", status), Status: 409}
}

// ErrCodeCollision is internal only: the store regenerates the code and
// retries rather than surfacing this to callers.
func ErrCodeCollision(code string) *AppError {
	return &AppError{Code: "CODE_COLLISION", Message: fmt.Sprintf("ticket code %s already issued", code), Status: 500}
}

// Ambient errors shared across the service surface.

func ErrValidation(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg, Status: 400}
}

func ErrConflict(msg string) *AppError {
	return &AppError{Code: "CONFLICT", Message: msg, Status: 409}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Status: 401}
}

func ErrForbidden(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Message: msg, Status: 403}
}

func ErrAccountLocked(msg string) *AppError {
	return &AppError{Code: "ACCOUNT_LOCKED", Message: msg, Status: 429}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: msg, Status: 500, Cause: cause}
}
