package apperror

import (
	"fmt"
	"net/http"
	"strings"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (VAL) ----
// Bad input, rejected synchronously with no side effects. Safe to retry
// after correction.

func ErrInvalidQuantity() *AppError {
	return New("VAL_001", "Quantity must be positive", http.StatusBadRequest)
}

func ErrInvalidPrice() *AppError {
	return New("VAL_002", "Price must be positive", http.StatusBadRequest)
}

func ErrUnknownCreditType(code string) *AppError {
	return New("VAL_003", fmt.Sprintf("Unknown credit type: %s", code), http.StatusBadRequest)
}

func ErrInvalidOrder(reason string) *AppError {
	return New("VAL_004", fmt.Sprintf("Invalid order: %s", reason), http.StatusBadRequest)
}

func ErrUnknownRate(creditType, subtype string) *AppError {
	return New("VAL_005", fmt.Sprintf("No conversion rate for %s/%s", creditType, subtype), http.StatusBadRequest)
}

// Validation returns a generic VAL_000 validation error.
func Validation(message string) *AppError {
	return New("VAL_000", message, http.StatusBadRequest)
}

// ---- State conflict (STATE) ----
// Surfaced to the caller, never retried automatically.

func ErrAlreadyDecided() *AppError {
	return New("STATE_001", "Claim has already been decided", http.StatusConflict)
}

func ErrNotCancellable() *AppError {
	return New("STATE_002", "Order is filled or already cancelled", http.StatusConflict)
}

func ErrNotOwner() *AppError {
	return New("STATE_003", "Requester does not own this order", http.StatusForbidden)
}

func ErrNotFound(entity string) *AppError {
	return New("STATE_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Resource (RES) ----
// Caller must adjust and resubmit.

func ErrInsufficientBalance() *AppError {
	return New("RES_001", "Insufficient balance", http.StatusUnprocessableEntity)
}

func ErrInsufficientReservation() *AppError {
	return New("RES_002", "Insufficient reserved balance", http.StatusUnprocessableEntity)
}

// ---- Invariant violation (INV) ----
// Indicates a bug in reservation or settlement logic, not a user error.
// The operation is rolled back and the event escalated via logging.

func ErrLedgerInvariant(err error) *AppError {
	return Wrap("INV_001", "Ledger invariant violation", http.StatusInternalServerError, err)
}

func ErrSettlementFailed(err error) *AppError {
	return Wrap("INV_002", "Trade settlement leg failed", http.StatusInternalServerError, err)
}

// IsInvariantViolation reports whether err carries an INV_* code.
func IsInvariantViolation(err *AppError) bool {
	return err != nil && strings.HasPrefix(err.Code, "INV_")
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrLockTimeout(err error) *AppError {
	return Wrap("SYS_002", "Lock acquisition timeout", http.StatusServiceUnavailable, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
