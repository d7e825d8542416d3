package apperror

import (
	"fmt"
	"net/http"
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

// ---- Request Authentication (SEC) ----

func ErrInvalidSigner() *AppError {
	return New("SEC_001", "Missing or invalid signer", http.StatusUnauthorized)
}

func ErrInvalidSignature() *AppError {
	return New("SEC_002", "Invalid signature", http.StatusUnauthorized)
}

func ErrTimestampExpired() *AppError {
	return New("SEC_003", "Request timestamp expired", http.StatusForbidden)
}

func ErrNonceUsed() *AppError {
	return New("SEC_004", "Nonce has already been used", http.StatusForbidden)
}

// ---- Fairness Protocol (FAIR) ----
// Authentication failures of a resolution. Retrying requires a new,
// correctly bound house signature.

func ErrInvalidEd25519ProgramID() *AppError {
	return New("FAIR_001", "Invalid Ed25519 program ID", http.StatusForbidden)
}

func ErrInvalidEd25519Accounts() *AppError {
	return New("FAIR_002", "Instruction should not include any accounts", http.StatusForbidden)
}

func ErrInvalidEd25519SignatureLen() *AppError {
	return New("FAIR_003", "Instruction should contain only 1 signature", http.StatusForbidden)
}

func ErrInvalidEd25519Header() *AppError {
	return New("FAIR_004", "Signature not verifiable", http.StatusForbidden)
}

func ErrInvalidEd25519Pubkey() *AppError {
	return New("FAIR_005", "Signature pubkey does not match house pubkey", http.StatusForbidden)
}

func ErrInvalidEd25519Signature() *AppError {
	return New("FAIR_006", "Signature does not match", http.StatusForbidden)
}

func ErrInvalidEd25519Message() *AppError {
	return New("FAIR_007", "Instruction data does not match", http.StatusForbidden)
}

func ErrSignatureVerificationFailed() *AppError {
	return New("FAIR_008", "Ed25519 signature verification failed", http.StatusForbidden)
}

func ErrMalformedInstruction(err error) *AppError {
	return Wrap("FAIR_009", "Malformed Ed25519 instruction", http.StatusBadRequest, err)
}

// ---- Bet Lifecycle (BET) ----

func ErrBetNotFound() *AppError {
	return New("BET_001", "Bet not found", http.StatusNotFound)
}

func ErrBetAlreadyExists() *AppError {
	return New("BET_002", "A bet already exists for this seed", http.StatusConflict)
}

func ErrRefundCooldownNotElapsed() *AppError {
	return New("BET_003", "Bets can only be refunded after 9000 slots", http.StatusTooEarly)
}

func ErrInvalidTarget() *AppError {
	return New("BET_004", "Target must be between 2 and 99", http.StatusBadRequest)
}

func ErrBetAddressMismatch() *AppError {
	return New("BET_005", "Bet address does not derive from the house vault and seed", http.StatusBadRequest)
}

func ErrPlayerMismatch() *AppError {
	return New("BET_006", "Caller is not the player of this bet", http.StatusForbidden)
}

// ---- Ledger & Custody (LEDGER) ----

func ErrInsufficientFunds() *AppError {
	return New("LEDGER_001", "Insufficient balance", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("LEDGER_002", "Invalid amount", http.StatusBadRequest)
}

func ErrArithmeticOverflow(err error) *AppError {
	return Wrap("LEDGER_003", "Arithmetic overflow or division by zero", http.StatusUnprocessableEntity, err)
}

func ErrNotFound(entity string) *AppError {
	return New("LEDGER_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrFaucetDisabled() *AppError {
	return New("LEDGER_005", "Deposits are disabled", http.StatusForbidden)
}

// ---- House Registry (HOUSE) ----

func ErrHouseAlreadyRegistered() *AppError {
	return New("HOUSE_001", "House is already registered", http.StatusConflict)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrClockUnavailable(err error) *AppError {
	return Wrap("SYS_002", "Ledger clock unavailable", http.StatusServiceUnavailable, err)
}

func ErrRequestTooLarge() *AppError {
	return New("SYS_003", "Request body too large", http.StatusRequestEntityTooLarge)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a LEDGER_002-style validation error.
func Validation(message string) *AppError {
	return New("LEDGER_002", message, http.StatusBadRequest)
}
