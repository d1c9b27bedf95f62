package model

import (
	"errors"
	"fmt"
)

// Reason is the stable, machine-readable cause attached to every rejected or failed request.
type Reason string

const (
	ReasonInvalidRequest       Reason = "invalid-request"
	ReasonInvalidAuthorization Reason = "invalid-authorization"
	ReasonMissingPrincipal     Reason = "missing-principal"
	ReasonUnauthorized         Reason = "unauthorized"
	ReasonAccountNotFound      Reason = "account-not-found"
	ReasonInvalidAmount        Reason = "invalid-amount"
	ReasonInsufficientBalance  Reason = "insufficient-balance"
	ReasonSelfTransfer         Reason = "self-transfer"
	ReasonLockTimeout          Reason = "lock-timeout"
	ReasonWriteFailed          Reason = "write-failed"
	ReasonInconsistentState    Reason = "inconsistent-state"
	ReasonStoreUnavailable     Reason = "store-unavailable"
)

var (
	ErrInvalidRequest      = errors.New("invalid transfer request")
	ErrUnauthorized        = errors.New("transfer is not authorized")
	ErrAccountNotFound     = errors.New("account not found")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSelfTransfer        = errors.New("sender and recipient are the same account")
	ErrLockTimeout         = errors.New("timed out waiting for account lock")
	ErrWriteFailed         = errors.New("account write failed")
	// ErrInconsistentState means a compensating rollback failed and balances need manual reconciliation.
	ErrInconsistentState = errors.New("ledger is in an inconsistent state")
	ErrStoreUnavailable  = errors.New("account store unavailable")
)

var reasonErrors = map[Reason]error{
	ReasonInvalidRequest:      ErrInvalidRequest,
	ReasonUnauthorized:        ErrUnauthorized,
	ReasonAccountNotFound:     ErrAccountNotFound,
	ReasonInvalidAmount:       ErrInvalidAmount,
	ReasonInsufficientBalance: ErrInsufficientBalance,
	ReasonSelfTransfer:        ErrSelfTransfer,
	ReasonLockTimeout:         ErrLockTimeout,
	ReasonWriteFailed:         ErrWriteFailed,
	ReasonInconsistentState:   ErrInconsistentState,
	ReasonStoreUnavailable:    ErrStoreUnavailable,
}

// TransferError carries the failure reason alongside the underlying cause.
type TransferError struct {
	Reason Reason
	Err    error
}

func (e *TransferError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel registered for the reason even when Err wraps something else.
func (e *TransferError) Is(target error) bool {
	sentinel, ok := reasonErrors[e.Reason]
	return ok && sentinel == target
}

// NewTransferError builds a TransferError for reason, defaulting the cause to the reason's sentinel.
func NewTransferError(reason Reason, cause error) *TransferError {
	if cause == nil {
		cause = reasonErrors[reason]
	}
	return &TransferError{Reason: reason, Err: cause}
}

// ReasonOf extracts the failure reason from err, or "" if err carries none.
func ReasonOf(err error) Reason {
	var te *TransferError
	if errors.As(err, &te) {
		return te.Reason
	}
	return ""
}
