package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for binary checks with errors.Is().
var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrStorageUnavailable   = errors.New("storage unavailable")
	ErrInvariantViolation   = errors.New("balance update applied asymmetrically")
	ErrIllegalTransition    = errors.New("illegal transaction status transition")
	ErrAccountNotEmpty      = errors.New("account balance must be zero")
	ErrAccountLimitReached  = errors.New("active account limit reached")
	ErrNumberTaken          = errors.New("account number already in use")
)

// ValidationError reports a failed transfer precondition. Preconditions are
// checked before the intent phase, so a ValidationError guarantees no record
// was created and no state changed.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Validation is a shorthand constructor.
func Validation(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

// Codes carried by TransferError so callers can distinguish mutation-phase
// failures with errors.As().
type TransferErrCode int

const (
	CodeUnknown TransferErrCode = iota
	CodeInsufficientFunds
	CodeStorageUnavailable
	CodeInvariantViolation
)

// TransferError wraps any failure of the atomic mutation phase. By the time
// one is returned the pending transaction has already been resolved to
// cancelled.
type TransferError struct {
	Code          TransferErrCode
	TransactionID string
	Err           error
}

func (e *TransferError) Error() string {
	switch e.Code {
	case CodeInsufficientFunds:
		return fmt.Sprintf("transfer %s cancelled: %v", e.TransactionID, ErrInsufficientFunds)
	case CodeStorageUnavailable:
		return fmt.Sprintf("transfer %s cancelled: %v", e.TransactionID, e.Err)
	case CodeInvariantViolation:
		return fmt.Sprintf("transfer %s cancelled: %v", e.TransactionID, ErrInvariantViolation)
	default:
		return fmt.Sprintf("transfer %s failed: %v", e.TransactionID, e.Err)
	}
}

// Unwrap lets errors.Is and errors.As see through to the cause.
func (e *TransferError) Unwrap() error {
	return e.Err
}
