package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrNotFound         = errors.New("resource not found")
	ErrAlreadyExists    = errors.New("resource already exists")
	ErrInvalidInput     = errors.New("invalid input")
	ErrWalletInactive   = errors.New("wallet is not active")
	ErrUnsupportedAsset = errors.New("unsupported asset")

	// Terminal business errors. No side effects have happened when these
	// are returned.
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrLimitExceeded       = errors.New("daily withdrawal limit exceeded")

	// ErrLockTimeout is transient: the nonce lease could not be acquired
	// within the retry budget. Safe to retry, no side effects.
	ErrLockTimeout = errors.New("nonce lock acquisition timed out")

	// ErrSubmissionFailed wraps signing/broadcast failures. The allocated
	// nonce has been rolled back and balances are untouched.
	ErrSubmissionFailed = errors.New("transaction submission failed")

	// ErrReconciliationRequired means the chain-reported nonce diverged from
	// local state in a way max() cannot resolve. Requires operator sync.
	ErrReconciliationRequired = errors.New("nonce state requires reconciliation")
)

// AppError carries a caller-facing message alongside the wrapped cause.
// Raw chain RPC errors are never surfaced verbatim; they travel in Err
// for logs while Message is what callers see.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new app error
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrap creates an error with a custom message wrapping an existing error
func Wrap(message string, err error) error {
	return &AppError{Message: message, Err: err}
}

// Wrapf is Wrap with formatting
func Wrapf(err error, format string, args ...interface{}) error {
	return &AppError{Message: fmt.Sprintf(format, args...), Err: err}
}

// IsRetryable reports whether the caller may safely retry the operation:
// the failure had no side effects and was caused by contention or a
// transient fault.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
