package domain

import (
	"errors"
	"strings"
)

// Common domain errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Earning and ledger errors
var (
	ErrAccessDenied        = errors.New("membership inactive or expired")
	ErrQuotaExceeded       = errors.New("daily task quota exceeded")
	ErrAlreadyCompleted    = errors.New("task already completed")
	ErrAlreadyProcessed    = errors.New("request already processed")
	ErrVerificationFailed  = errors.New("verification failed")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDataIntegrity       = errors.New("data integrity warning")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInvalidKind         = errors.New("transaction kind does not allow this direction")
	ErrDuplicateReference  = errors.New("transaction reference already used")
)

// Withdrawal errors
var (
	ErrBelowMinimumWithdrawal = errors.New("amount below minimum withdrawal")
	ErrWithdrawalInProgress   = errors.New("another withdrawal is still open")
	ErrInvalidTransition      = errors.New("transition not allowed from current status")
)

// VerificationError carries the scorer result of a failed attempt.
type VerificationError struct {
	Result VerificationResult
}

func (e *VerificationError) Error() string {
	if len(e.Result.Reasons) == 0 {
		return ErrVerificationFailed.Error()
	}
	return ErrVerificationFailed.Error() + ": " + strings.Join(e.Result.Reasons, "; ")
}

// Is lets errors.Is(err, ErrVerificationFailed) match.
func (e *VerificationError) Is(target error) bool {
	return target == ErrVerificationFailed
}
