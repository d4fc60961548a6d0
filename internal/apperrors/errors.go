// Package apperrors defines the error taxonomy shared across the engine.
// Domain errors carry a stable code and message that are safe to return to
// callers; anything else is internal detail and stays out of responses.
package apperrors

// DomainError is a business-rule violation. It is rejected before any
// partial effect is applied.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

var (
	ErrInsufficientFunds = &DomainError{
		Code:    "INSUFFICIENT_FUNDS",
		Message: "insufficient wallet balance",
	}
	ErrWalletLocked = &DomainError{
		Code:    "WALLET_LOCKED",
		Message: "wallet is locked",
	}
	ErrWalletNotFound = &DomainError{
		Code:    "WALLET_NOT_FOUND",
		Message: "wallet not found",
	}
	ErrTransactionNotFound = &DomainError{
		Code:    "TRANSACTION_NOT_FOUND",
		Message: "transaction not found",
	}
	ErrInvalidAmount = &DomainError{
		Code:    "INVALID_AMOUNT",
		Message: "amount must be greater than zero",
	}
	ErrPayoutsDisabled = &DomainError{
		Code:    "PAYOUTS_DISABLED",
		Message: "payouts are not enabled for this wallet",
	}
	ErrSelfTransfer = &DomainError{
		Code:    "SELF_TRANSFER",
		Message: "cannot transfer to the same wallet",
	}
	ErrEmailTaken = &DomainError{
		Code:    "EMAIL_TAKEN",
		Message: "email already registered",
	}
	ErrInvalidCredentials = &DomainError{
		Code:    "INVALID_CREDENTIALS",
		Message: "invalid email or password",
	}
)

// AuthenticityError covers webhook requests whose origin cannot be
// verified. The whole request is rejected without any state change.
type AuthenticityError struct {
	Reason string
}

func (e *AuthenticityError) Error() string {
	return "invalid webhook signature: " + e.Reason
}

// ExternalProcessorError wraps a failed call to the payment processor.
// The caller may retry; any optimistic ledger change has already been
// compensated by the time this surfaces.
type ExternalProcessorError struct {
	Op  string
	Err error
}

func (e *ExternalProcessorError) Error() string {
	return "payment processor " + e.Op + ": " + e.Err.Error()
}

func (e *ExternalProcessorError) Unwrap() error {
	return e.Err
}
