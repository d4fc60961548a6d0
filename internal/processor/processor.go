// Package processor wraps the external payment provider. The engine only
// sees these interfaces; every mutating call carries the transaction id as
// idempotency key so client-side retries never duplicate a movement.
package processor

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// CheckoutParams describes a hosted funding session to create.
type CheckoutParams struct {
	TransactionID string
	WalletID      uint
	UserID        uint
	WalletRef     string
	CustomerID    string
	Amount        decimal.Decimal
	Currency      string
}

// CheckoutSession is the provider-side funding session the user is sent to.
type CheckoutSession struct {
	ID  string
	URL string
}

// PayoutParams describes an outbound movement to a connected account.
type PayoutParams struct {
	TransactionID      string
	DestinationAccount string
	Amount             decimal.Decimal
	Currency           string
}

// PayoutResult carries the provider references for a transfer+payout pair.
// The transfer id is kept on the transaction so a later failure can be
// reversed.
type PayoutResult struct {
	TransferID string
	PayoutID   string
}

// Account is the connected-account state wallet capabilities are synced
// from.
type Account struct {
	ID               string
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
}

type Processor interface {
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error)
	PayOut(ctx context.Context, p PayoutParams) (*PayoutResult, error)
	ReverseTransfer(ctx context.Context, transferID string, amount decimal.Decimal, reason string) error
	// CreateAccount provisions a connected account for payouts and returns
	// its provider id.
	CreateAccount(ctx context.Context, email string) (string, error)
	RetrieveAccount(ctx context.Context, accountID string) (*Account, error)
	CreateOnboardingLink(ctx context.Context, accountID string) (string, error)
}

// Envelope is the decoded webhook event: a type tag plus the raw provider
// object, which the reconciliation handlers decode per event kind.
type Envelope struct {
	ID   string
	Type string
	Data json.RawMessage
}

// SignatureVerifier checks webhook authenticity against a configured
// secret before anything else looks at the payload.
type SignatureVerifier interface {
	Verify(payload []byte, signature string) (*Envelope, error)
}
