package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletConfig carries the service-level settings.
type WalletConfig struct {
	Currency    string
	ExpiryDelay time.Duration
}

// FundResult is returned from Fund: the pending transaction and where to
// send the user to complete payment.
type FundResult struct {
	TransactionID string `json:"transactionId"`
	CheckoutURL   string `json:"checkoutUrl"`
}

// TransferRequest is a wallet-to-wallet movement addressed by wallet ref.
type TransferRequest struct {
	RecipientWalletRef string          `json:"recipientWalletRef"`
	Amount             decimal.Decimal `json:"amount"`
	Note               string          `json:"note"`
}
