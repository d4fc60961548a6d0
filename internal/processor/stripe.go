package processor

import (
	"context"
	"strconv"

	"nilepay/internal/apperrors"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"github.com/stripe/stripe-go/v72/webhook"
)

// StripeConfig holds the provider credentials and redirect URLs.
type StripeConfig struct {
	SecretKey   string
	FrontendURL string
	BackendURL  string
}

type stripeProcessor struct {
	api *client.API
	cfg StripeConfig
}

// NewStripe builds the stripe-backed Processor.
func NewStripe(cfg StripeConfig) Processor {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &stripeProcessor{api: api, cfg: cfg}
}

func (s *stripeProcessor) CreateCheckoutSession(_ context.Context, p CheckoutParams) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(p.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String("Wallet Funding"),
						Description: stripe.String("Funding wallet " + p.WalletRef),
					},
					UnitAmount: stripe.Int64(minorUnits(p.Amount)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.cfg.BackendURL + "/checkout/success"),
		CancelURL:  stripe.String(s.cfg.FrontendURL + "/cancel"),
	}
	if p.CustomerID != "" {
		params.Customer = stripe.String(p.CustomerID)
	}
	params.AddMetadata("transactionId", p.TransactionID)
	params.AddMetadata("walletId", strconv.FormatUint(uint64(p.WalletID), 10))
	params.AddMetadata("userId", strconv.FormatUint(uint64(p.UserID), 10))
	params.SetIdempotencyKey(p.TransactionID)

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, &apperrors.ExternalProcessorError{Op: "create checkout session", Err: err}
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// PayOut moves funds to the connected account in two provider calls: a
// transfer to the account balance, then a payout from it. Both are keyed
// on the transaction id so a retried withdrawal reuses the same movement.
func (s *stripeProcessor) PayOut(_ context.Context, p PayoutParams) (*PayoutResult, error) {
	amount := minorUnits(p.Amount)

	transferParams := &stripe.TransferParams{
		Amount:      stripe.Int64(amount),
		Currency:    stripe.String(p.Currency),
		Destination: stripe.String(p.DestinationAccount),
	}
	transferParams.AddMetadata("transactionId", p.TransactionID)
	transferParams.SetIdempotencyKey(p.TransactionID + ":transfer")

	transfer, err := s.api.Transfers.New(transferParams)
	if err != nil {
		return nil, &apperrors.ExternalProcessorError{Op: "create transfer", Err: err}
	}

	payoutParams := &stripe.PayoutParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(p.Currency),
	}
	payoutParams.AddMetadata("transactionId", p.TransactionID)
	payoutParams.SetStripeAccount(p.DestinationAccount)
	payoutParams.SetIdempotencyKey(p.TransactionID + ":payout")

	payout, err := s.api.Payouts.New(payoutParams)
	if err != nil {
		return nil, &apperrors.ExternalProcessorError{Op: "create payout", Err: err}
	}

	return &PayoutResult{TransferID: transfer.ID, PayoutID: payout.ID}, nil
}

func (s *stripeProcessor) ReverseTransfer(_ context.Context, transferID string, amount decimal.Decimal, reason string) error {
	params := &stripe.ReversalParams{
		Transfer: stripe.String(transferID),
		Amount:   stripe.Int64(minorUnits(amount)),
	}
	params.AddMetadata("reason", reason)

	if _, err := s.api.Reversals.New(params); err != nil {
		return &apperrors.ExternalProcessorError{Op: "reverse transfer", Err: err}
	}
	return nil
}

func (s *stripeProcessor) CreateAccount(_ context.Context, email string) (string, error) {
	account, err := s.api.Account.New(&stripe.AccountParams{
		Type:  stripe.String(string(stripe.AccountTypeExpress)),
		Email: stripe.String(email),
		Capabilities: &stripe.AccountCapabilitiesParams{
			Transfers: &stripe.AccountCapabilitiesTransfersParams{
				Requested: stripe.Bool(true),
			},
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{
				Requested: stripe.Bool(true),
			},
		},
	})
	if err != nil {
		return "", &apperrors.ExternalProcessorError{Op: "create account", Err: err}
	}
	return account.ID, nil
}

func (s *stripeProcessor) RetrieveAccount(_ context.Context, accountID string) (*Account, error) {
	account, err := s.api.Account.GetByID(accountID, nil)
	if err != nil {
		return nil, &apperrors.ExternalProcessorError{Op: "retrieve account", Err: err}
	}
	return &Account{
		ID:               account.ID,
		ChargesEnabled:   account.ChargesEnabled,
		PayoutsEnabled:   account.PayoutsEnabled,
		DetailsSubmitted: account.DetailsSubmitted,
	}, nil
}

func (s *stripeProcessor) CreateOnboardingLink(_ context.Context, accountID string) (string, error) {
	link, err := s.api.AccountLinks.New(&stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(s.cfg.BackendURL + "/api/wallet/onboarding-link?accountId=" + accountID),
		ReturnURL:  stripe.String(s.cfg.FrontendURL),
		Type:       stripe.String("account_onboarding"),
	})
	if err != nil {
		return "", &apperrors.ExternalProcessorError{Op: "create onboarding link", Err: err}
	}
	return link.URL, nil
}

type stripeVerifier struct {
	secret string
}

// NewStripeVerifier checks webhook payloads against one endpoint secret.
func NewStripeVerifier(secret string) SignatureVerifier {
	return &stripeVerifier{secret: secret}
}

func (v *stripeVerifier) Verify(payload []byte, signature string) (*Envelope, error) {
	event, err := webhook.ConstructEvent(payload, signature, v.secret)
	if err != nil {
		return nil, &apperrors.AuthenticityError{Reason: err.Error()}
	}
	return &Envelope{ID: event.ID, Type: string(event.Type), Data: event.Data.Raw}, nil
}

// minorUnits converts a decimal currency amount to the provider's integer
// representation (cents).
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
