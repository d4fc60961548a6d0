package reconciliation

// providerObject is the slice of a checkout session, payment intent or
// payout object the engine needs: the provider id, our transaction id
// echoed back through metadata, and the references to record.
type providerObject struct {
	ID             string            `json:"id"`
	PaymentIntent  string            `json:"payment_intent"`
	FailureMessage string            `json:"failure_message"`
	Metadata       map[string]string `json:"metadata"`
}

func (o *providerObject) transactionID() string {
	return o.Metadata["transactionId"]
}

// providerAccount is the connected-account shape carried by account
// update events.
type providerAccount struct {
	ID               string `json:"id"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
	DetailsSubmitted bool   `json:"details_submitted"`
}

// providerCapability is the capability object carried by capability
// update events. It only names the account; the current capability state
// is fetched from the provider.
type providerCapability struct {
	ID      string `json:"id"`
	Account string `json:"account"`
}
