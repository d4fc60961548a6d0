package reconciliation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cases := map[string]EventKind{
		"checkout.session.completed":               EventFundingSucceeded,
		"checkout.session.async_payment_succeeded": EventFundingSucceeded,
		"checkout.session.async_payment_failed":    EventFundingFailed,
		"payment_intent.payment_failed":            EventFundingFailed,
		"payout.paid":                              EventPayoutSettled,
		"payout.failed":                            EventPayoutFailed,
		"account.updated":                          EventAccountUpdated,
		"capability.updated":                       EventCapabilityUpdated,
		"customer.created":                         EventIgnored,
		"":                                         EventIgnored,
	}
	for eventType, want := range cases {
		assert.Equal(t, want, KindOf(eventType), "type %q", eventType)
	}
}
