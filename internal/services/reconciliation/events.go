package reconciliation

// EventKind is the closed set of webhook outcomes the engine acts on.
// Every provider event type maps to exactly one kind; anything unmapped
// is EventIgnored and acknowledged without side effects.
type EventKind int

const (
	EventIgnored EventKind = iota
	EventFundingSucceeded
	EventFundingFailed
	EventPayoutSettled
	EventPayoutFailed
	EventAccountUpdated
	EventCapabilityUpdated
)

func (k EventKind) String() string {
	switch k {
	case EventFundingSucceeded:
		return "funding_succeeded"
	case EventFundingFailed:
		return "funding_failed"
	case EventPayoutSettled:
		return "payout_settled"
	case EventPayoutFailed:
		return "payout_failed"
	case EventAccountUpdated:
		return "account_updated"
	case EventCapabilityUpdated:
		return "capability_updated"
	default:
		return "ignored"
	}
}

// KindOf classifies a provider event type string.
func KindOf(eventType string) EventKind {
	switch eventType {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		return EventFundingSucceeded
	case "checkout.session.async_payment_failed", "payment_intent.payment_failed":
		return EventFundingFailed
	case "payout.paid":
		return EventPayoutSettled
	case "payout.failed":
		return EventPayoutFailed
	case "account.updated":
		return EventAccountUpdated
	case "capability.updated":
		return EventCapabilityUpdated
	default:
		return EventIgnored
	}
}
