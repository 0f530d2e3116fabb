package billing

import "context"

// Alert names the webhook endpoint accepts. Signed payloads with names
// outside this list are acknowledged but neither stored nor dispatched.
var supportedWebhooks = map[string]struct{}{
	// Subscription Alerts
	"subscription_created":           {},
	"subscription_updated":           {},
	"subscription_cancelled":         {},
	"subscription_payment_succeeded": {},
	"subscription_payment_failed":    {},
	"subscription_payment_refunded":  {},
	// One-off Purchases
	"locker_processed":  {},
	"payment_succeeded": {},
	"payment_refunded":  {},
	// Risk & Dispute Alerts
	"payment_dispute_created":       {},
	"payment_dispute_closed":        {},
	"high_risk_transaction_created": {},
	"high_risk_transaction_updated": {},
	// Payout Alerts
	"transfer_created": {},
	"transfer_paid":    {},
	// Audience Alerts
	"new_audience_member":    {},
	"update_audience_member": {},
}

// alertHandlers maps alert names to their reconcile path. Supported alerts
// without a handler are stored for audit only.
var alertHandlers = map[string]func(*Service, context.Context, map[string]string) error{
	"subscription_created":           (*Service).ApplySubscriptionPayload,
	"subscription_updated":           (*Service).ApplySubscriptionPayload,
	"subscription_cancelled":         (*Service).ApplySubscriptionPayload,
	"subscription_payment_succeeded": (*Service).ApplySubscriptionPayload,
	"locker_processed":               (*Service).ApplyPurchasePayload,
}

// IsSupportedWebhook reports whether the alert name is on the allow-list.
func IsSupportedWebhook(alertName string) bool {
	_, ok := supportedWebhooks[alertName]
	return ok
}

// HasHandler reports whether the alert name resolves to a reconcile path.
func HasHandler(alertName string) bool {
	_, ok := alertHandlers[alertName]
	return ok
}

// Dispatch routes a payload to its reconcile path by alert_name. The first
// return value reports whether a handler was invoked at all.
func (s *Service) Dispatch(ctx context.Context, payload map[string]string) (bool, error) {
	handler, ok := alertHandlers[payload["alert_name"]]
	if !ok {
		return false, nil
	}
	return true, handler(s, ctx, payload)
}
