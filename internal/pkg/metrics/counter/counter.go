package counter

import (
	"context"
	"fmt"

	"github.com/abroun/paddlesync/internal/pkg/cache"
)

const webhookCountersKey = "paddle:counters:webhooks"

// Webhook delivery outcomes tracked per alert name.
const (
	OutcomeReceived   = "received"
	OutcomeDispatched = "dispatched"
	OutcomeFailed     = "failed"
)

// AddWebhookOutcome increments the delivery counter for an alert. Counters
// are best-effort: with no cache server configured this is a no-op.
func AddWebhookOutcome(alertName, outcome string) error {
	if !cache.Enabled() {
		return nil
	}
	field := fmt.Sprintf("%s:%s", alertName, outcome)
	return cache.GetClient().HIncrBy(context.Background(), webhookCountersKey, field, 1).Err()
}

// Snapshot returns all webhook delivery counters keyed by "<alert>:<outcome>".
func Snapshot() (map[string]string, error) {
	if !cache.Enabled() {
		return map[string]string{}, nil
	}
	return cache.GetClient().HGetAll(context.Background(), webhookCountersKey).Result()
}
