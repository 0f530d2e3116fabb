package billing

import (
	"testing"

	"github.com/abroun/paddlesync/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupFillsDefaults(t *testing.T) {
	cfg := &Config{}
	Setup(cfg)

	assert.NotNil(t, cfg.SubscriberByPayload)
	assert.NotNil(t, cfg.SubscriptionsBySubscriber)
	assert.NotNil(t, cfg.SubscriptionWebhookCallback)
	assert.NotNil(t, cfg.ProductPurchaseWebhookCallback)
	assert.Same(t, cfg, GetConfig())
}

func TestDefaultSubscriberByPayload(t *testing.T) {
	repo := newFakeRepository()
	repo.subscribers["user@example.com"] = &models.Subscriber{ID: 7, Email: "user@example.com"}

	subscriber, err := DefaultSubscriberByPayload(repo, map[string]string{"email": "user@example.com"})
	require.NoError(t, err)
	assert.Equal(t, uint(7), subscriber.ID)

	_, err = DefaultSubscriberByPayload(repo, map[string]string{"email": "missing@example.com"})
	assert.ErrorIs(t, err, ErrSubscriberNotFound)

	_, err = DefaultSubscriberByPayload(repo, map[string]string{})
	assert.ErrorIs(t, err, ErrSubscriberNotFound)
}

func TestDefaultSubscriptionsBySubscriber(t *testing.T) {
	subscriber := &models.Subscriber{ID: 7, Email: "user@example.com"}
	subs := []models.Subscription{
		{ID: "sub_1", Email: "USER@example.com"},
		{ID: "sub_2", Email: "other@example.com"},
	}

	matched := DefaultSubscriptionsBySubscriber(subscriber, subs)
	require.Len(t, matched, 1)
	assert.Equal(t, "sub_1", matched[0].ID)
}
