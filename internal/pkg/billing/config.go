package billing

import (
	"errors"
	"strconv"
	"strings"

	"github.com/abroun/paddlesync/app/models"
	"github.com/abroun/paddlesync/internal/pkg/env"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ErrSubscriberNotFound is returned by subscriber lookups when the payload
// cannot be mapped to a local subscriber. It is a non-fatal condition: the
// reconciler logs a warning and stores the subscription without a link.
var ErrSubscriberNotFound = errors.New("billing: subscriber not found for payload")

// Config carries the scalar settings and the pluggable policy functions of
// the engine. It is resolved once at process startup; handlers and jobs read
// it through GetConfig.
type Config struct {
	VendorID     string
	APIKey       string
	Sandbox      bool
	PublicKeyPEM string

	// Retention windows in days for the two audit logs. A value <= 0
	// disables storage of live webhook events entirely.
	WebhookRetentionDays int
	ReplayRetentionDays  int

	// LinkStaleSubscriptions enables adopting subscriber-less subscriptions
	// when the host reports a newly created subscriber.
	LinkStaleSubscriptions bool

	// SubscriberByPayload maps a webhook payload to a local subscriber.
	// Must return ErrSubscriberNotFound (possibly wrapped) when no
	// subscriber matches.
	SubscriberByPayload func(repo Repository, payload map[string]string) (*models.Subscriber, error)

	// SubscriptionsBySubscriber filters unlinked subscriptions down to the
	// ones belonging to the given subscriber.
	SubscriptionsBySubscriber func(subscriber *models.Subscriber, subs []models.Subscription) []models.Subscription

	// SubscriptionWebhookCallback fires after a subscription row was created
	// or won the event_time comparison and was updated.
	SubscriptionWebhookCallback func(alertName, subscriptionID string)

	// ProductPurchaseWebhookCallback fires after a purchase row was created.
	ProductPurchaseWebhookCallback func(alertName string, purchaseID uint)

	// RequestIdentity resolves the authenticated caller of the checkout
	// capture endpoint, when the host has one. Nil disables the check.
	RequestIdentity func(c *fiber.Ctx) (email, passthrough string, ok bool)
}

var current *Config

// Setup installs the process-wide configuration, filling unset function
// fields with the package defaults.
func Setup(cfg *Config) {
	if cfg.SubscriberByPayload == nil {
		cfg.SubscriberByPayload = DefaultSubscriberByPayload
	}
	if cfg.SubscriptionsBySubscriber == nil {
		cfg.SubscriptionsBySubscriber = DefaultSubscriptionsBySubscriber
	}
	if cfg.SubscriptionWebhookCallback == nil {
		cfg.SubscriptionWebhookCallback = func(string, string) {}
	}
	if cfg.ProductPurchaseWebhookCallback == nil {
		cfg.ProductPurchaseWebhookCallback = func(string, uint) {}
	}
	current = cfg
}

// GetConfig returns the installed configuration, building one from the
// environment on first use.
func GetConfig() *Config {
	if current == nil {
		Setup(ConfigFromEnv())
	}
	return current
}

// ConfigFromEnv builds a Config from the process environment. Function
// fields stay nil and receive their defaults in Setup.
func ConfigFromEnv() *Config {
	return &Config{
		VendorID:               env.GetEnv("PADDLE_VENDOR_ID", ""),
		APIKey:                 env.GetEnv("PADDLE_API_KEY", ""),
		Sandbox:                env.GetEnv("PADDLE_SANDBOX", "false") == "true",
		PublicKeyPEM:           env.GetEnv("PADDLE_PUBLIC_KEY", ""),
		WebhookRetentionDays:   envInt("PADDLE_WEBHOOK_RETENTION_DAYS", 30),
		ReplayRetentionDays:    envInt("PADDLE_REPLAY_RETENTION_DAYS", 30),
		LinkStaleSubscriptions: env.GetEnv("PADDLE_LINK_STALE_SUBSCRIPTIONS", "false") == "true",
	}
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(env.GetEnv(key, ""))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// DefaultSubscriberByPayload resolves the subscriber by the payload's email
// against the local subscribers table.
func DefaultSubscriberByPayload(repo Repository, payload map[string]string) (*models.Subscriber, error) {
	email := strings.TrimSpace(payload["email"])
	if email == "" {
		return nil, ErrSubscriberNotFound
	}
	subscriber, err := repo.GetSubscriberByEmail(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriberNotFound
	}
	if err != nil {
		return nil, err
	}
	return subscriber, nil
}

// DefaultSubscriptionsBySubscriber matches unlinked subscriptions to a
// subscriber by case-insensitive email.
func DefaultSubscriptionsBySubscriber(subscriber *models.Subscriber, subs []models.Subscription) []models.Subscription {
	matched := make([]models.Subscription, 0, len(subs))
	for _, sub := range subs {
		if strings.EqualFold(sub.Email, subscriber.Email) {
			matched = append(matched, sub)
		}
	}
	return matched
}
