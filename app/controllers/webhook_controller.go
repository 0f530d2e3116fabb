package controllers

import (
	"context"
	"sync"
	"time"

	"github.com/abroun/paddlesync/internal/pkg/billing"
	"github.com/abroun/paddlesync/internal/pkg/database"
	"github.com/abroun/paddlesync/internal/pkg/metrics/counter"
	"github.com/abroun/paddlesync/internal/pkg/paddle"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

var (
	verifierOnce sync.Once
	verifier     *paddle.WebhookVerifier
)

// webhookVerifier builds the signature verifier once from the configured
// public key. With no or an invalid key every payload fails validation.
func webhookVerifier() *paddle.WebhookVerifier {
	verifierOnce.Do(func() {
		pemKey := billing.GetConfig().PublicKeyPEM
		if pemKey == "" {
			log.Warn("paddle webhook: no public key configured, all webhooks will be rejected")
			return
		}
		v, err := paddle.NewWebhookVerifier(pemKey)
		if err != nil {
			log.Errorf("paddle webhook: invalid public key: %v", err)
			return
		}
		verifier = v
	})
	return verifier
}

// HandlePaddleWebhook ingests live Paddle webhooks: validate the signature,
// require alert_name, store the payload when retention is enabled, then
// dispatch to the reconciler. Dispatch errors do not fail the response —
// Paddle's retry policy is the live-path recovery mechanism.
func HandlePaddleWebhook(c *fiber.Ctx) error {
	payload := formPayload(c)

	if !webhookVerifier().Verify(payload) {
		return c.Status(fiber.StatusBadRequest).SendString("webhook validation failed")
	}

	alertName := payload["alert_name"]
	if alertName == "" {
		return c.Status(fiber.StatusBadRequest).SendString("'alert_name' missing")
	}
	if !billing.IsSupportedWebhook(alertName) {
		return c.Status(fiber.StatusOK).Send(nil)
	}
	recordWebhookOutcome(alertName, counter.OutcomeReceived)

	cfg := billing.GetConfig()
	svc := billing.NewServiceFromDB(database.GetDB())

	if cfg.WebhookRetentionDays > 0 {
		rawEventTime := payload["event_time"]
		if rawEventTime == "" {
			return c.Status(fiber.StatusBadRequest).SendString("'event_time' missing")
		}
		eventTime, err := billing.ParseEventTime(rawEventTime)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("'event_time' invalid")
		}

		store := billing.NewEventStore(svc.Repo(), cfg.WebhookRetentionDays, cfg.ReplayRetentionDays)
		if err := store.RecordWebhookEvent(eventTime, payload); err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("storing webhook failed")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	handled, err := svc.Dispatch(ctx, payload)
	if err != nil {
		log.Errorf("paddle webhook: dispatching %s failed: %v", alertName, err)
		recordWebhookOutcome(alertName, counter.OutcomeFailed)
	} else if handled {
		recordWebhookOutcome(alertName, counter.OutcomeDispatched)
	}

	return c.Status(fiber.StatusOK).Send(nil)
}

// recordWebhookOutcome updates the delivery counters; counter failures never
// affect the webhook response.
func recordWebhookOutcome(alertName, outcome string) {
	if err := counter.AddWebhookOutcome(alertName, outcome); err != nil {
		log.Debugf("paddle webhook: counter update failed: %v", err)
	}
}

// formPayload flattens the form-encoded body into a string map.
func formPayload(c *fiber.Ctx) map[string]string {
	payload := map[string]string{}
	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		payload[string(key)] = string(value)
	})
	return payload
}
