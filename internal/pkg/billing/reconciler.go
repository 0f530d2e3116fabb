package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/abroun/paddlesync/app/models"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// ApplySubscriptionPayload reconciles one subscription webhook/replay
// payload against the local subscription table: create when the id is new,
// otherwise update only when the incoming event_time is strictly newer than
// the stored one. Stale and equal-time payloads are silent no-ops.
func (s *Service) ApplySubscriptionPayload(ctx context.Context, payload map[string]string) error {
	alertName := payload["alert_name"]

	sub, updates, err := s.sanitizeSubscriptionPayload(ctx, payload)
	if err != nil {
		return err
	}

	_, err = s.repo.GetSubscription(sub.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := s.repo.CreateSubscription(sub); err != nil {
			return err
		}
		s.cfg.SubscriptionWebhookCallback(alertName, sub.ID)
		return nil
	}
	if err != nil {
		return err
	}

	// NOTE: Paddle can emit two events with the same event_time (e.g.
	// subscription_created and subscription_payment_succeeded), so with the
	// strict < comparison one of them loses depending on arrival order.
	// Using <= instead would misbehave during event replays, so the strict
	// check is kept.
	updated, err := s.repo.UpdateSubscriptionIfNewer(sub.ID, sub.EventTime, updates)
	if err != nil {
		return err
	}
	if updated {
		s.cfg.SubscriptionWebhookCallback(alertName, sub.ID)
	}
	return nil
}

// sanitizeSubscriptionPayload flattens a webhook payload into a typed
// subscription row plus the column map for the conditional update. Provider
// "updated-value" keys carry a new_ prefix and are folded onto their plain
// names; unrecognized keys are dropped.
func (s *Service) sanitizeSubscriptionPayload(ctx context.Context, payload map[string]string) (*models.Subscription, map[string]interface{}, error) {
	id := strings.TrimSpace(payload["subscription_id"])
	if id == "" {
		return nil, nil, errors.New("billing: 'subscription_id' missing in payload")
	}

	sub := &models.Subscription{ID: id}
	updates := map[string]interface{}{}

	subscriber, err := s.cfg.SubscriberByPayload(s.repo, payload)
	if err != nil && !errors.Is(err, ErrSubscriberNotFound) {
		return nil, nil, err
	}
	if subscriber != nil {
		sub.SubscriberID = &subscriber.ID
		updates["subscriber_id"] = subscriber.ID
	} else {
		log.Warnf("billing: subscriber could not be found for subscription %s, left empty", id)
		updates["subscriber_id"] = nil
	}

	planID := strings.TrimSpace(payload["subscription_plan_id"])
	if planID == "" {
		return nil, nil, errors.New("billing: 'subscription_plan_id' missing in payload")
	}
	if _, err := s.repo.GetPlan(planID); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, err
		}
		// Referential gap: pull the single plan from the API so the
		// subscription never points at an unknown plan.
		if _, err := s.SyncPlanFromAPI(ctx, planID); err != nil {
			return nil, nil, err
		}
	}
	sub.PlanID = planID
	updates["plan_id"] = planID

	for rawKey, value := range payload {
		key := strings.TrimPrefix(rawKey, "new_")
		switch key {
		case "cancel_url":
			sub.CancelURL = value
			updates["cancel_url"] = value
		case "checkout_id":
			sub.CheckoutID = value
			updates["checkout_id"] = value
		case "currency":
			sub.Currency = value
			updates["currency"] = value
		case "email":
			sub.Email = value
			updates["email"] = value
		case "event_time":
			t, err := ParseEventTime(value)
			if err != nil {
				return nil, nil, err
			}
			sub.EventTime = t
			updates["event_time"] = t
		case "marketing_consent":
			consent, err := strconv.ParseBool(value)
			if err != nil {
				return nil, nil, fmt.Errorf("billing: invalid marketing_consent %q", value)
			}
			sub.MarketingConsent = consent
			updates["marketing_consent"] = consent
		case "next_bill_date":
			t, err := ParseEventTime(value)
			if err != nil {
				return nil, nil, err
			}
			sub.NextBillDate = t
			updates["next_bill_date"] = t
		case "passthrough":
			sub.Passthrough = value
			updates["passthrough"] = value
		case "quantity":
			quantity, err := strconv.Atoi(value)
			if err != nil {
				return nil, nil, fmt.Errorf("billing: invalid quantity %q", value)
			}
			sub.Quantity = quantity
			updates["quantity"] = quantity
		case "source":
			sub.Source = value
			updates["source"] = value
		case "status":
			sub.Status = value
			updates["status"] = value
		case "unit_price":
			price, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("billing: invalid unit_price %q", value)
			}
			sub.UnitPrice = price
			updates["unit_price"] = price
		case "update_url":
			sub.UpdateURL = value
			updates["update_url"] = value
		}
	}

	if sub.EventTime.IsZero() {
		return nil, nil, errors.New("billing: 'event_time' missing in payload")
	}
	return sub, updates, nil
}

// ApplyPurchasePayload records the outcome of a completed one-time purchase
// webhook. Re-deliveries of the same checkout/product pair are no-ops.
func (s *Service) ApplyPurchasePayload(ctx context.Context, payload map[string]string) error {
	alertName := payload["alert_name"]

	productID := strings.TrimSpace(payload["product_id"])
	if productID == "" {
		return errors.New("billing: 'product_id' missing in payload")
	}

	if _, err := s.repo.GetProduct(productID); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if _, err := s.SyncProductFromAPI(ctx, productID); err != nil {
			return err
		}
	}

	purchase := &models.ProductPurchase{
		ProductID:   productID,
		Quantity:    1,
		CheckoutID:  strings.TrimSpace(payload["checkout_id"]),
		Email:       payload["email"],
		Passthrough: payload["passthrough"],
	}
	if raw, ok := payload["quantity"]; ok {
		quantity, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("billing: invalid quantity %q", raw)
		}
		purchase.Quantity = quantity
	}
	if raw, ok := payload["event_time"]; ok {
		t, err := ParseEventTime(raw)
		if err != nil {
			return err
		}
		purchase.EventTime = t
	}

	if purchase.CheckoutID != "" {
		_, err := s.repo.FindProductPurchase(productID, purchase.CheckoutID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	if err := s.repo.CreateProductPurchase(purchase); err != nil {
		return err
	}
	s.cfg.ProductPurchaseWebhookCallback(alertName, purchase.ID)
	return nil
}

// LinkStaleSubscriptions adopts subscriber-less subscriptions for a newly
// created subscriber. Hosts call this from their own post-create path; it is
// gated by the LinkStaleSubscriptions config flag.
func (s *Service) LinkStaleSubscriptions(subscriber *models.Subscriber) (int, error) {
	if !s.cfg.LinkStaleSubscriptions || subscriber == nil {
		return 0, nil
	}

	unlinked, err := s.repo.ListUnlinkedSubscriptions()
	if err != nil {
		return 0, err
	}
	matched := s.cfg.SubscriptionsBySubscriber(subscriber, unlinked)
	if len(matched) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(matched))
	for _, sub := range matched {
		ids = append(ids, sub.ID)
	}
	if err := s.repo.AssignSubscriber(ids, subscriber.ID); err != nil {
		return 0, err
	}
	return len(ids), nil
}
