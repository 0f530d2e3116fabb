package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/abroun/paddlesync/app/models"
	"github.com/abroun/paddlesync/internal/pkg/paddle"
	"gorm.io/gorm"
)

// fakeRepository is an in-memory Repository with the same not-found and
// conflict semantics as the GORM implementation.
type fakeRepository struct {
	plans          map[string]*models.Plan
	prices         map[string][]models.Price
	products       map[string]*models.Product
	purchases      []*models.ProductPurchase
	subscriptions  map[string]*models.Subscription
	subscribers    map[string]*models.Subscriber
	webhookEvents  []models.WebhookEvent
	replayedEvents []models.ReplayedEvent
	checkouts      map[string]*models.Checkout

	nextPurchaseID uint

	failCreateWebhookEvent  bool
	failCreateReplayedEvent bool
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		plans:         map[string]*models.Plan{},
		prices:        map[string][]models.Price{},
		products:      map[string]*models.Product{},
		subscriptions: map[string]*models.Subscription{},
		subscribers:   map[string]*models.Subscriber{},
		checkouts:     map[string]*models.Checkout{},
	}
}

func (r *fakeRepository) GetPlan(id string) (*models.Plan, error) {
	plan, ok := r.plans[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *plan
	return &copied, nil
}

func (r *fakeRepository) GetOrCreatePlan(plan *models.Plan) (bool, error) {
	if existing, ok := r.plans[plan.ID]; ok {
		*plan = *existing
		return false, nil
	}
	stored := *plan
	r.plans[plan.ID] = &stored
	return true, nil
}

func (r *fakeRepository) ReplacePlanPrices(planID string, prices []models.Price) error {
	r.prices[planID] = append([]models.Price(nil), prices...)
	return nil
}

func (r *fakeRepository) GetProduct(id string) (*models.Product, error) {
	product, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *product
	return &copied, nil
}

func (r *fakeRepository) GetOrCreateProduct(product *models.Product) (bool, error) {
	if existing, ok := r.products[product.ID]; ok {
		*product = *existing
		return false, nil
	}
	stored := *product
	r.products[product.ID] = &stored
	return true, nil
}

func (r *fakeRepository) FindProductPurchase(productID, checkoutID string) (*models.ProductPurchase, error) {
	for _, purchase := range r.purchases {
		if purchase.ProductID == productID && purchase.CheckoutID == checkoutID {
			copied := *purchase
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) CreateProductPurchase(purchase *models.ProductPurchase) error {
	r.nextPurchaseID++
	purchase.ID = r.nextPurchaseID
	stored := *purchase
	r.purchases = append(r.purchases, &stored)
	return nil
}

func (r *fakeRepository) GetSubscription(id string) (*models.Subscription, error) {
	sub, ok := r.subscriptions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *sub
	return &copied, nil
}

func (r *fakeRepository) CreateSubscription(sub *models.Subscription) error {
	stored := *sub
	r.subscriptions[sub.ID] = &stored
	return nil
}

func (r *fakeRepository) UpdateSubscriptionIfNewer(id string, eventTime time.Time, updates map[string]interface{}) (bool, error) {
	sub, ok := r.subscriptions[id]
	if !ok || !sub.EventTime.Before(eventTime) {
		return false, nil
	}
	for column, value := range updates {
		applySubscriptionColumn(sub, column, value)
	}
	return true, nil
}

// applySubscriptionColumn mirrors how the gated UPDATE writes columns.
func applySubscriptionColumn(sub *models.Subscription, column string, value interface{}) {
	switch column {
	case "subscriber_id":
		if value == nil {
			sub.SubscriberID = nil
		} else {
			id := value.(uint)
			sub.SubscriberID = &id
		}
	case "plan_id":
		sub.PlanID = value.(string)
	case "cancel_url":
		sub.CancelURL = value.(string)
	case "checkout_id":
		sub.CheckoutID = value.(string)
	case "currency":
		sub.Currency = value.(string)
	case "email":
		sub.Email = value.(string)
	case "event_time":
		sub.EventTime = value.(time.Time)
	case "marketing_consent":
		sub.MarketingConsent = value.(bool)
	case "next_bill_date":
		sub.NextBillDate = value.(time.Time)
	case "passthrough":
		sub.Passthrough = value.(string)
	case "quantity":
		sub.Quantity = value.(int)
	case "source":
		sub.Source = value.(string)
	case "status":
		sub.Status = value.(string)
	case "unit_price":
		sub.UnitPrice = value.(float64)
	case "update_url":
		sub.UpdateURL = value.(string)
	}
}

func (r *fakeRepository) ListUnlinkedSubscriptions() ([]models.Subscription, error) {
	var subs []models.Subscription
	for _, sub := range r.subscriptions {
		if sub.SubscriberID == nil {
			subs = append(subs, *sub)
		}
	}
	return subs, nil
}

func (r *fakeRepository) AssignSubscriber(subscriptionIDs []string, subscriberID uint) error {
	for _, id := range subscriptionIDs {
		if sub, ok := r.subscriptions[id]; ok {
			assigned := subscriberID
			sub.SubscriberID = &assigned
		}
	}
	return nil
}

func (r *fakeRepository) GetSubscriberByEmail(email string) (*models.Subscriber, error) {
	subscriber, ok := r.subscribers[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *subscriber
	return &copied, nil
}

func (r *fakeRepository) CreateWebhookEvent(event *models.WebhookEvent) error {
	if r.failCreateWebhookEvent {
		return fmt.Errorf("fake: webhook event insert failed")
	}
	r.webhookEvents = append(r.webhookEvents, *event)
	return nil
}

func (r *fakeRepository) DeleteWebhookEventsBefore(t time.Time) error {
	kept := r.webhookEvents[:0]
	for _, event := range r.webhookEvents {
		if !event.Time.Before(t) {
			kept = append(kept, event)
		}
	}
	r.webhookEvents = kept
	return nil
}

func (r *fakeRepository) CreateReplayedEventIfNew(event *models.ReplayedEvent) (bool, error) {
	if r.failCreateReplayedEvent {
		return false, fmt.Errorf("fake: replayed event insert failed")
	}
	for _, existing := range r.replayedEvents {
		if existing.PayloadHash == event.PayloadHash {
			return false, nil
		}
	}
	r.replayedEvents = append(r.replayedEvents, *event)
	return true, nil
}

func (r *fakeRepository) DeleteReplayedEventsBefore(t time.Time) error {
	kept := r.replayedEvents[:0]
	for _, event := range r.replayedEvents {
		if !event.Time.Before(t) {
			kept = append(kept, event)
		}
	}
	r.replayedEvents = kept
	return nil
}

func (r *fakeRepository) LatestReplayedTime() (*time.Time, error) {
	var latest *time.Time
	for i := range r.replayedEvents {
		t := r.replayedEvents[i].Time
		if latest == nil || t.After(*latest) {
			latest = &t
		}
	}
	return latest, nil
}

func (r *fakeRepository) UpsertCheckout(checkout *models.Checkout) error {
	stored := *checkout
	r.checkouts[checkout.ID] = &stored
	return nil
}

// fakeAPI serves canned vendors-API data and records call parameters.
type fakeAPI struct {
	plans    []paddle.PlanData
	products []paddle.ProductData
	history  []paddle.HistoryEvent

	err error

	planCalls    int
	productCalls int
	lastTail     time.Time
	lastHead     time.Time
}

func (a *fakeAPI) ListPlans(ctx context.Context, planID string) ([]paddle.PlanData, error) {
	if a.err != nil {
		return nil, a.err
	}
	a.planCalls++
	if planID == "" {
		return a.plans, nil
	}
	var matched []paddle.PlanData
	for _, plan := range a.plans {
		if fmt.Sprint(plan.ID) == planID {
			matched = append(matched, plan)
		}
	}
	return matched, nil
}

func (a *fakeAPI) GetPlan(ctx context.Context, planID string) (*paddle.PlanData, error) {
	plans, err := a.ListPlans(ctx, planID)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("fake: plan %s not found", planID)
	}
	return &plans[0], nil
}

func (a *fakeAPI) ListProducts(ctx context.Context) ([]paddle.ProductData, error) {
	if a.err != nil {
		return nil, a.err
	}
	a.productCalls++
	return a.products, nil
}

func (a *fakeAPI) GetWebhookHistory(ctx context.Context, page, alertsPerPage int, queryTail, queryHead time.Time) ([]paddle.HistoryEvent, error) {
	if a.err != nil {
		return nil, a.err
	}
	a.lastTail = queryTail
	a.lastHead = queryHead

	offset := (page - 1) * alertsPerPage
	if offset >= len(a.history) {
		return nil, nil
	}
	end := offset + alertsPerPage
	if end > len(a.history) {
		end = len(a.history)
	}
	return a.history[offset:end], nil
}

func newTestConfig() *Config {
	cfg := &Config{
		WebhookRetentionDays: 30,
		ReplayRetentionDays:  30,
	}
	Setup(cfg)
	return cfg
}

func newTestService(repo *fakeRepository, api *fakeAPI, cfg *Config) *Service {
	if cfg == nil {
		cfg = newTestConfig()
	}
	return NewService(repo, api, cfg)
}
