package repository

import (
	"github.com/abroun/paddlesync/app/models"
	"gorm.io/gorm"
)

// SubscriptionFilter narrows ListSubscriptions results.
type SubscriptionFilter struct {
	Status string
	PlanID string
}

// PaddleRepository is the read-only query surface for hosts and admin
// tooling; all writes go through the billing engine.
type PaddleRepository struct {
	db *gorm.DB
}

func NewPaddleRepository(db *gorm.DB) *PaddleRepository {
	return &PaddleRepository{db: db}
}

func (r *PaddleRepository) ListPlans() ([]models.Plan, error) {
	var plans []models.Plan
	err := r.db.Preload("Prices").Order("created_at").Find(&plans).Error
	return plans, err
}

func (r *PaddleRepository) GetPlan(id string) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.Preload("Prices").Where("id = ?", id).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *PaddleRepository) ListSubscriptions(filter SubscriptionFilter) ([]models.Subscription, error) {
	query := r.db.Preload("Plan").Order("created_at")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PlanID != "" {
		query = query.Where("plan_id = ?", filter.PlanID)
	}

	var subs []models.Subscription
	err := query.Find(&subs).Error
	return subs, err
}

func (r *PaddleRepository) GetSubscription(id string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.Preload("Plan").Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *PaddleRepository) ListProducts() ([]models.Product, error) {
	var products []models.Product
	err := r.db.Order("created_at").Find(&products).Error
	return products, err
}

func (r *PaddleRepository) ListProductPurchases() ([]models.ProductPurchase, error) {
	var purchases []models.ProductPurchase
	err := r.db.Preload("Product").Order("event_time").Find(&purchases).Error
	return purchases, err
}

func (r *PaddleRepository) GetCheckout(id string) (*models.Checkout, error) {
	var checkout models.Checkout
	if err := r.db.Where("id = ?", id).First(&checkout).Error; err != nil {
		return nil, err
	}
	return &checkout, nil
}

func (r *PaddleRepository) ListWebhookEvents(limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.Order("time DESC").Limit(limit).Find(&events).Error
	return events, err
}

func (r *PaddleRepository) ListReplayedEvents(limit int) ([]models.ReplayedEvent, error) {
	var events []models.ReplayedEvent
	err := r.db.Order("time DESC").Limit(limit).Find(&events).Error
	return events, err
}
