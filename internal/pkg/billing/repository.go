package billing

import (
	"errors"
	"time"

	"github.com/abroun/paddlesync/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the DB operations the billing engine needs. The GORM
// implementation below is the production one; tests use an in-memory fake.
type Repository interface {
	GetPlan(id string) (*models.Plan, error)
	GetOrCreatePlan(plan *models.Plan) (bool, error)
	ReplacePlanPrices(planID string, prices []models.Price) error

	GetProduct(id string) (*models.Product, error)
	GetOrCreateProduct(product *models.Product) (bool, error)
	FindProductPurchase(productID, checkoutID string) (*models.ProductPurchase, error)
	CreateProductPurchase(purchase *models.ProductPurchase) error

	GetSubscription(id string) (*models.Subscription, error)
	CreateSubscription(sub *models.Subscription) error
	UpdateSubscriptionIfNewer(id string, eventTime time.Time, updates map[string]interface{}) (bool, error)
	ListUnlinkedSubscriptions() ([]models.Subscription, error)
	AssignSubscriber(subscriptionIDs []string, subscriberID uint) error

	GetSubscriberByEmail(email string) (*models.Subscriber, error)

	CreateWebhookEvent(event *models.WebhookEvent) error
	DeleteWebhookEventsBefore(t time.Time) error
	CreateReplayedEventIfNew(event *models.ReplayedEvent) (bool, error)
	DeleteReplayedEventsBefore(t time.Time) error
	LatestReplayedTime() (*time.Time, error)

	UpsertCheckout(checkout *models.Checkout) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetPlan(id string) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.Where("id = ?", id).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *gormRepository) GetOrCreatePlan(plan *models.Plan) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(plan)
	if tx.Error != nil {
		return false, tx.Error
	}
	created := tx.RowsAffected > 0

	// Refresh with the stored row so first-seen values win on repeat sync.
	if err := r.db.Where("id = ?", plan.ID).First(plan).Error; err != nil {
		return created, err
	}
	return created, nil
}

func (r *gormRepository) ReplacePlanPrices(planID string, prices []models.Price) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("plan_id = ?", planID).Delete(&models.Price{}).Error; err != nil {
			return err
		}
		if len(prices) == 0 {
			return nil
		}
		return tx.Create(&prices).Error
	})
}

func (r *gormRepository) GetProduct(id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *gormRepository) GetOrCreateProduct(product *models.Product) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(product)
	if tx.Error != nil {
		return false, tx.Error
	}
	created := tx.RowsAffected > 0

	if err := r.db.Where("id = ?", product.ID).First(product).Error; err != nil {
		return created, err
	}
	return created, nil
}

func (r *gormRepository) FindProductPurchase(productID, checkoutID string) (*models.ProductPurchase, error) {
	var purchase models.ProductPurchase
	err := r.db.Where("product_id = ? AND checkout_id = ?", productID, checkoutID).First(&purchase).Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *gormRepository) CreateProductPurchase(purchase *models.ProductPurchase) error {
	return r.db.Create(purchase).Error
}

func (r *gormRepository) GetSubscription(id string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) CreateSubscription(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

// UpdateSubscriptionIfNewer applies updates only when the stored event_time
// is strictly older than the incoming one. The single gated UPDATE is the
// sole ordering mechanism under concurrent deliveries for the same id.
func (r *gormRepository) UpdateSubscriptionIfNewer(id string, eventTime time.Time, updates map[string]interface{}) (bool, error) {
	tx := r.db.Model(&models.Subscription{}).
		Where("id = ? AND event_time < ?", id, eventTime).
		Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) ListUnlinkedSubscriptions() ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Where("subscriber_id IS NULL").Find(&subs).Error
	return subs, err
}

func (r *gormRepository) AssignSubscriber(subscriptionIDs []string, subscriberID uint) error {
	if len(subscriptionIDs) == 0 {
		return nil
	}
	return r.db.Model(&models.Subscription{}).
		Where("id IN ?", subscriptionIDs).
		Update("subscriber_id", subscriberID).Error
}

func (r *gormRepository) GetSubscriberByEmail(email string) (*models.Subscriber, error) {
	var subscriber models.Subscriber
	if err := r.db.Where("email = ?", email).First(&subscriber).Error; err != nil {
		return nil, err
	}
	return &subscriber, nil
}

func (r *gormRepository) CreateWebhookEvent(event *models.WebhookEvent) error {
	return r.db.Create(event).Error
}

func (r *gormRepository) DeleteWebhookEventsBefore(t time.Time) error {
	return r.db.Where("time < ?", t).Delete(&models.WebhookEvent{}).Error
}

func (r *gormRepository) CreateReplayedEventIfNew(event *models.ReplayedEvent) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "payload_hash"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) DeleteReplayedEventsBefore(t time.Time) error {
	return r.db.Where("time < ?", t).Delete(&models.ReplayedEvent{}).Error
}

func (r *gormRepository) LatestReplayedTime() (*time.Time, error) {
	var event models.ReplayedEvent
	err := r.db.Order("time DESC").First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t := event.Time
	return &t, nil
}

func (r *gormRepository) UpsertCheckout(checkout *models.Checkout) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"completed",
			"passthrough",
			"email",
			"created_at",
		}),
	}).Create(checkout).Error
}
