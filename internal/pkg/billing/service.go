package billing

import (
	"context"
	"time"

	"github.com/abroun/paddlesync/internal/pkg/paddle"
	"gorm.io/gorm"
)

// API is the slice of the Paddle vendors API the engine depends on.
// *paddle.Client implements it; tests substitute a fake.
type API interface {
	ListPlans(ctx context.Context, planID string) ([]paddle.PlanData, error)
	GetPlan(ctx context.Context, planID string) (*paddle.PlanData, error)
	ListProducts(ctx context.Context) ([]paddle.ProductData, error)
	GetWebhookHistory(ctx context.Context, page, alertsPerPage int, queryTail, queryHead time.Time) ([]paddle.HistoryEvent, error)
}

// Service is the reconciliation engine: it maps webhook/replay payloads onto
// canonical subscription/purchase records and keeps the plan/product catalog
// in sync with the vendors API.
type Service struct {
	repo Repository
	api  API
	cfg  *Config
}

// NewService creates a billing service from injected collaborators.
func NewService(repo Repository, api API, cfg *Config) *Service {
	return &Service{repo: repo, api: api, cfg: cfg}
}

// NewServiceFromDB creates a billing service from a GORM DB handle using the
// process-wide configuration and the environment-configured API client.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), paddle.NewClientFromEnv(), GetConfig())
}

// Repo exposes the repository for read-only callers (admin queries, tests).
func (s *Service) Repo() Repository {
	return s.repo
}
