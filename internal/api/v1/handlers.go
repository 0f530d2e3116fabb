package apiv1

import (
	"errors"

	"github.com/abroun/paddlesync/app/repository"
	"github.com/abroun/paddlesync/internal/pkg/database"
	"github.com/abroun/paddlesync/internal/pkg/metrics/counter"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// APIServer serves the read-only admin API over the synced billing data.
// All writes go through the webhook/replay paths; these endpoints only
// query.
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

func (s *APIServer) repo() *repository.PaddleRepository {
	return repository.NewPaddleRepository(database.GetDB())
}

// RegisterRoutes attaches every admin endpoint to the given route group.
func (s *APIServer) RegisterRoutes(group fiber.Router) {
	group.Get("/ping", s.GetPing)
	group.Get("/plans", s.ListPlans)
	group.Get("/plans/:id", s.GetPlan)
	group.Get("/subscriptions", s.ListSubscriptions)
	group.Get("/subscriptions/:id", s.GetSubscription)
	group.Get("/products", s.ListProducts)
	group.Get("/purchases", s.ListProductPurchases)
	group.Get("/checkouts/:id", s.GetCheckout)
	group.Get("/webhook-events", s.ListWebhookEvents)
	group.Get("/replayed-events", s.ListReplayedEvents)
	group.Get("/stats", s.GetStats)
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ping": "pong"})
}

func (s *APIServer) ListPlans(c *fiber.Ctx) error {
	plans, err := s.repo().ListPlans()
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(fiber.Map{"plans": plans})
}

func (s *APIServer) GetPlan(c *fiber.Ctx) error {
	plan, err := s.repo().GetPlan(c.Params("id"))
	if err != nil {
		return lookupError(c, err)
	}
	return c.JSON(plan)
}

func (s *APIServer) ListSubscriptions(c *fiber.Ctx) error {
	filter := repository.SubscriptionFilter{
		Status: c.Query("status"),
		PlanID: c.Query("plan_id"),
	}
	subs, err := s.repo().ListSubscriptions(filter)
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(fiber.Map{"subscriptions": subs})
}

func (s *APIServer) GetSubscription(c *fiber.Ctx) error {
	sub, err := s.repo().GetSubscription(c.Params("id"))
	if err != nil {
		return lookupError(c, err)
	}
	return c.JSON(sub)
}

func (s *APIServer) ListProducts(c *fiber.Ctx) error {
	products, err := s.repo().ListProducts()
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(fiber.Map{"products": products})
}

func (s *APIServer) ListProductPurchases(c *fiber.Ctx) error {
	purchases, err := s.repo().ListProductPurchases()
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(fiber.Map{"purchases": purchases})
}

func (s *APIServer) GetCheckout(c *fiber.Ctx) error {
	checkout, err := s.repo().GetCheckout(c.Params("id"))
	if err != nil {
		return lookupError(c, err)
	}
	return c.JSON(checkout)
}

func (s *APIServer) ListWebhookEvents(c *fiber.Ctx) error {
	events, err := s.repo().ListWebhookEvents(c.QueryInt("limit", 100))
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(fiber.Map{"events": events})
}

func (s *APIServer) ListReplayedEvents(c *fiber.Ctx) error {
	events, err := s.repo().ListReplayedEvents(c.QueryInt("limit", 100))
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(fiber.Map{"events": events})
}

// GetStats returns the webhook delivery counters. Empty when no cache
// server is configured.
func (s *APIServer) GetStats(c *fiber.Ctx) error {
	stats, err := counter.Snapshot()
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(fiber.Map{"webhooks": stats})
}

func lookupError(c *fiber.Ctx, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}
	return internalError(c, err)
}

func internalError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": err.Error()})
}
