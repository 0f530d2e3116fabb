package router

import (
	"github.com/abroun/paddlesync/app/controllers"
	apiv1 "github.com/abroun/paddlesync/internal/api/v1"
	"github.com/abroun/paddlesync/internal/pkg/constants"
	"github.com/abroun/paddlesync/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

// InstallRouter registers all HTTP routes on the app.
func InstallRouter(app *fiber.App) {
	app.Get(constants.HealthRoute, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Paddle webhooks are signature-verified in the controller, no CSRF.
	paddleGroup := app.Group(constants.PaddleRoute)
	paddleGroup.Post(constants.WebhookRoute, controllers.HandlePaddleWebhook)
	paddleGroup.Post(constants.CheckoutRoute, controllers.HandlePostCheckout)

	// Read-only admin API, static-key protected.
	apiGroup := app.Group(constants.APIv1Route, middleware.APIKeyAuthMiddleware())
	apiv1.NewAPIServer().RegisterRoutes(apiGroup)
}
