package constants

// Static route constants
const (
	HealthRoute = "/healthz"

	PaddleRoute   = "/paddle"
	WebhookRoute  = "/webhook/"
	CheckoutRoute = "/checkout/"

	APIv1Route = "/api/v1"
)
