package controllers

import (
	"fmt"
	"strings"

	"github.com/abroun/paddlesync/app/models"
	"github.com/abroun/paddlesync/internal/pkg/billing"
	"github.com/abroun/paddlesync/internal/pkg/database"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var checkoutValidate = validator.New()

type checkoutInput struct {
	ID    string `validate:"required,max=64"`
	Email string `validate:"omitempty,email"`
}

// HandlePostCheckout captures checkout info reported by PaddleJS. The row is
// upserted as a backup in case the corresponding webhook is delayed or lost.
func HandlePostCheckout(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.FormValue("id"))
	email := strings.TrimSpace(c.FormValue("email"))
	passthrough := c.FormValue("passthrough")

	input := checkoutInput{ID: id, Email: email}
	if err := checkoutValidate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(`Missing or invalid "id"/"email"`)
	}

	completed, err := parseCompleted(c.FormValue("completed"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(`Missing "completed"`)
	}

	cfg := billing.GetConfig()
	if cfg.RequestIdentity != nil {
		if userEmail, userPassthrough, ok := cfg.RequestIdentity(c); ok {
			if email != userEmail || passthrough != userPassthrough {
				return c.Status(fiber.StatusBadRequest).SendString("Checkout not from current user")
			}
		}
	}

	checkout := &models.Checkout{
		ID:          id,
		Completed:   &completed,
		Passthrough: passthrough,
		Email:       email,
	}
	if raw := strings.TrimSpace(c.FormValue("created_at")); raw != "" {
		createdAt, err := billing.ParseEventTime(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString(`Invalid "created_at"`)
		}
		checkout.CreatedAt = &createdAt
	}

	if err := billing.NewRepository(database.GetDB()).UpsertCheckout(checkout); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("storing checkout failed")
	}

	if nextURL := c.Query("next"); nextURL != "" {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"redirect_url": nextURL + "?checkout=" + id})
	}

	redirectURL := c.FormValue("redirect_url")
	if redirectURL != "" && redirectURL != "null" {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"redirect_url": redirectURL + "?checkout=" + id})
	}

	return c.Status(fiber.StatusNoContent).JSON(fiber.Map{})
}

// parseCompleted accepts the boolean spellings checkout clients send:
// 1/0, true/false, t/f, y/n, yes/no, on/off, case-insensitive.
func parseCompleted(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "t", "y", "yes", "on":
		return true, nil
	case "0", "false", "f", "n", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf(`invalid "completed" value %q`, raw)
}
