package handlers

import (
	"digizone/internal/services"

	"github.com/gofiber/fiber/v2"
)

// SignatureHeader carries the provider's webhook signature.
const SignatureHeader = "Stripe-Signature"

// WebhookPath is mounted outside authentication and CSRF protection.
const WebhookPath = "/api/v1/orders/webhook"

// WebhookHandler receives payment provider events.
type WebhookHandler struct {
	fulfillment *services.FulfillmentService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(fulfillment *services.FulfillmentService) *WebhookHandler {
	return &WebhookHandler{fulfillment: fulfillment}
}

// RegisterRoutes registers the webhook route with the Fiber app.
func (h *WebhookHandler) RegisterRoutes(app fiber.Router) {
	app.Post(WebhookPath, h.HandleWebhook)
}

// HandleWebhook verifies the raw body before anything reads it. A 2xx answer
// stops provider redelivery, so only verification failures and internal
// errors are answered with an error status.
func (h *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.Body()...)

	result, err := h.fulfillment.HandlePaymentEvent(c.UserContext(), payload, c.Get(SignatureHeader))
	if err != nil {
		return respondError(c, err, "Webhook rejected")
	}
	return c.JSON(fiber.Map{
		"received": true,
		"outcome":  result.Outcome,
	})
}
