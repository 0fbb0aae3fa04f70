package handlers

import (
	"digizone/internal/metrics"
	"digizone/internal/middleware"
	"digizone/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Services is what the HTTP layer needs from the application.
type Services struct {
	Auth        *services.AuthService
	Checkout    *services.CheckoutService
	Orders      *services.OrderService
	Fulfillment *services.FulfillmentService
	Metrics     *metrics.Metrics
	Health      map[string]Pinger
}

// NewApp builds the Fiber app with every route and middleware.
func NewApp(svc Services) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "digizone",
	})

	app.Use(recover.New())
	app.Use(logger.New())

	app.Get("/health", NewHealthHandler(svc.Health).HandleHealth)
	app.Get("/metrics", svc.Metrics.Handler())

	// The webhook is verified by signature and must see the untouched body.
	NewWebhookHandler(svc.Fulfillment).RegisterRoutes(app)

	public := middleware.PublicPaths{WebhookPath}
	apiV1 := app.Group("/api/v1", middleware.AuthRequired(svc.Auth, public), middleware.CSRF(public))
	NewOrderHandler(svc.Checkout, svc.Orders).RegisterRoutes(apiV1)

	return app
}
