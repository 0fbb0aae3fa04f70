package handlers

import (
	"digizone/internal/apperrors"
	"digizone/internal/middleware"
	"digizone/internal/models"
	"digizone/internal/services"

	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	checkout *services.CheckoutService
	orders   *services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(checkout *services.CheckoutService, orders *services.OrderService) *OrderHandler {
	return &OrderHandler{
		checkout: checkout,
		orders:   orders,
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/checkout", h.HandleCheckout)
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
}

// HandleCheckout opens a payment session for the caller's cart.
func (h *OrderHandler) HandleCheckout(c *fiber.Ctx) error {
	identity := middleware.Identity(c)
	if err := services.Authorize(identity, models.RoleCustomer, models.RoleAdmin); err != nil {
		return respondError(c, err, "Checkout not allowed")
	}

	var req services.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperrors.InvalidRequest("invalid request body", err.Error()), "Invalid request body")
	}

	result, err := h.checkout.InitiateCheckout(c.UserContext(), *identity, req)
	if err != nil {
		return respondError(c, err, "Could not start checkout")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"result":  result,
	})
}

// HandleGetOrders lists the caller's orders; admins see every order.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	identity := middleware.Identity(c)
	if err := services.Authorize(identity); err != nil {
		return respondError(c, err, "Could not retrieve orders")
	}

	orders, err := h.orders.ListOrders(c.UserContext(), *identity, models.OrderStatus(c.Query("status")))
	if err != nil {
		return respondError(c, err, "Could not retrieve orders")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"result":  orders,
	})
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	identity := middleware.Identity(c)
	if err := services.Authorize(identity); err != nil {
		return respondError(c, err, "Could not retrieve order")
	}

	order, err := h.orders.GetOrder(c.UserContext(), *identity, c.Params("id"))
	if err != nil {
		return respondError(c, err, "Could not retrieve order")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"result":  order,
	})
}
