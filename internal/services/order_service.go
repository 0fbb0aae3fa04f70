package services

import (
	"context"

	"digizone/internal/apperrors"
	"digizone/internal/models"
	"digizone/internal/repositories"
)

// OrderService serves order reads scoped to the caller.
type OrderService struct {
	orderRepo repositories.OrderRepository
}

// NewOrderService creates a new OrderService.
func NewOrderService(orderRepo repositories.OrderRepository) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
	}
}

// ListOrders returns the caller's orders, or every order for admins.
func (s *OrderService) ListOrders(ctx context.Context, identity models.Identity, status models.OrderStatus) ([]models.Order, error) {
	switch status {
	case "", models.OrderStatusPending, models.OrderStatusCompleted:
	default:
		return nil, apperrors.InvalidRequest("invalid order filter", "status must be pending or completed")
	}

	filter := repositories.OrderFilter{Status: status}
	if identity.Role != models.RoleAdmin {
		filter.UserID = identity.UserID
	}
	return s.orderRepo.List(ctx, filter)
}

// GetOrder returns one order. Customers asking for someone else's order get
// NotFound so order ids cannot be probed.
func (s *OrderService) GetOrder(ctx context.Context, identity models.Identity, id string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if identity.Role != models.RoleAdmin && order.UserID != identity.UserID {
		return nil, apperrors.NotFound("order %s not found", id)
	}
	return order, nil
}
