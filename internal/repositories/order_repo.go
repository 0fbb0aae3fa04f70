package repositories

import (
	"context"
	"errors"

	"digizone/internal/models"
)

// ErrOrderAlreadyCompleted is returned by MarkCompleted when the order left
// the pending state before the update ran.
var ErrOrderAlreadyCompleted = errors.New("order already completed")

// OrderFilter narrows order listings.
type OrderFilter struct {
	UserID string
	Status models.OrderStatus
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// Upsert returns the order stored under order.CheckoutSessionID,
	// creating it from order when none exists. created reports which
	// happened.
	Upsert(ctx context.Context, order *models.Order) (stored *models.Order, created bool, err error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	// UpdatePayment records provider payment data on a still pending order.
	UpdatePayment(ctx context.Context, sessionID string, payment models.PaymentInfo) error
	// MarkCompleted moves a pending order to completed and delivered. It is
	// conditional on the pending status and fails with
	// ErrOrderAlreadyCompleted otherwise.
	MarkCompleted(ctx context.Context, sessionID string, payment models.PaymentInfo) error
	SetItemLicenses(ctx context.Context, itemID uint, licenses []string) error
}
