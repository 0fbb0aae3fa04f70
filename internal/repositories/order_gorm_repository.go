package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"digizone/internal/apperrors"
	"digizone/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
	tx Transactor
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB, tx Transactor) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
		tx: tx,
	}
}

// Upsert inserts the order unless its checkout session is already known.
// The unique index on checkout_session_id decides concurrent races.
func (r *GORMOrderRepository) Upsert(ctx context.Context, order *models.Order) (*models.Order, bool, error) {
	if order.CheckoutSessionID == "" {
		return nil, false, apperrors.InvalidRequest("invalid order", "checkout session id is required")
	}

	var created bool
	err := r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		db := conn(ctx, r.db)

		candidate := *order
		candidate.ID = uuid.New().String()
		if candidate.Status == "" {
			candidate.Status = models.OrderStatusPending
		}
		items := candidate.Items
		candidate.Items = nil

		res := db.Omit(clause.Associations).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "checkout_session_id"}}, DoNothing: true}).
			Create(&candidate)
		if res.Error != nil {
			return fmt.Errorf("failed to insert order for session %s: %w", order.CheckoutSessionID, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		created = true
		for i := range items {
			items[i].ID = 0
			items[i].OrderID = candidate.ID
		}
		if len(items) > 0 {
			if err := db.Create(&items).Error; err != nil {
				return fmt.Errorf("failed to insert items of order %s: %w", candidate.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	stored, err := r.GetBySessionID(ctx, order.CheckoutSessionID)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

// GetByID retrieves an order and its items by order ID.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return r.first(ctx, "id = ?", id)
}

// GetBySessionID retrieves an order and its items by checkout session ID.
func (r *GORMOrderRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	return r.first(ctx, "checkout_session_id = ?", sessionID)
}

func (r *GORMOrderRepository) first(ctx context.Context, query string, arg string) (*models.Order, error) {
	var order models.Order
	err := conn(ctx, r.db).Preload("Items", orderItemsByID).First(&order, query, arg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order %s not found", arg)
		}
		return nil, fmt.Errorf("failed to get order %s: %w", arg, err)
	}
	return &order, nil
}

// List returns orders matching the filter, newest first.
func (r *GORMOrderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	query := conn(ctx, r.db).Preload("Items", orderItemsByID)
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var orders []models.Order
	if err := query.Order("created_at desc").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdatePayment stores payment data while the order is pending.
func (r *GORMOrderRepository) UpdatePayment(ctx context.Context, sessionID string, payment models.PaymentInfo) error {
	res := conn(ctx, r.db).Model(&models.Order{}).
		Where("checkout_session_id = ? AND status = ?", sessionID, models.OrderStatusPending).
		Updates(paymentColumns(payment))
	if res.Error != nil {
		return fmt.Errorf("failed to update payment of session %s: %w", sessionID, res.Error)
	}
	return nil
}

// MarkCompleted is the linearization point of fulfillment: only one caller
// can flip the status of a given session from pending.
func (r *GORMOrderRepository) MarkCompleted(ctx context.Context, sessionID string, payment models.PaymentInfo) error {
	columns := paymentColumns(payment)
	columns["status"] = models.OrderStatusCompleted
	columns["delivered"] = true
	columns["updated_at"] = time.Now().UTC()

	res := conn(ctx, r.db).Model(&models.Order{}).
		Where("checkout_session_id = ? AND status = ?", sessionID, models.OrderStatusPending).
		Updates(columns)
	if res.Error != nil {
		return fmt.Errorf("failed to complete order of session %s: %w", sessionID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrOrderAlreadyCompleted
	}
	return nil
}

// SetItemLicenses stores the keys allocated to an order line.
func (r *GORMOrderRepository) SetItemLicenses(ctx context.Context, itemID uint, licenses []string) error {
	res := conn(ctx, r.db).Model(&models.OrderItem{ID: itemID}).
		Select("licenses").
		Updates(&models.OrderItem{Licenses: licenses})
	if res.Error != nil {
		return fmt.Errorf("failed to store licenses of order item %d: %w", itemID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("order item %d not found", itemID)
	}
	return nil
}

func orderItemsByID(db *gorm.DB) *gorm.DB {
	return db.Order("id asc")
}

func paymentColumns(payment models.PaymentInfo) map[string]interface{} {
	return map[string]interface{}{
		"payment_method":    payment.Method,
		"payment_intent_id": payment.IntentID,
		"payment_amount":    payment.Amount,
		"payment_currency":  payment.Currency,
		"payment_status":    payment.Status,
		"payment_paid_at":   payment.PaidAt,
	}
}
