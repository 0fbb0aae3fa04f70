package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
)

// PaymentStatusPaid is the provider payment status that allows fulfillment.
const PaymentStatusPaid = "paid"

// OrderItem represents a single line within an order.
type OrderItem struct {
	ID        uint            `json:"-" gorm:"primaryKey"`
	OrderID   string          `json:"-" gorm:"type:varchar(36);index"`
	ProductID string          `json:"product_id" gorm:"type:varchar(36)"`
	SKUID     string          `json:"sku_id" gorm:"column:sku_id;type:varchar(36)"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2)"` // Price at the time of checkout
	Licenses  []string        `json:"licenses,omitempty" gorm:"serializer:json"`
}

// PaymentInfo carries what the payment provider reported for the order.
type PaymentInfo struct {
	Method   string          `json:"method" gorm:"type:varchar(50)"`
	IntentID string          `json:"intent_id" gorm:"type:varchar(255)"`
	Amount   decimal.Decimal `json:"amount" gorm:"type:decimal(12,2)"`
	Currency string          `json:"currency" gorm:"type:varchar(10)"`
	Status   string          `json:"status" gorm:"type:varchar(30)"`
	PaidAt   *time.Time      `json:"paid_at,omitempty"`
}

// Order represents a customer order. It is keyed both by its own ID and by
// the provider checkout session that produced it.
type Order struct {
	ID                string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CheckoutSessionID string      `json:"checkout_session_id" gorm:"type:varchar(255);uniqueIndex;not null"`
	UserID            string      `json:"user_id" gorm:"type:varchar(36);index"`
	CustomerEmail     string      `json:"customer_email" gorm:"type:varchar(255)"`
	Items             []OrderItem `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment           PaymentInfo `json:"payment" gorm:"embedded;embeddedPrefix:payment_"`
	Status            OrderStatus `json:"status" gorm:"type:varchar(20);index;not null;default:'pending'"`
	Delivered         bool        `json:"delivered"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// IsCompleted reports whether the order reached its terminal state.
func (o *Order) IsCompleted() bool {
	return o.Status == OrderStatusCompleted
}

// Total sums unit price times quantity over all lines.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
