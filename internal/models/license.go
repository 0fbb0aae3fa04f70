package models

import "time"

// License is a single sellable key from a SKU's pool. It moves from unsold to
// sold once and then stays bound to the order that bought it.
type License struct {
	ID         string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ProductID  string     `json:"product_id" gorm:"type:varchar(36);index"`
	SKUID      string     `json:"sku_id" gorm:"column:sku_id;type:varchar(36);not null;index:idx_licenses_sku_sold,priority:1"`
	LicenseKey string     `json:"-" gorm:"type:varchar(255);uniqueIndex;not null"`
	IsSold     bool       `json:"is_sold" gorm:"not null;default:false;index:idx_licenses_sku_sold,priority:2"`
	OrderID    string     `json:"order_id,omitempty" gorm:"type:varchar(36);index"`
	SoldAt     *time.Time `json:"sold_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
