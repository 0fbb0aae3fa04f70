package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SKU is a purchasable variant of a product, e.g. one license duration.
type SKU struct {
	ID              string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ProductID       string          `json:"product_id" gorm:"type:varchar(36);index"`
	Name            string          `json:"name" validate:"required,min=2,max=100"`
	Code            string          `json:"code" gorm:"type:varchar(64)"`
	Price           decimal.Decimal `json:"price" gorm:"type:decimal(12,2)"`
	ValidityDays    int             `json:"validity_days" validate:"gte=0"`
	Lifetime        bool            `json:"lifetime"`
	ProviderPriceID string          `json:"provider_price_id" gorm:"type:varchar(255)"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Product is the aggregate root for its SKUs and their license pools.
type Product struct {
	ID                string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name              string    `json:"name" validate:"required,min=3,max=100"`
	Description       string    `json:"description" validate:"omitempty,max=500"`
	ProviderProductID string    `json:"provider_product_id" gorm:"type:varchar(255)"`
	SKUs              []SKU     `json:"skus" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// FindSKU returns the SKU with the given id, or nil.
func (p *Product) FindSKU(id string) *SKU {
	for i := range p.SKUs {
		if p.SKUs[i].ID == id {
			return &p.SKUs[i]
		}
	}
	return nil
}

// FindSKUByPriceID returns the SKU bound to the given provider price, or nil.
func (p *Product) FindSKUByPriceID(priceID string) *SKU {
	for i := range p.SKUs {
		if p.SKUs[i].ProviderPriceID == priceID {
			return &p.SKUs[i]
		}
	}
	return nil
}
