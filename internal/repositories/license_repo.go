package repositories

import (
	"context"

	"digizone/internal/models"
)

// LicenseRepository is the license inventory of every SKU.
type LicenseRepository interface {
	// Allocate marks quantity unsold licenses of the SKU as sold to orderID
	// and returns their keys in selection order. It either claims all of
	// them or none.
	Allocate(ctx context.Context, skuID string, quantity int, orderID string) ([]string, error)
	CreateBatch(ctx context.Context, licenses []models.License) error
	CountUnsold(ctx context.Context, skuID string) (int64, error)
	ListByOrder(ctx context.Context, orderID string) ([]models.License, error)
}
