package repositories_test

import (
	"context"
	"fmt"
	"testing"

	"digizone/internal/database"
	"digizone/internal/database/dbtest"
	"digizone/internal/models"
	"digizone/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stores struct {
	db       *gorm.DB
	tx       *repositories.GORMTransactor
	products *repositories.GORMProductRepository
	licenses *repositories.GORMLicenseRepository
	orders   *repositories.GORMOrderRepository
	outbox   *repositories.GORMNotificationRepository
}

func newStores(t *testing.T) stores {
	t.Helper()
	db := dbtest.Open(t)
	tx := repositories.NewGORMTransactor(db)
	return stores{
		db:       db,
		tx:       tx,
		products: repositories.NewGORMProductRepository(db),
		licenses: repositories.NewGORMLicenseRepository(db, tx, database.SupportsRowLocking(db)),
		orders:   repositories.NewGORMOrderRepository(db, tx),
		outbox:   repositories.NewGORMNotificationRepository(db),
	}
}

// seedSKU creates a product with one SKU and n unsold licenses for it.
func seedSKU(t *testing.T, s stores, n int) (*models.Product, models.SKU) {
	t.Helper()
	product := &models.Product{
		Name: "Antivirus Pro",
		SKUs: []models.SKU{{
			Name:            "1 year",
			Price:           decimal.RequireFromString("19.99"),
			ValidityDays:    365,
			ProviderPriceID: "price_1y",
		}},
	}
	require.NoError(t, s.products.Create(context.Background(), product))
	sku := product.SKUs[0]

	licenses := make([]models.License, n)
	for i := range licenses {
		licenses[i] = models.License{
			ProductID:  product.ID,
			SKUID:      sku.ID,
			LicenseKey: fmt.Sprintf("KEY-%s-%03d", sku.ID[:8], i),
		}
	}
	require.NoError(t, s.licenses.CreateBatch(context.Background(), licenses))
	return product, sku
}
