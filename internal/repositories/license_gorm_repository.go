package repositories

import (
	"context"
	"fmt"
	"time"

	"digizone/internal/apperrors"
	"digizone/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxAllocateAttempts = 3

// GORMLicenseRepository is a GORM implementation of LicenseRepository.
type GORMLicenseRepository struct {
	db         *gorm.DB
	tx         Transactor
	rowLocking bool
}

// NewGORMLicenseRepository creates a new instance of GORMLicenseRepository.
// rowLocking enables FOR UPDATE SKIP LOCKED on dialects that support it.
func NewGORMLicenseRepository(db *gorm.DB, tx Transactor, rowLocking bool) *GORMLicenseRepository {
	return &GORMLicenseRepository{
		db:         db,
		tx:         tx,
		rowLocking: rowLocking,
	}
}

// Allocate claims licenses with a per-row "still unsold" predicate. Rows
// another transaction grabbed first are skipped and refilled from the pool.
func (r *GORMLicenseRepository) Allocate(ctx context.Context, skuID string, quantity int, orderID string) ([]string, error) {
	if quantity <= 0 {
		return nil, apperrors.InvalidRequest("invalid allocation", fmt.Sprintf("quantity must be positive, got %d", quantity))
	}

	var keys []string
	err := r.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		db := conn(ctx, r.db)
		var claimed, claimedIDs []string
		soldAt := time.Now().UTC()

		for attempt := 0; len(claimed) < quantity && attempt < maxAllocateAttempts; attempt++ {
			need := quantity - len(claimed)

			query := db.Where("sku_id = ? AND is_sold = ?", skuID, false)
			if len(claimedIDs) > 0 {
				query = query.Where("id NOT IN ?", claimedIDs)
			}
			query = query.Order("created_at asc, id asc").Limit(need)
			if r.rowLocking {
				query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
			}

			var candidates []models.License
			if err := query.Find(&candidates).Error; err != nil {
				return fmt.Errorf("failed to select licenses for sku %s: %w", skuID, err)
			}
			if len(candidates) < need {
				break
			}

			for _, candidate := range candidates {
				res := db.Model(&models.License{}).
					Where("id = ? AND is_sold = ?", candidate.ID, false).
					Updates(map[string]interface{}{
						"is_sold":  true,
						"order_id": orderID,
						"sold_at":  soldAt,
					})
				if res.Error != nil {
					return fmt.Errorf("failed to mark license %s sold: %w", candidate.ID, res.Error)
				}
				if res.RowsAffected == 1 {
					claimed = append(claimed, candidate.LicenseKey)
					claimedIDs = append(claimedIDs, candidate.ID)
				}
			}
		}

		if len(claimed) < quantity {
			available, err := r.countUnsold(db, skuID)
			if err != nil {
				return err
			}
			// Returning an error rolls back the rows claimed so far.
			return apperrors.InsufficientInventory(skuID, quantity, len(claimed)+int(available))
		}
		keys = claimed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// CreateBatch provisions new unsold licenses.
func (r *GORMLicenseRepository) CreateBatch(ctx context.Context, licenses []models.License) error {
	if len(licenses) == 0 {
		return nil
	}
	for i := range licenses {
		if licenses[i].ID == "" {
			licenses[i].ID = uuid.New().String()
		}
		licenses[i].IsSold = false
		licenses[i].OrderID = ""
	}
	if err := conn(ctx, r.db).CreateInBatches(licenses, 100).Error; err != nil {
		return fmt.Errorf("failed to create licenses: %w", err)
	}
	return nil
}

// CountUnsold returns how many licenses of the SKU are still available.
func (r *GORMLicenseRepository) CountUnsold(ctx context.Context, skuID string) (int64, error) {
	return r.countUnsold(conn(ctx, r.db), skuID)
}

func (r *GORMLicenseRepository) countUnsold(db *gorm.DB, skuID string) (int64, error) {
	var count int64
	if err := db.Model(&models.License{}).Where("sku_id = ? AND is_sold = ?", skuID, false).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count licenses for sku %s: %w", skuID, err)
	}
	return count, nil
}

// ListByOrder returns the licenses sold to an order.
func (r *GORMLicenseRepository) ListByOrder(ctx context.Context, orderID string) ([]models.License, error) {
	var licenses []models.License
	if err := conn(ctx, r.db).Where("order_id = ?", orderID).Order("sold_at asc, created_at asc, id asc").Find(&licenses).Error; err != nil {
		return nil, fmt.Errorf("failed to list licenses for order %s: %w", orderID, err)
	}
	return licenses, nil
}
