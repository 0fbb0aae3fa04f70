package repositories

import (
	"context"
	"fmt"
	"time"

	"digizone/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// MaxNotificationAttempts is how often a notification is tried before it
	// is given up as failed.
	MaxNotificationAttempts = 5
	// NotificationClaimTimeout is how long a claim holds before another
	// sender may take the notification over.
	NotificationClaimTimeout = 5 * time.Minute
)

// NotificationRepository is the outbox of confirmation emails.
type NotificationRepository interface {
	// Enqueue stores a pending notification unless one already exists for
	// the same order and template.
	Enqueue(ctx context.Context, notification *models.Notification) error
	// FetchPending lists notifications that are due, including claims that
	// timed out.
	FetchPending(ctx context.Context, limit int) ([]models.Notification, error)
	// Claim reserves a due notification for one sender. It reports false when
	// someone else holds it or it is no longer due.
	Claim(ctx context.Context, id uint) (bool, error)
	MarkSent(ctx context.Context, id uint) error
	// MarkFailed releases the claim for a later retry, or fails the
	// notification for good once MaxNotificationAttempts is reached.
	MarkFailed(ctx context.Context, id uint, cause error) error
	// Abandon fails the notification without further retries.
	Abandon(ctx context.Context, id uint, cause error) error
}

// GORMNotificationRepository is a GORM implementation of NotificationRepository.
type GORMNotificationRepository struct {
	db *gorm.DB
}

// NewGORMNotificationRepository creates a new instance of GORMNotificationRepository.
func NewGORMNotificationRepository(db *gorm.DB) *GORMNotificationRepository {
	return &GORMNotificationRepository{db: db}
}

func (r *GORMNotificationRepository) Enqueue(ctx context.Context, notification *models.Notification) error {
	notification.Status = models.NotificationPending
	err := conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "template_id"}},
			DoNothing: true,
		}).
		Create(notification).Error
	if err != nil {
		return fmt.Errorf("failed to enqueue notification for order %s: %w", notification.OrderID, err)
	}
	return nil
}

// due matches rows a sender may claim at now.
func due(db *gorm.DB, now time.Time) *gorm.DB {
	return db.
		Where("attempts < ?", MaxNotificationAttempts).
		Where("(status = ? OR (status = ? AND claimed_at < ?))",
			models.NotificationPending, models.NotificationSending, now.Add(-NotificationClaimTimeout))
}

func (r *GORMNotificationRepository) FetchPending(ctx context.Context, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := due(conn(ctx, r.db), time.Now().UTC()).
		Order("id asc").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending notifications: %w", err)
	}
	return notifications, nil
}

func (r *GORMNotificationRepository) Claim(ctx context.Context, id uint) (bool, error) {
	now := time.Now().UTC()
	res := due(conn(ctx, r.db).Model(&models.Notification{}).Where("id = ?", id), now).
		Updates(map[string]interface{}{
			"status":     models.NotificationSending,
			"claimed_at": now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to claim notification %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *GORMNotificationRepository) MarkSent(ctx context.Context, id uint) error {
	now := time.Now().UTC()
	err := conn(ctx, r.db).Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.NotificationSent,
			"sent_at":    now,
			"claimed_at": nil,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": "",
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark notification %d sent: %w", id, err)
	}
	return nil
}

func (r *GORMNotificationRepository) MarkFailed(ctx context.Context, id uint, cause error) error {
	err := conn(ctx, r.db).Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status": gorm.Expr("CASE WHEN attempts + 1 >= ? THEN ? ELSE ? END",
				MaxNotificationAttempts, models.NotificationFailed, models.NotificationPending),
			"claimed_at": nil,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause.Error(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to record failure of notification %d: %w", id, err)
	}
	return nil
}

func (r *GORMNotificationRepository) Abandon(ctx context.Context, id uint, cause error) error {
	err := conn(ctx, r.db).Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.NotificationFailed,
			"claimed_at": nil,
			"last_error": cause.Error(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to abandon notification %d: %w", id, err)
	}
	return nil
}
