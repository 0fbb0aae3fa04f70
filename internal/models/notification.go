package models

import "time"

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSending NotificationStatus = "sending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification is an outbox row for a templated email. It is written in the
// same transaction that completes the order and delivered afterwards.
type Notification struct {
	ID         uint               `json:"id" gorm:"primaryKey"`
	OrderID    string             `json:"order_id" gorm:"type:varchar(36);uniqueIndex:idx_notifications_order_template,priority:1"`
	TemplateID string             `json:"template_id" gorm:"type:varchar(255);uniqueIndex:idx_notifications_order_template,priority:2"`
	Recipient  string             `json:"recipient" gorm:"type:varchar(255)"`
	Variables  map[string]string  `json:"variables" gorm:"serializer:json"`
	Status     NotificationStatus `json:"status" gorm:"type:varchar(20);index;not null;default:'pending'"`
	Attempts   int                `json:"attempts"`
	LastError  string             `json:"last_error,omitempty" gorm:"type:text"`
	ClaimedAt  *time.Time         `json:"claimed_at,omitempty"`
	SentAt     *time.Time         `json:"sent_at,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}
