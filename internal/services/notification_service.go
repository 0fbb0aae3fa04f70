package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"digizone/internal/metrics"
	"digizone/internal/models"
	"digizone/internal/notification"
	"digizone/internal/repositories"
)

// NotificationService delivers outbox notifications through a dispatcher.
type NotificationService struct {
	outbox     repositories.NotificationRepository
	dispatcher notification.Dispatcher
	metrics    *metrics.Metrics
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(outbox repositories.NotificationRepository, dispatcher notification.Dispatcher, m *metrics.Metrics) *NotificationService {
	return &NotificationService{
		outbox:     outbox,
		dispatcher: dispatcher,
		metrics:    m,
	}
}

// ErrNotificationClaimed means another sender holds the notification or it is
// no longer due.
var ErrNotificationClaimed = errors.New("notification is not available for delivery")

// Deliver claims one notification, sends it and records the result on its
// outbox row.
func (s *NotificationService) Deliver(ctx context.Context, n *models.Notification) error {
	if n.Recipient == "" {
		s.metrics.NotificationFailures.Inc()
		log.Printf("ALERT: notification %d for order %s has no recipient, giving up", n.ID, n.OrderID)
		if err := s.outbox.Abandon(ctx, n.ID, errors.New("no recipient")); err != nil {
			return err
		}
		return fmt.Errorf("notification %d has no recipient", n.ID)
	}

	claimed, err := s.outbox.Claim(ctx, n.ID)
	if err != nil {
		return err
	}
	if !claimed {
		return fmt.Errorf("notification %d: %w", n.ID, ErrNotificationClaimed)
	}

	if err := s.dispatcher.Send(ctx, n.Recipient, n.TemplateID, n.Variables); err != nil {
		s.metrics.NotificationFailures.Inc()
		log.Printf("Warning: failed to send %s for order %s (attempt %d of %d): %v",
			n.TemplateID, n.OrderID, n.Attempts+1, repositories.MaxNotificationAttempts, err)
		if markErr := s.outbox.MarkFailed(ctx, n.ID, err); markErr != nil {
			log.Printf("Warning: %v", markErr)
		}
		return fmt.Errorf("failed to deliver notification %d: %w", n.ID, err)
	}
	if err := s.outbox.MarkSent(ctx, n.ID); err != nil {
		return err
	}
	log.Printf("Sent %s to %s for order %s", n.TemplateID, n.Recipient, n.OrderID)
	return nil
}

// DeliverPending retries up to limit due notifications and returns how many
// went out. Failures stay pending for the next run until they run out of
// attempts.
func (s *NotificationService) DeliverPending(ctx context.Context, limit int) (int, error) {
	pending, err := s.outbox.FetchPending(ctx, limit)
	if err != nil {
		return 0, err
	}
	sent := 0
	for i := range pending {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := s.Deliver(ctx, &pending[i]); err == nil {
			sent++
		}
	}
	return sent, nil
}
