package services

import (
	"context"
	"errors"
	"log"
	"time"

	"digizone/internal/apperrors"
	"digizone/internal/metrics"
	"digizone/internal/models"
	"digizone/internal/payment"
	"digizone/internal/repositories"
)

// Outcome is what handling one payment event amounted to.
type Outcome string

const (
	OutcomeIgnored               Outcome = "ignored"
	OutcomeMalformed             Outcome = "malformed"
	OutcomeDuplicate             Outcome = "duplicate"
	OutcomeAwaitingPayment       Outcome = "awaiting_payment"
	OutcomeCompleted             Outcome = "completed"
	OutcomeInsufficientInventory Outcome = "insufficient_inventory"
)

// FulfillmentResult describes a handled payment event.
type FulfillmentResult struct {
	Outcome   Outcome `json:"outcome"`
	EventType string  `json:"eventType,omitempty"`
	SessionID string  `json:"sessionId,omitempty"`
	OrderID   string  `json:"orderId,omitempty"`
}

// FulfillmentMarker is an optional fast path for sessions already fulfilled.
type FulfillmentMarker interface {
	IsFulfilled(ctx context.Context, sessionID string) (bool, error)
	MarkFulfilled(ctx context.Context, sessionID, orderID string) error
}

// OrderEventPublisher announces completed orders to other services.
type OrderEventPublisher interface {
	PublishOrderCompleted(orderData map[string]interface{}) error
}

// FulfillmentConfig holds the confirmation email settings.
type FulfillmentConfig struct {
	OrderLinkBaseURL string
	SuccessTemplate  string
}

// FulfillmentService reconciles provider payment events with orders and
// sells each paid order its licenses exactly once.
type FulfillmentService struct {
	provider    payment.Provider
	orderRepo   repositories.OrderRepository
	licenseRepo repositories.LicenseRepository
	outbox      repositories.NotificationRepository
	tx          repositories.Transactor
	notifier    *NotificationService
	marker      FulfillmentMarker
	events      OrderEventPublisher
	metrics     *metrics.Metrics
	cfg         FulfillmentConfig
}

// FulfillmentDeps lists the collaborators of FulfillmentService. Marker and
// Events may be nil.
type FulfillmentDeps struct {
	Provider    payment.Provider
	OrderRepo   repositories.OrderRepository
	LicenseRepo repositories.LicenseRepository
	Outbox      repositories.NotificationRepository
	Tx          repositories.Transactor
	Notifier    *NotificationService
	Marker      FulfillmentMarker
	Events      OrderEventPublisher
	Metrics     *metrics.Metrics
}

// NewFulfillmentService creates a new FulfillmentService.
func NewFulfillmentService(deps FulfillmentDeps, cfg FulfillmentConfig) *FulfillmentService {
	return &FulfillmentService{
		provider:    deps.Provider,
		orderRepo:   deps.OrderRepo,
		licenseRepo: deps.LicenseRepo,
		outbox:      deps.Outbox,
		tx:          deps.Tx,
		notifier:    deps.Notifier,
		marker:      deps.Marker,
		events:      deps.Events,
		metrics:     deps.Metrics,
		cfg:         cfg,
	}
}

// HandlePaymentEvent verifies and applies one webhook delivery. It is safe to
// call any number of times, concurrently, with the same event.
//
// The returned error is nil whenever the provider should stop redelivering,
// including when inventory ran out: the order then stays pending for an
// operator to finish with ReprocessOrder.
func (s *FulfillmentService) HandlePaymentEvent(ctx context.Context, payload []byte, signature string) (*FulfillmentResult, error) {
	started := time.Now()
	defer func() {
		s.metrics.FulfillmentLatencyMS.Observe(float64(time.Since(started).Milliseconds()))
	}()

	event, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		s.metrics.Fulfillments.WithLabelValues(string(apperrors.KindOf(err))).Inc()
		log.Printf("Rejected payment event: %v", err)
		return nil, err
	}

	result, err := s.handleEvent(ctx, event)
	if err != nil {
		s.metrics.Fulfillments.WithLabelValues(string(apperrors.KindOf(err))).Inc()
		return nil, err
	}
	s.metrics.Fulfillments.WithLabelValues(string(result.Outcome)).Inc()
	return result, nil
}

func (s *FulfillmentService) handleEvent(ctx context.Context, event *payment.Event) (*FulfillmentResult, error) {
	result := &FulfillmentResult{EventType: event.Type}
	if event.Type == payment.EventCheckoutSessionCompleted && event.Session == nil && event.Malformed != "" {
		// Redelivery cannot fix it, so the event is acknowledged.
		log.Printf("ALERT: payment event %s cannot be fulfilled: %s", event.ID, event.Malformed)
		result.Outcome = OutcomeMalformed
		return result, nil
	}
	if event.Type != payment.EventCheckoutSessionCompleted || event.Session == nil {
		result.Outcome = OutcomeIgnored
		return result, nil
	}

	cs := event.Session
	result.SessionID = cs.SessionID

	if s.marker != nil {
		done, err := s.marker.IsFulfilled(ctx, cs.SessionID)
		if err != nil {
			log.Printf("Warning: %v", err)
		} else if done {
			log.Printf("Session %s already fulfilled (cache)", cs.SessionID)
			result.Outcome = OutcomeDuplicate
			return result, nil
		}
	}

	order, created, err := s.orderRepo.Upsert(ctx, canonicalOrder(cs))
	if err != nil {
		return nil, err
	}
	result.OrderID = order.ID
	if created {
		log.Printf("Order %s created from payment event for session %s", order.ID, cs.SessionID)
	}
	if order.IsCompleted() {
		log.Printf("Session %s already fulfilled by order %s", cs.SessionID, order.ID)
		result.Outcome = OutcomeDuplicate
		return result, nil
	}
	if order.CustomerEmail == "" {
		order.CustomerEmail = cs.CustomerEmail
	}

	// Stored outside the fulfillment transaction so a paid order that cannot
	// be fulfilled yet still shows as paid for ReprocessOrder.
	info := paymentInfo(cs)
	if err := s.orderRepo.UpdatePayment(ctx, cs.SessionID, info); err != nil {
		return nil, err
	}
	if cs.PaymentStatus != models.PaymentStatusPaid {
		log.Printf("Order %s awaiting payment (status %q)", order.ID, cs.PaymentStatus)
		result.Outcome = OutcomeAwaitingPayment
		return result, nil
	}

	outcome, err := s.complete(ctx, order, info)
	if err != nil && outcome != OutcomeInsufficientInventory {
		return nil, err
	}
	result.Outcome = outcome
	return result, nil
}

// ReprocessOrder finishes a paid order that is still pending, typically after
// its SKU's license pool was replenished.
func (s *FulfillmentService) ReprocessOrder(ctx context.Context, sessionID string) (*FulfillmentResult, error) {
	order, err := s.orderRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	result := &FulfillmentResult{SessionID: sessionID, OrderID: order.ID}
	if order.IsCompleted() {
		result.Outcome = OutcomeDuplicate
		return result, nil
	}
	if order.Payment.Status != models.PaymentStatusPaid {
		result.Outcome = OutcomeAwaitingPayment
		return result, apperrors.InvalidRequest("order is not paid", "payment status is "+quoteOrEmpty(order.Payment.Status))
	}

	outcome, err := s.complete(ctx, order, order.Payment)
	result.Outcome = outcome
	s.metrics.Fulfillments.WithLabelValues(string(outcome)).Inc()
	if err != nil {
		return result, err
	}
	return result, nil
}

// complete runs the fulfillment transaction and then the best-effort side
// effects. The conditional status update comes first so that of several
// concurrent deliveries only one gets to allocate.
func (s *FulfillmentService) complete(ctx context.Context, order *models.Order, info models.PaymentInfo) (Outcome, error) {
	var (
		outbox    *models.Notification
		allocated int
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.orderRepo.MarkCompleted(ctx, order.CheckoutSessionID, info); err != nil {
			return err
		}
		for _, item := range order.Items {
			keys, err := s.licenseRepo.Allocate(ctx, item.SKUID, item.Quantity, order.ID)
			if err != nil {
				return err
			}
			if err := s.orderRepo.SetItemLicenses(ctx, item.ID, keys); err != nil {
				return err
			}
			allocated += len(keys)
		}

		outbox = &models.Notification{
			OrderID:    order.ID,
			TemplateID: s.cfg.SuccessTemplate,
			Recipient:  order.CustomerEmail,
			Variables: map[string]string{
				"orderId":   order.ID,
				"orderLink": s.cfg.OrderLinkBaseURL + order.ID,
			},
		}
		return s.outbox.Enqueue(ctx, outbox)
	})

	switch {
	case errors.Is(err, repositories.ErrOrderAlreadyCompleted):
		log.Printf("Session %s completed concurrently, skipping", order.CheckoutSessionID)
		return OutcomeDuplicate, nil
	case errors.Is(err, apperrors.ErrInsufficientInventory):
		log.Printf("ALERT: order %s (session %s) is paid but cannot be fulfilled: %v", order.ID, order.CheckoutSessionID, err)
		return OutcomeInsufficientInventory, err
	case err != nil:
		return "", err
	}

	s.metrics.LicensesAllocated.Add(float64(allocated))
	log.Printf("Order %s completed, %d licenses allocated", order.ID, allocated)
	s.afterCommit(ctx, order, outbox, allocated)
	return OutcomeCompleted, nil
}

// afterCommit never fails the fulfillment: the order is already complete.
func (s *FulfillmentService) afterCommit(ctx context.Context, order *models.Order, outbox *models.Notification, allocated int) {
	if s.marker != nil {
		if err := s.marker.MarkFulfilled(ctx, order.CheckoutSessionID, order.ID); err != nil {
			log.Printf("Warning: %v", err)
		}
	}

	if s.events != nil {
		err := s.events.PublishOrderCompleted(map[string]interface{}{
			"orderID":   order.ID,
			"sessionID": order.CheckoutSessionID,
			"userID":    order.UserID,
			"licenses":  allocated,
			"total":     order.Total().StringFixed(2),
		})
		if err != nil {
			log.Printf("Warning: Failed to publish order completed event for order %s: %v", order.ID, err)
		}
	}

	if outbox.ID == 0 {
		// Enqueue found an existing row; the relay owns it.
		return
	}
	if err := s.notifier.Deliver(ctx, outbox); err != nil {
		log.Printf("Notification for order %s left for the relay: %v", order.ID, err)
	}
}

func canonicalOrder(cs *payment.CompletedSession) *models.Order {
	items := make([]models.OrderItem, 0, len(cs.Items))
	for _, it := range cs.Items {
		items = append(items, models.OrderItem{
			ProductID: it.ProductID,
			SKUID:     it.SKUID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return &models.Order{
		CheckoutSessionID: cs.SessionID,
		UserID:            cs.UserID,
		CustomerEmail:     cs.CustomerEmail,
		Items:             items,
		Payment:           paymentInfo(cs),
		Status:            models.OrderStatusPending,
	}
}

func paymentInfo(cs *payment.CompletedSession) models.PaymentInfo {
	info := models.PaymentInfo{
		Method:   cs.PaymentMethod,
		IntentID: cs.PaymentIntentID,
		Amount:   cs.Amount,
		Currency: cs.Currency,
		Status:   cs.PaymentStatus,
	}
	if cs.PaymentStatus == models.PaymentStatusPaid {
		paidAt := cs.CreatedAt
		if paidAt.IsZero() {
			paidAt = time.Now().UTC()
		}
		info.PaidAt = &paidAt
	}
	return info
}

func quoteOrEmpty(s string) string {
	if s == "" {
		return "empty"
	}
	return `"` + s + `"`
}
