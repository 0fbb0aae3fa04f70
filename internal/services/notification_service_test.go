package services_test

import (
	"context"
	"errors"
	"testing"

	"digizone/internal/models"
	"digizone/internal/repositories"
	"digizone/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enqueue(t *testing.T, h *fulfillmentHarness, orderID, recipient string) *models.Notification {
	t.Helper()
	n := &models.Notification{
		OrderID:    orderID,
		TemplateID: "order-success",
		Recipient:  recipient,
		Variables:  map[string]string{"orderId": orderID},
	}
	require.NoError(t, h.outbox.Enqueue(context.Background(), n))
	return n
}

func TestNotificationService_RelaySkipsClaimedNotification(t *testing.T) {
	h := newFulfillmentHarness(t, nil)
	ctx := context.Background()
	n := enqueue(t, h, "order-1", "buyer@example.com")

	// Another sender is delivering it right now.
	ok, err := h.outbox.Claim(ctx, n.ID)
	require.NoError(t, err)
	require.True(t, ok)

	sent, err := h.notifier.DeliverPending(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, sent)

	err = h.notifier.Deliver(ctx, n)
	assert.ErrorIs(t, err, services.ErrNotificationClaimed)
	assert.Empty(t, h.dispatcher.Sent())
}

func TestNotificationService_DeliverSendsOnce(t *testing.T) {
	h := newFulfillmentHarness(t, nil)
	ctx := context.Background()
	n := enqueue(t, h, "order-1", "buyer@example.com")

	require.NoError(t, h.notifier.Deliver(ctx, n))
	assert.ErrorIs(t, h.notifier.Deliver(ctx, n), services.ErrNotificationClaimed)

	sent, err := h.notifier.DeliverPending(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Len(t, h.dispatcher.Sent(), 1)
}

func TestNotificationService_AbandonsMissingRecipient(t *testing.T) {
	h := newFulfillmentHarness(t, nil)
	ctx := context.Background()
	enqueue(t, h, "order-1", "")

	sent, err := h.notifier.DeliverPending(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, sent)

	pending, err := h.outbox.FetchPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Empty(t, h.dispatcher.Sent())
}

func TestNotificationService_StopsRetryingAfterMaxAttempts(t *testing.T) {
	h := newFulfillmentHarness(t, nil)
	ctx := context.Background()
	n := enqueue(t, h, "order-1", "buyer@example.com")
	h.dispatcher.Fail(errors.New("mailer down"))

	for i := 0; i < repositories.MaxNotificationAttempts+2; i++ {
		sent, err := h.notifier.DeliverPending(ctx, 10)
		require.NoError(t, err)
		assert.Zero(t, sent)
	}

	var stored models.Notification
	require.NoError(t, h.db.First(&stored, n.ID).Error)
	assert.Equal(t, models.NotificationFailed, stored.Status)
	assert.Equal(t, repositories.MaxNotificationAttempts, stored.Attempts)
	assert.Equal(t, "mailer down", stored.LastError)
}
