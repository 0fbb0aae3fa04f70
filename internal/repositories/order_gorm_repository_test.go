package repositories_test

import (
	"context"
	"testing"
	"time"

	"digizone/internal/apperrors"
	"digizone/internal/models"
	"digizone/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingOrder(sessionID string) *models.Order {
	return &models.Order{
		CheckoutSessionID: sessionID,
		UserID:            "user-1",
		CustomerEmail:     "buyer@example.com",
		Items: []models.OrderItem{
			{ProductID: "prod-1", SKUID: "sku-1", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
			{ProductID: "prod-2", SKUID: "sku-2", Quantity: 1, UnitPrice: decimal.RequireFromString("5.50")},
		},
	}
}

func TestOrderRepository_UpsertIsIdempotentOnSession(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()

	first, created, err := s.orders.Upsert(ctx, newPendingOrder("cs_1"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.OrderStatusPending, first.Status)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "sku-1", first.Items[0].SKUID)
	assert.True(t, first.Total().Equal(decimal.RequireFromString("25.50")))

	again := newPendingOrder("cs_1")
	again.UserID = "someone-else"
	second, created, err := s.orders.Upsert(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "user-1", second.UserID)
	assert.Len(t, second.Items, 2)

	var count int64
	require.NoError(t, s.db.Model(&models.Order{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestOrderRepository_UpsertRequiresSession(t *testing.T) {
	s := newStores(t)

	_, _, err := s.orders.Upsert(context.Background(), &models.Order{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestOrderRepository_MarkCompletedOnlyOnce(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	order, _, err := s.orders.Upsert(ctx, newPendingOrder("cs_1"))
	require.NoError(t, err)

	paidAt := time.Now().UTC()
	payment := models.PaymentInfo{
		Method:   "card",
		IntentID: "pi_1",
		Amount:   decimal.RequireFromString("25.50"),
		Currency: "usd",
		Status:   models.PaymentStatusPaid,
		PaidAt:   &paidAt,
	}
	require.NoError(t, s.orders.MarkCompleted(ctx, "cs_1", payment))
	assert.ErrorIs(t, s.orders.MarkCompleted(ctx, "cs_1", payment), repositories.ErrOrderAlreadyCompleted)

	stored, err := s.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsCompleted())
	assert.True(t, stored.Delivered)
	assert.Equal(t, "pi_1", stored.Payment.IntentID)
	assert.True(t, stored.Payment.Amount.Equal(payment.Amount))
	require.NotNil(t, stored.Payment.PaidAt)
}

func TestOrderRepository_UpdatePaymentIgnoresCompletedOrders(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	_, _, err := s.orders.Upsert(ctx, newPendingOrder("cs_1"))
	require.NoError(t, err)

	require.NoError(t, s.orders.UpdatePayment(ctx, "cs_1", models.PaymentInfo{Status: "unpaid", IntentID: "pi_1"}))
	stored, err := s.orders.GetBySessionID(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, "unpaid", stored.Payment.Status)

	require.NoError(t, s.orders.MarkCompleted(ctx, "cs_1", models.PaymentInfo{Status: models.PaymentStatusPaid, IntentID: "pi_1"}))
	require.NoError(t, s.orders.UpdatePayment(ctx, "cs_1", models.PaymentInfo{Status: "unpaid"}))

	stored, err = s.orders.GetBySessionID(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, stored.Payment.Status)
}

func TestOrderRepository_SetItemLicenses(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	order, _, err := s.orders.Upsert(ctx, newPendingOrder("cs_1"))
	require.NoError(t, err)

	require.NoError(t, s.orders.SetItemLicenses(ctx, order.Items[0].ID, []string{"A", "B"}))

	stored, err := s.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, stored.Items[0].Licenses)
	assert.Empty(t, stored.Items[1].Licenses)

	err = s.orders.SetItemLicenses(ctx, 9999, []string{"C"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOrderRepository_ListFilters(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	_, _, err := s.orders.Upsert(ctx, newPendingOrder("cs_1"))
	require.NoError(t, err)
	other := newPendingOrder("cs_2")
	other.UserID = "user-2"
	_, _, err = s.orders.Upsert(ctx, other)
	require.NoError(t, err)
	require.NoError(t, s.orders.MarkCompleted(ctx, "cs_2", models.PaymentInfo{Status: models.PaymentStatusPaid}))

	all, err := s.orders.List(ctx, repositories.OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := s.orders.List(ctx, repositories.OrderFilter{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "cs_1", mine[0].CheckoutSessionID)

	completed, err := s.orders.List(ctx, repositories.OrderFilter{Status: models.OrderStatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "cs_2", completed[0].CheckoutSessionID)
}

func TestOrderRepository_GetMissing(t *testing.T) {
	s := newStores(t)

	_, err := s.orders.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
