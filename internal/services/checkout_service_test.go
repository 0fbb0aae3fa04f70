package services_test

import (
	"context"
	"errors"
	"testing"

	"digizone/internal/apperrors"
	"digizone/internal/metrics"
	"digizone/internal/models"
	"digizone/internal/payment"
	"digizone/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var buyer = models.Identity{UserID: "user-1", Email: "buyer@example.com", Role: models.RoleCustomer}

func testProduct() *models.Product {
	return &models.Product{
		ID:   "prod-1",
		Name: "Antivirus Pro",
		SKUs: []models.SKU{
			{ID: "sku-1y", ProductID: "prod-1", Name: "1 year", Price: decimal.RequireFromString("19.99"), ProviderPriceID: "price_1y"},
			{ID: "sku-life", ProductID: "prod-1", Name: "Lifetime", Price: decimal.RequireFromString("99.00"), Lifetime: true, ProviderPriceID: "price_life"},
		},
	}
}

func newCheckoutService() (*services.CheckoutService, *MockProductRepository, *MockOrderRepository, *MockProvider) {
	products := new(MockProductRepository)
	orders := new(MockOrderRepository)
	provider := new(MockProvider)
	svc := services.NewCheckoutService(products, orders, provider, metrics.New(), services.CheckoutConfig{
		SuccessURL:  "https://shop.test/success",
		CancelURL:   "https://shop.test/cancel",
		MaxQuantity: 5,
	})
	return svc, products, orders, provider
}

func TestCheckoutService_InitiateCheckout(t *testing.T) {
	svc, products, orders, provider := newCheckoutService()
	ctx := context.Background()

	products.On("GetByID", ctx, "prod-1").Return(testProduct(), nil).Twice()
	provider.On("CreateCheckoutSession", ctx, mock.MatchedBy(func(req payment.SessionRequest) bool {
		return req.UserID == "user-1" &&
			req.CustomerEmail == "buyer@example.com" &&
			len(req.Lines) == 2 &&
			req.Lines[0].PriceID == "price_1y" && req.Lines[0].Quantity == 2 &&
			req.Lines[1].PriceID == "price_life" && req.Lines[1].SKUID == "sku-life" &&
			req.SuccessURL == "https://shop.test/success"
	})).Return(&payment.Session{ID: "cs_1", RedirectURL: "https://pay.test/cs_1"}, nil).Once()
	orders.On("Upsert", ctx, mock.MatchedBy(func(o *models.Order) bool {
		return o.CheckoutSessionID == "cs_1" &&
			o.Status == models.OrderStatusPending &&
			len(o.Items) == 2 &&
			o.Payment.Amount.Equal(decimal.RequireFromString("138.98"))
	})).Return(&models.Order{ID: "order-1", CheckoutSessionID: "cs_1"}, true, nil).Once()

	result, err := svc.InitiateCheckout(ctx, buyer, services.CheckoutRequest{CheckoutDetails: []services.CheckoutItem{
		{ProductID: "prod-1", SKUID: "sku-1y", Quantity: 2},
		{ProductID: "prod-1", SKUPriceID: "price_life", Quantity: 1},
	}})

	require.NoError(t, err)
	assert.Equal(t, "https://pay.test/cs_1", result.RedirectURL)
	assert.Equal(t, "cs_1", result.SessionID)
	products.AssertExpectations(t)
	provider.AssertExpectations(t)
	orders.AssertExpectations(t)
}

func TestCheckoutService_ValidationHappensFirst(t *testing.T) {
	svc, products, orders, provider := newCheckoutService()

	_, err := svc.InitiateCheckout(context.Background(), buyer, services.CheckoutRequest{CheckoutDetails: []services.CheckoutItem{
		{ProductID: "", SKUID: "sku-1y", Quantity: 1},
		{ProductID: "prod-1", Quantity: 0},
		{ProductID: "prod-1", SKUID: "sku-1y", Quantity: 6},
	}})

	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	violations := apperrors.ViolationsOf(err)
	assert.Contains(t, violations, "checkoutDetails[0].productId is required")
	assert.Contains(t, violations, "checkoutDetails[1].skuId or skuPriceId is required")
	assert.Contains(t, violations, "checkoutDetails[1].quantity must be at least 1")
	assert.Contains(t, violations, "checkoutDetails[2].quantity must be at most 5")
	products.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	provider.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
	orders.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestCheckoutService_EmptyCart(t *testing.T) {
	svc, _, _, _ := newCheckoutService()

	_, err := svc.InitiateCheckout(context.Background(), buyer, services.CheckoutRequest{})
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	assert.Contains(t, apperrors.ViolationsOf(err), "checkoutDetails must not be empty")
}

func TestCheckoutService_TooManyLines(t *testing.T) {
	svc, _, _, _ := newCheckoutService()
	details := make([]services.CheckoutItem, services.MaxCheckoutLines+1)
	for i := range details {
		details[i] = services.CheckoutItem{ProductID: "prod-1", SKUID: "sku-1y", Quantity: 1}
	}

	_, err := svc.InitiateCheckout(context.Background(), buyer, services.CheckoutRequest{CheckoutDetails: details})
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	assert.Contains(t, apperrors.ViolationsOf(err), "checkoutDetails must contain at most 20 lines")
}

func TestCheckoutService_UnknownProduct(t *testing.T) {
	svc, products, _, provider := newCheckoutService()
	ctx := context.Background()
	products.On("GetByID", ctx, "missing").Return(nil, apperrors.NotFound("product with ID missing not found")).Once()

	_, err := svc.InitiateCheckout(ctx, buyer, services.CheckoutRequest{CheckoutDetails: []services.CheckoutItem{
		{ProductID: "missing", SKUID: "sku-1y", Quantity: 1},
	}})

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	provider.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
}

func TestCheckoutService_SKUResolution(t *testing.T) {
	cases := []struct {
		name   string
		detail services.CheckoutItem
	}{
		{"unknown sku", services.CheckoutItem{ProductID: "prod-1", SKUID: "sku-other", Quantity: 1}},
		{"unknown price", services.CheckoutItem{ProductID: "prod-1", SKUPriceID: "price_other", Quantity: 1}},
		{"contradicting price", services.CheckoutItem{ProductID: "prod-1", SKUID: "sku-1y", SKUPriceID: "price_life", Quantity: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, products, _, provider := newCheckoutService()
			ctx := context.Background()
			products.On("GetByID", ctx, "prod-1").Return(testProduct(), nil).Once()

			_, err := svc.InitiateCheckout(ctx, buyer, services.CheckoutRequest{CheckoutDetails: []services.CheckoutItem{tc.detail}})

			assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
			provider.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
		})
	}
}

func TestCheckoutService_ProductWithoutSKUs(t *testing.T) {
	svc, products, _, _ := newCheckoutService()
	ctx := context.Background()
	products.On("GetByID", ctx, "prod-1").Return(&models.Product{ID: "prod-1"}, nil).Once()

	_, err := svc.InitiateCheckout(ctx, buyer, services.CheckoutRequest{CheckoutDetails: []services.CheckoutItem{
		{ProductID: "prod-1", SKUID: "sku-1y", Quantity: 1},
	}})
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestCheckoutService_ProviderFailure(t *testing.T) {
	svc, products, orders, provider := newCheckoutService()
	ctx := context.Background()
	products.On("GetByID", ctx, "prod-1").Return(testProduct(), nil).Once()
	provider.On("CreateCheckoutSession", ctx, mock.Anything).Return(nil, errors.New("timeout")).Once()

	_, err := svc.InitiateCheckout(ctx, buyer, services.CheckoutRequest{CheckoutDetails: []services.CheckoutItem{
		{ProductID: "prod-1", SKUID: "sku-1y", Quantity: 1},
	}})

	assert.Equal(t, apperrors.KindFatal, apperrors.KindOf(err))
	orders.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestCheckoutService_PrecreateFailureStillRedirects(t *testing.T) {
	svc, products, orders, provider := newCheckoutService()
	ctx := context.Background()
	products.On("GetByID", ctx, "prod-1").Return(testProduct(), nil).Once()
	provider.On("CreateCheckoutSession", ctx, mock.Anything).Return(&payment.Session{ID: "cs_1", RedirectURL: "https://pay.test/cs_1"}, nil).Once()
	orders.On("Upsert", ctx, mock.Anything).Return(nil, false, errors.New("db down")).Once()

	result, err := svc.InitiateCheckout(ctx, buyer, services.CheckoutRequest{CheckoutDetails: []services.CheckoutItem{
		{ProductID: "prod-1", SKUID: "sku-1y", Quantity: 1},
	}})

	require.NoError(t, err)
	assert.Equal(t, "cs_1", result.SessionID)
}
