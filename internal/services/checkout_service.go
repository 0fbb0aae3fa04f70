package services

import (
	"context"
	"fmt"
	"log"

	"digizone/internal/apperrors"
	"digizone/internal/metrics"
	"digizone/internal/models"
	"digizone/internal/payment"
	"digizone/internal/repositories"

	"github.com/shopspring/decimal"
)

// CheckoutConfig holds the checkout settings read from configuration.
type CheckoutConfig struct {
	SuccessURL  string
	CancelURL   string
	MaxQuantity int
}

// CheckoutResult tells the client where to pay.
type CheckoutResult struct {
	RedirectURL string `json:"redirectUrl"`
	SessionID   string `json:"sessionId"`
}

// CheckoutService turns a cart into a provider checkout session.
type CheckoutService struct {
	productRepo repositories.ProductRepository
	orderRepo   repositories.OrderRepository
	provider    payment.Provider
	metrics     *metrics.Metrics
	cfg         CheckoutConfig
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(productRepo repositories.ProductRepository, orderRepo repositories.OrderRepository, provider payment.Provider, m *metrics.Metrics, cfg CheckoutConfig) *CheckoutService {
	// A larger quantity would not survive the provider metadata round trip.
	if cfg.MaxQuantity > payment.MaxLineQuantity {
		cfg.MaxQuantity = payment.MaxLineQuantity
	}
	return &CheckoutService{
		productRepo: productRepo,
		orderRepo:   orderRepo,
		provider:    provider,
		metrics:     m,
		cfg:         cfg,
	}
}

// InitiateCheckout validates the cart, resolves each line to a SKU, opens a
// provider session and pre-creates the pending order for it. Inventory is
// not touched until payment completes.
func (s *CheckoutService) InitiateCheckout(ctx context.Context, identity models.Identity, req CheckoutRequest) (*CheckoutResult, error) {
	result, err := s.initiate(ctx, identity, req)
	if err != nil {
		s.metrics.Checkouts.WithLabelValues(string(apperrors.KindOf(err))).Inc()
		return nil, err
	}
	s.metrics.Checkouts.WithLabelValues("created").Inc()
	return result, nil
}

func (s *CheckoutService) initiate(ctx context.Context, identity models.Identity, req CheckoutRequest) (*CheckoutResult, error) {
	if err := ValidateCheckoutRequest(req, s.cfg.MaxQuantity); err != nil {
		return nil, err
	}

	lines := make([]payment.LineItem, 0, len(req.CheckoutDetails))
	for i, detail := range req.CheckoutDetails {
		product, err := s.productRepo.GetByID(ctx, detail.ProductID)
		if err != nil {
			return nil, err
		}
		sku, err := resolveSKU(product, detail, i)
		if err != nil {
			return nil, err
		}
		lines = append(lines, payment.LineItem{
			Item: payment.Item{
				ProductID: product.ID,
				SKUID:     sku.ID,
				Quantity:  detail.Quantity,
				UnitPrice: sku.Price,
			},
			PriceID: sku.ProviderPriceID,
		})
	}

	session, err := s.provider.CreateCheckoutSession(ctx, payment.SessionRequest{
		UserID:        identity.UserID,
		CustomerEmail: identity.Email,
		Lines:         lines,
		SuccessURL:    s.cfg.SuccessURL,
		CancelURL:     s.cfg.CancelURL,
	})
	if err != nil {
		return nil, apperrors.Fatal("payment provider unavailable", err)
	}

	s.precreateOrder(ctx, identity, session.ID, lines)

	return &CheckoutResult{RedirectURL: session.RedirectURL, SessionID: session.ID}, nil
}

// precreateOrder stores the pending order for the session. The completion
// webhook creates it lazily when this fails, so failures are only logged.
func (s *CheckoutService) precreateOrder(ctx context.Context, identity models.Identity, sessionID string, lines []payment.LineItem) {
	items := make([]models.OrderItem, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			SKUID:     line.SKUID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	order, _, err := s.orderRepo.Upsert(ctx, &models.Order{
		CheckoutSessionID: sessionID,
		UserID:            identity.UserID,
		CustomerEmail:     identity.Email,
		Items:             items,
		Payment:           models.PaymentInfo{Amount: total},
		Status:            models.OrderStatusPending,
	})
	if err != nil {
		log.Printf("Warning: failed to pre-create order for session %s: %v", sessionID, err)
		return
	}
	log.Printf("Checkout session %s opened for user %s (order %s, total %s)", sessionID, identity.UserID, order.ID, total.StringFixed(2))
}

func resolveSKU(product *models.Product, detail CheckoutItem, line int) (*models.SKU, error) {
	if len(product.SKUs) == 0 {
		return nil, apperrors.InvalidRequest("invalid checkout request", fmt.Sprintf("checkoutDetails[%d]: product %s has no SKUs", line, product.ID))
	}

	var sku *models.SKU
	if detail.SKUID != "" {
		sku = product.FindSKU(detail.SKUID)
		if sku == nil {
			return nil, apperrors.InvalidRequest("invalid checkout request", fmt.Sprintf("checkoutDetails[%d]: sku %s does not belong to product %s", line, detail.SKUID, product.ID))
		}
		if detail.SKUPriceID != "" && detail.SKUPriceID != sku.ProviderPriceID {
			return nil, apperrors.InvalidRequest("invalid checkout request", fmt.Sprintf("checkoutDetails[%d]: price %s does not match sku %s", line, detail.SKUPriceID, sku.ID))
		}
	} else {
		sku = product.FindSKUByPriceID(detail.SKUPriceID)
		if sku == nil {
			return nil, apperrors.InvalidRequest("invalid checkout request", fmt.Sprintf("checkoutDetails[%d]: price %s does not belong to product %s", line, detail.SKUPriceID, product.ID))
		}
	}

	if sku.ProviderPriceID == "" {
		return nil, apperrors.InvalidRequest("invalid checkout request", fmt.Sprintf("checkoutDetails[%d]: sku %s is not purchasable", line, sku.ID))
	}
	return sku, nil
}
