package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"digizone/internal/apperrors"
	"digizone/internal/models"
	"digizone/internal/payment"
	"digizone/internal/repositories"

	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

// MockOrderRepository is a mock implementation of repositories.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Upsert(ctx context.Context, order *models.Order) (*models.Order, bool, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Order), args.Bool(1), args.Error(2)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, filter repositories.OrderFilter) ([]models.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdatePayment(ctx context.Context, sessionID string, p models.PaymentInfo) error {
	args := m.Called(ctx, sessionID, p)
	return args.Error(0)
}

func (m *MockOrderRepository) MarkCompleted(ctx context.Context, sessionID string, p models.PaymentInfo) error {
	args := m.Called(ctx, sessionID, p)
	return args.Error(0)
}

func (m *MockOrderRepository) SetItemLicenses(ctx context.Context, itemID uint, licenses []string) error {
	args := m.Called(ctx, itemID, licenses)
	return args.Error(0)
}

// MockProvider is a mock implementation of payment.Provider for checkout.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) CreateCheckoutSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Session), args.Error(1)
}

func (m *MockProvider) ParseWebhook(payload []byte, signature string) (*payment.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Event), args.Error(1)
}

const validSignature = "valid-signature"

// fakeProvider accepts payloads that are JSON encoded payment.Events signed
// with validSignature.
type fakeProvider struct{}

func (fakeProvider) CreateCheckoutSession(context.Context, payment.SessionRequest) (*payment.Session, error) {
	return nil, errors.New("not supported")
}

func (fakeProvider) ParseWebhook(payload []byte, signature string) (*payment.Event, error) {
	if signature != validSignature {
		return nil, apperrors.InvalidSignature(errors.New("signature mismatch"))
	}
	var event payment.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, apperrors.InvalidRequest("malformed event", err.Error())
	}
	return &event, nil
}

type sentEmail struct {
	To         string
	TemplateID string
	Variables  map[string]string
}

// recordingDispatcher remembers every email it was asked to send.
type recordingDispatcher struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (d *recordingDispatcher) Send(_ context.Context, to, templateID string, variables map[string]string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, sentEmail{To: to, TemplateID: templateID, Variables: variables})
	return nil
}

func (d *recordingDispatcher) Sent() []sentEmail {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]sentEmail(nil), d.sent...)
}

func (d *recordingDispatcher) Fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []map[string]interface{}
}

func (p *recordingPublisher) PublishOrderCompleted(orderData map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, orderData)
	return nil
}

func (p *recordingPublisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}
