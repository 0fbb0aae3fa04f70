package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// EventCheckoutSessionCompleted is the only event type fulfillment acts on.
const EventCheckoutSessionCompleted = "checkout.session.completed"

// Provider is the hosted-checkout payment provider.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error)
	// ParseWebhook verifies the signature header against the raw payload and
	// decodes the event. It never trusts an unverified payload.
	ParseWebhook(payload []byte, signature string) (*Event, error)
}

// Item is one purchased line as carried through the provider round trip.
type Item struct {
	ProductID string
	SKUID     string
	Quantity  int
	UnitPrice decimal.Decimal
}

// LineItem is an Item plus the provider price it is charged at.
type LineItem struct {
	Item
	PriceID string
}

type SessionRequest struct {
	UserID        string
	CustomerEmail string
	Lines         []LineItem
	SuccessURL    string
	CancelURL     string
}

type Session struct {
	ID          string
	RedirectURL string
}

// Event is a verified webhook event. Session is set only for
// EventCheckoutSessionCompleted; Malformed explains why it is missing from a
// completion event, e.g. a session not opened by this checkout.
type Event struct {
	ID        string
	Type      string
	Session   *CompletedSession
	Malformed string
}

// CompletedSession is everything needed to build the canonical order.
type CompletedSession struct {
	SessionID       string
	UserID          string
	CustomerEmail   string
	Items           []Item
	PaymentStatus   string
	PaymentMethod   string
	PaymentIntentID string
	Amount          decimal.Decimal
	Currency        string
	CreatedAt       time.Time
}
