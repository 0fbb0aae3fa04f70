package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"digizone/internal/apperrors"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeProvider implements Provider with Stripe Checkout.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

// NewStripeProvider creates a new instance of StripeProvider.
func NewStripeProvider(secretKey, webhookSecret string) *StripeProvider {
	return &StripeProvider{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
	}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	items := make([]Item, 0, len(req.Lines))
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Lines))
	for _, line := range req.Lines {
		items = append(items, line.Item)
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(line.PriceID),
			Quantity: stripe.Int64(int64(line.Quantity)),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		ClientReferenceID:  stripe.String(req.UserID),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for k, v := range EncodeMetadata(req.UserID, req.CustomerEmail, items) {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create stripe checkout session: %w", err)
	}
	return &Session{ID: s.ID, RedirectURL: s.URL}, nil
}

func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, apperrors.InvalidSignature(err)
	}

	out := &Event{ID: event.ID, Type: string(event.Type)}
	if out.Type != EventCheckoutSessionCompleted {
		return out, nil
	}
	// A signed event that cannot be decoded will not decode on redelivery
	// either, so it is handed back as malformed instead of failing.
	if event.Data == nil {
		out.Malformed = "event carries no data"
		return out, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		out.Malformed = fmt.Sprintf("undecodable checkout session: %v", err)
		return out, nil
	}
	session, err := completedSession(&cs, event.Created)
	if err != nil {
		out.Malformed = err.Error()
		return out, nil
	}
	out.Session = session
	return out, nil
}

func completedSession(cs *stripe.CheckoutSession, created int64) (*CompletedSession, error) {
	if cs.ID == "" {
		return nil, errors.New("session id is missing")
	}
	userID, email, items, err := DecodeMetadata(cs.Metadata)
	if err != nil {
		return nil, fmt.Errorf("session %s: malformed checkout metadata: %w", cs.ID, err)
	}

	if cs.CustomerDetails != nil && cs.CustomerDetails.Email != "" {
		email = cs.CustomerDetails.Email
	} else if cs.CustomerEmail != "" {
		email = cs.CustomerEmail
	}

	out := &CompletedSession{
		SessionID:     cs.ID,
		UserID:        userID,
		CustomerEmail: email,
		Items:         items,
		PaymentStatus: string(cs.PaymentStatus),
		PaymentMethod: strings.Join(cs.PaymentMethodTypes, ","),
		Amount:        decimal.New(cs.AmountTotal, -2),
		Currency:      string(cs.Currency),
		CreatedAt:     time.Unix(created, 0).UTC(),
	}
	if cs.PaymentIntent != nil {
		out.PaymentIntentID = cs.PaymentIntent.ID
	}
	return out, nil
}
