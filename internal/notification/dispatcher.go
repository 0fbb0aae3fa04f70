package notification

import (
	"context"
	"fmt"
	"log"
	"time"

	"digizone/pkg/rabbitmq"
)

// Dispatcher sends a templated email.
type Dispatcher interface {
	Send(ctx context.Context, to, templateID string, variables map[string]string) error
}

// Publisher is the part of the RabbitMQ client the queue dispatcher needs.
type Publisher interface {
	PublishJSON(queue, eventType string, payload interface{}) error
}

// Message is the body placed on the email queue for the mailer.
type Message struct {
	To         string            `json:"to"`
	TemplateID string            `json:"template_id"`
	Variables  map[string]string `json:"variables"`
	QueuedAt   time.Time         `json:"queued_at"`
}

// QueueDispatcher hands emails to the mailer through RabbitMQ.
type QueueDispatcher struct {
	publisher Publisher
}

// NewQueueDispatcher creates a new instance of QueueDispatcher.
func NewQueueDispatcher(publisher Publisher) *QueueDispatcher {
	return &QueueDispatcher{publisher: publisher}
}

func (d *QueueDispatcher) Send(ctx context.Context, to, templateID string, variables map[string]string) error {
	if to == "" {
		return fmt.Errorf("email %s has no recipient", templateID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := Message{
		To:         to,
		TemplateID: templateID,
		Variables:  variables,
		QueuedAt:   time.Now().UTC(),
	}
	if err := d.publisher.PublishJSON(rabbitmq.EmailQueue, "email.send", msg); err != nil {
		return fmt.Errorf("failed to queue email %s for %s: %w", templateID, to, err)
	}
	return nil
}

// LogDispatcher only logs; used when no broker is configured.
type LogDispatcher struct{}

func (LogDispatcher) Send(_ context.Context, to, templateID string, variables map[string]string) error {
	if to == "" {
		return fmt.Errorf("email %s has no recipient", templateID)
	}
	log.Printf("Email %s to %s with variables %v (no broker configured)", templateID, to, variables)
	return nil
}
