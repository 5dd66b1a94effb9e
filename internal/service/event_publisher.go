// Package service publishes auth activity events to RabbitMQ. Errors are
// logged and returned so callers can ignore failures without interrupting
// the main request flow.
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/harborhq/harbor/internal/queue"
)

// Publisher pushes AuthEvents onto the auth.audit queue. Messages are
// marked persistent so they survive broker restarts.
type Publisher struct {
	URL string
}

func NewPublisher() *Publisher {
	return &Publisher{URL: queue.BrokerURL()}
}

// PublishAuthEvent declares the durable queue (idempotent) and publishes
// the event. An EventID is assigned if the caller left it empty.
func (p *Publisher) PublishAuthEvent(ctx context.Context, ev queue.AuthEvent) error {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}

	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue.AuditQueue, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", queue.AuditQueue, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
