// Package events delivers domain events to the message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"blood-donation-api/internal/domain"
)

// Broker is the part of mq.RabbitMQ the publisher needs.
type Broker interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}

// AMQPPublisher publishes each event to exchange with the event type as the
// routing key.
type AMQPPublisher struct {
	broker   Broker
	exchange string
	log      *zap.Logger
}

func NewAMQPPublisher(b Broker, exchange string, log *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{broker: b, exchange: exchange, log: log}
}

func (p *AMQPPublisher) Publish(ctx context.Context, e domain.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.broker.Publish(ctx, p.exchange, e.Type, body); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	p.log.Debug("event published", zap.String("type", e.Type), zap.String("subject", e.SubjectID))
	return nil
}

type Noop struct{}

func (Noop) Publish(context.Context, domain.Event) error { return nil }
