package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var ErrChannelClosed = errors.New("mq: channel not available")

// RabbitMQ holds one connection and one channel used for publishing.
type RabbitMQ struct {
	url    string
	log    *zap.Logger
	mu     sync.RWMutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

// Dial connects with capped exponential backoff until maxAttempts is reached
// or ctx ends.
func Dial(ctx context.Context, url string, maxAttempts int, log *zap.Logger) (*RabbitMQ, error) {
	mq := &RabbitMQ{url: url, log: log}
	delay := time.Second
	for attempt := 1; ; attempt++ {
		err := mq.connect()
		if err == nil {
			log.Info("rabbitmq connected", zap.Int("attempt", attempt))
			return mq, nil
		}
		log.Warn("rabbitmq connect failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)
		if attempt >= maxAttempts {
			return nil, fmt.Errorf("rabbitmq: giving up after %d attempts: %w", attempt, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*3/2, 30*time.Second)
	}
}

func (mq *RabbitMQ) connect() error {
	conn, err := amqp.Dial(mq.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	mq.mu.Lock()
	mq.conn, mq.ch = conn, ch
	mq.mu.Unlock()
	return nil
}

// DeclareTopic declares a durable topic exchange.
func (mq *RabbitMQ) DeclareTopic(name string) error {
	ch := mq.channel()
	if ch == nil {
		return ErrChannelClosed
	}
	if err := ch.ExchangeDeclare(name, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", name, err)
	}
	return nil
}

func (mq *RabbitMQ) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	ch := mq.channel()
	if ch == nil {
		return ErrChannelClosed
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
}

func (mq *RabbitMQ) channel() *amqp.Channel {
	mq.mu.RLock()
	defer mq.mu.RUnlock()
	if mq.closed {
		return nil
	}
	return mq.ch
}

func (mq *RabbitMQ) Close() {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	if mq.closed {
		return
	}
	mq.closed = true
	if mq.ch != nil {
		_ = mq.ch.Close()
	}
	if mq.conn != nil {
		_ = mq.conn.Close()
	}
	mq.log.Info("rabbitmq closed")
}
