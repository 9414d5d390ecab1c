package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// Publisher publishes JSON messages to a durable topic exchange. A channel
// closed by the broker is reopened on the next publish.
type Publisher struct {
	conn     *amqp.Connection
	exchange string
	open     func() (channel, error)

	mu      sync.Mutex // amqp channels are not safe for concurrent publishes
	channel channel
}

// Dial connects to the broker and declares the exchange.
func Dial(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	p := &Publisher{conn: conn, exchange: exchange}
	p.open = func() (channel, error) { return openChannel(conn, exchange) }

	ch, err := p.open()
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.channel = ch
	return p, nil
}

func openChannel(conn *amqp.Connection, exchange string) (channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return ch, nil
}

// Publish marshals msg to JSON and publishes it with the given routing key.
// A publish that fails because the channel closed is retried once on a new channel.
func (p *Publisher) Publish(ctx context.Context, routingKey string, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for attempt := 0; ; attempt++ {
		ch, err := p.currentChannel()
		if err != nil {
			return fmt.Errorf("failed to publish %s: %w", routingKey, err)
		}

		err = ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, publishing)
		if err == nil {
			return nil
		}
		if attempt > 0 || !errors.Is(err, amqp.ErrClosed) {
			return fmt.Errorf("failed to publish %s: %w", routingKey, err)
		}
		p.channel = nil
	}
}

// currentChannel returns an open channel, reopening it if needed. p.mu must be held.
func (p *Publisher) currentChannel() (channel, error) {
	if p.channel != nil && !p.channel.IsClosed() {
		return p.channel, nil
	}
	if p.open == nil {
		return nil, amqp.ErrClosed
	}
	ch, err := p.open()
	if err != nil {
		return nil, err
	}
	p.channel = ch
	return ch, nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		if err := p.channel.Close(); err != nil && (p.conn == nil || !p.conn.IsClosed()) && !errors.Is(err, amqp.ErrClosed) {
			return err
		}
		p.channel = nil
	}
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}
