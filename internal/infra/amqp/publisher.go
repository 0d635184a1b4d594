package amqp

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends JSON events to durable queues on the default exchange.
type Publisher struct {
	conn    *amqp.Connection
	channel channel

	mu       sync.Mutex
	declared map[string]bool
	now      func() time.Time
}

// Dial connects to the broker at url and opens one channel.
func Dial(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p := newPublisher(ch)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel) *Publisher {
	return &Publisher{channel: ch, declared: make(map[string]bool), now: time.Now}
}

// Publish declares queueName once and sends body to it.
func (p *Publisher) Publish(ctx context.Context, queueName string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.declared[queueName] {
		if _, err := p.channel.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", queueName, err)
		}
		p.declared[queueName] = true
	}
	err := p.channel.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Timestamp:    p.now(),
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queueName, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
