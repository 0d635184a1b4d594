package amqp

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type fakeChannel struct {
	declared   []string
	published  []amqp.Publishing
	keys       []string
	declareErr error
	closed     bool
}

func (f *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	if f.declareErr != nil {
		return amqp.Queue{}, f.declareErr
	}
	if !durable {
		return amqp.Queue{}, errors.New("queue must be durable")
	}
	f.declared = append(f.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if exchange != "" {
		return errors.New("unexpected exchange")
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublishDeclaresQueueOnce(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch)
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	for i := 0; i < 3; i++ {
		if err := p.Publish(context.Background(), "quiz.events", []byte(`{"type":"session.created"}`)); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	if len(ch.declared) != 1 || ch.declared[0] != "quiz.events" {
		t.Fatalf("expected a single declare of quiz.events, got %v", ch.declared)
	}
	if len(ch.published) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(ch.published))
	}
	msg := ch.published[0]
	if msg.ContentType != "application/json" || msg.DeliveryMode != amqp.Persistent {
		t.Fatalf("unexpected message properties: %+v", msg)
	}
	if !msg.Timestamp.Equal(fixed) || ch.keys[0] != "quiz.events" {
		t.Fatalf("unexpected timestamp or routing key: %v %s", msg.Timestamp, ch.keys[0])
	}
}

func TestPublishReportsDeclareFailure(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("channel closed")}
	p := newPublisher(ch)
	if err := p.Publish(context.Background(), "quiz.events", []byte(`{}`)); err == nil {
		t.Fatalf("expected declare failure")
	}
	if len(ch.published) != 0 {
		t.Fatalf("nothing should be published after a failed declare")
	}
	if err := p.Close(); err != nil || !ch.closed {
		t.Fatalf("close: %v closed=%v", err, ch.closed)
	}
}
