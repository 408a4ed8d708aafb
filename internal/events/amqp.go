package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQP publishes events as persistent JSON messages to a durable queue on the
// default exchange. The connection is opened lazily and reopened after the
// broker drops it.
type AMQP struct {
	url   string
	queue string
	cfg   amqp.Config
	log   *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQP bounds the TCP connect and the AMQP handshake by dialTimeout.
func NewAMQP(url, queue string, dialTimeout time.Duration, l *zap.Logger) *AMQP {
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	return &AMQP{
		url:   url,
		queue: queue,
		cfg: amqp.Config{
			Heartbeat: 10 * time.Second,
			Locale:    "en_US",
			Dial:      amqp.DefaultDial(dialTimeout),
		},
		log: l.Named("events"),
	}
}

const defaultDialTimeout = 5 * time.Second

func (p *AMQP) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.closeLocked()

	conn, err := amqp.DialConfig(p.url, p.cfg)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp queue declare %s: %w", p.queue, err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQP) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(ev.Type),
		Body:         body,
	})
	if err != nil {
		p.closeLocked()
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

func (p *AMQP) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func (p *AMQP) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

// Logged wraps a Publisher so failures are logged and swallowed; events never
// fail the operation that raised them.
type Logged struct {
	Next Publisher
	Log  *zap.Logger
}

func (l Logged) Publish(ctx context.Context, ev Event) error {
	if err := l.Next.Publish(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
		l.Log.Warn("event publish failed",
			zap.String("type", string(ev.Type)),
			zap.Int64("request_id", ev.RequestID),
			zap.Error(err))
	}
	return nil
}
