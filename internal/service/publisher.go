// Package service publishes domain events to RabbitMQ.  Publishing is best
// effort: failures are logged and returned so callers can ignore them
// without interrupting the request.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/school-api/internal/queue"
)

// Publisher sends domain events.
type Publisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

// Nop discards every event.  It is used when events are disabled.
type Nop struct{}

func (Nop) Publish(context.Context, queue.Event) error { return nil }

// DefaultDialTimeout bounds connecting and the AMQP handshake.  Dialing
// happens under the publisher's lock, so it also bounds how long
// concurrent publishes wait on an unreachable broker.
const DefaultDialTimeout = 2 * time.Second

// AMQPPublisher publishes persistent JSON messages to a durable queue on
// the default exchange.  The connection is dialed lazily and redialed
// after the broker closes it.
type AMQPPublisher struct {
	url         string
	queue       string
	log         logrus.FieldLogger
	dialTimeout time.Duration

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url, queueName string, log logrus.FieldLogger) *AMQPPublisher {
	if queueName == "" {
		queueName = queue.DefaultQueue
	}
	return &AMQPPublisher{url: url, queue: queueName, log: log, dialTimeout: DefaultDialTimeout}
}

// Publish sends ev.  Errors are logged at warn level before being returned.
func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.Event) error {
	if err := p.publish(ctx, ev); err != nil {
		p.log.WithFields(logrus.Fields{"event": ev.Type, "entity_id": ev.EntityID}).
			WithError(err).Warn("rabbitmq: publish failed")
		return err
	}
	return nil
}

func (p *AMQPPublisher) publish(ctx context.Context, ev queue.Event) error {
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
	err = ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.ID,
			Type:         ev.Type,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		p.reset()
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// channel returns an open channel, dialing and declaring the queue when
// needed.  Callers hold p.mu.
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(p.dialTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
