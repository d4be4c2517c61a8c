// Package notify delivers investor-facing notifications. Delivery is best
// effort; callers log failures and carry on.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
)

// Notifier hands a notification to the delivery channel.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// Publisher publishes notifications as persistent JSON messages on a
// durable RabbitMQ queue. An email worker consumes the queue.
type Publisher struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// NewPublisher dials RabbitMQ and declares the queue.
func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &Publisher{conn: conn, channel: ch, queue: queue}, nil
}

// Notify publishes n to the queue.
func (p *Publisher) Notify(ctx context.Context, n model.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         string(n.Type),
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			return err
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// LogNotifier writes notifications to the log. Used when RabbitMQ is not configured.
type LogNotifier struct {
	log *logrus.Entry
}

// NewLogNotifier creates a notifier that only logs.
func NewLogNotifier(log *logrus.Entry) *LogNotifier {
	return &LogNotifier{log: log}
}

// Notify logs n at info level.
func (l *LogNotifier) Notify(_ context.Context, n model.Notification) error {
	l.log.WithFields(logrus.Fields{
		"type":        n.Type,
		"investor_id": n.InvestorID,
		"subject":     n.Subject,
	}).Info("notification")
	return nil
}
