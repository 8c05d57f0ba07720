// Package queue moves interview analysis jobs through RabbitMQ. One durable
// queue carries one message per pipeline run; the worker consumes with manual
// acks and prefetch 1 so a crash returns the job to the broker.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	queueName      = "interview_analysis"
	publishTimeout = 5 * time.Second
)

// Job is the message enqueued per pipeline run.
type Job struct {
	InterviewID uint   `json:"interview_id"`
	LedgerID    string `json:"ledger_id"`
}

// Publisher enqueues jobs. Satisfied by RabbitMQ and by test stubs.
type Publisher interface {
	Publish(ctx context.Context, job Job) error
}

// Handler processes one consumed job. A returned error is logged and the
// message is acked anyway: run-level retries and failure records live in the
// job ledger, not in broker redelivery.
type Handler func(ctx context.Context, job Job) error

// RabbitMQ is a connection plus channel bound to the analysis queue.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	logger  *zap.Logger
}

// Dial connects to the broker and declares the durable analysis queue.
func Dial(url string, logger *zap.Logger) (*RabbitMQ, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	q, err := channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring queue %s: %w", queueName, err)
	}

	if err := channel.Qos(1, 0, false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("setting prefetch: %w", err)
	}

	logger.Info("connected to rabbitmq", zap.String("queue", q.Name))

	return &RabbitMQ{conn: conn, channel: channel, queue: q, logger: logger}, nil
}

func (r *RabbitMQ) Close() error {
	if err := r.channel.Close(); err != nil {
		r.conn.Close()
		return fmt.Errorf("closing channel: %w", err)
	}
	return r.conn.Close()
}

// Publish enqueues one job as a persistent message.
func (r *RabbitMQ) Publish(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encoding job: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = r.channel.PublishWithContext(ctx,
		"",           // default exchange
		r.queue.Name, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publishing job for interview %d: %w", job.InterviewID, err)
	}

	r.logger.Debug("job published",
		zap.Uint("interview_id", job.InterviewID),
		zap.String("ledger_id", job.LedgerID),
	)
	return nil
}

// Consume processes jobs with the handler until the context is canceled or
// the delivery channel closes.
func (r *RabbitMQ) Consume(ctx context.Context, handler Handler) error {
	deliveries, err := r.channel.Consume(
		r.queue.Name,
		"",    // consumer tag
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("registering consumer: %w", err)
	}

	r.logger.Info("consuming analysis jobs", zap.String("queue", r.queue.Name))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			r.handle(ctx, delivery, handler)
		}
	}
}

func (r *RabbitMQ) handle(ctx context.Context, delivery amqp.Delivery, handler Handler) {
	var job Job
	if err := json.Unmarshal(delivery.Body, &job); err != nil {
		r.logger.Error("discarding malformed job", zap.Error(err))
		if err := delivery.Nack(false, false); err != nil {
			r.logger.Error("nack failed", zap.Error(err))
		}
		return
	}

	if err := handler(ctx, job); err != nil {
		r.logger.Error("job handler failed",
			zap.Uint("interview_id", job.InterviewID),
			zap.String("ledger_id", job.LedgerID),
			zap.Error(err),
		)
	}

	if err := delivery.Ack(false); err != nil {
		r.logger.Error("ack failed", zap.Error(err))
	}
}
