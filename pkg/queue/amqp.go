package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPQueue is the RabbitMQ job transport. Queue names match the redis driver.
type AMQPQueue struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *zap.Logger

	mu         sync.Mutex
	deliveries <-chan amqp.Delivery
}

// NewAMQPQueue dials url and declares the durable email and DLQ queues.
func NewAMQPQueue(url string, logger *zap.Logger) (*AMQPQueue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	for _, name := range []string{QueueEmails, QueueDLQ} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("declare %s: %w", name, err)
		}
	}
	logger.Info("AMQP queue connected")
	return &AMQPQueue{conn: conn, ch: ch, logger: logger}, nil
}

func (q *AMQPQueue) publish(ctx context.Context, queueName string, raw []byte) error {
	err := q.ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         raw,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queueName, err)
	}
	return nil
}

// EnqueueEmail enqueues an email job.
func (q *AMQPQueue) EnqueueEmail(ctx context.Context, payload EmailPayload) error {
	job, raw, err := NewEmailJob(payload)
	if err != nil {
		return err
	}
	if err := q.publish(ctx, QueueEmails, raw); err != nil {
		return err
	}
	q.logger.Debug("enqueued email job", zap.String("job_id", job.ID), zap.String("email_type", payload.EmailType))
	return nil
}

// Dequeue receives the next delivery. Deliveries are acked on receipt; a
// failed job goes to the DLQ through DeadLetter rather than being nacked.
func (q *AMQPQueue) Dequeue(ctx context.Context) (*Job, error) {
	q.mu.Lock()
	if q.deliveries == nil {
		d, err := q.ch.Consume(QueueEmails, "", false, false, false, false, nil)
		if err != nil {
			q.mu.Unlock()
			return nil, fmt.Errorf("consume: %w", err)
		}
		q.deliveries = d
	}
	deliveries := q.deliveries
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, nil
	case d, ok := <-deliveries:
		if !ok {
			return nil, fmt.Errorf("delivery channel closed")
		}
		if err := d.Ack(false); err != nil {
			q.logger.Warn("ack failed", zap.Error(err))
		}
		var job Job
		if err := json.Unmarshal(d.Body, &job); err != nil {
			q.logger.Warn("invalid job payload", zap.ByteString("raw", d.Body), zap.Error(err))
			return nil, nil
		}
		return &job, nil
	}
}

// DeadLetter publishes job to the DLQ with the failure recorded.
func (q *AMQPQueue) DeadLetter(ctx context.Context, job *Job, cause error) error {
	raw, err := deadLetterBody(job, cause)
	if err != nil {
		return err
	}
	if err := q.publish(ctx, QueueDLQ, raw); err != nil {
		return fmt.Errorf("dlq publish: %w", err)
	}
	q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}

// Close closes the channel and connection.
func (q *AMQPQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		q.logger.Warn("amqp channel close", zap.Error(err))
	}
	return q.conn.Close()
}
