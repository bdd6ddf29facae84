package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueEmails is the queue name for email jobs.
	QueueEmails = "worker:emails"
	// QueueDLQ holds failed jobs for inspection. Jobs are never requeued.
	QueueDLQ = "worker:dlq"
	// DequeueBackoff is the pause after a transport error.
	DequeueBackoff = 5 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeEmail JobType = "email"
)

// EmailPayload is the payload for email jobs. The worker renders Template
// with Data; the API never builds HTML itself.
type EmailPayload struct {
	EmailType      string            `json:"email_type"`
	UserID         *uuid.UUID        `json:"user_id,omitempty"`
	RecipientEmail string            `json:"recipient_email"`
	RecipientName  string            `json:"recipient_name,omitempty"`
	Data           map[string]string `json:"data,omitempty"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	LastError string          `json:"last_error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Publisher enqueues jobs. Handlers and services depend on this.
type Publisher interface {
	EnqueueEmail(ctx context.Context, payload EmailPayload) error
}

// Queue is a full job transport used by the worker.
type Queue interface {
	Publisher
	// Dequeue blocks until a job is available or ctx is done. A nil job with
	// a nil error means nothing was received; callers loop.
	Dequeue(ctx context.Context) (*Job, error)
	// DeadLetter records a failed job on the DLQ. Each job is attempted once.
	DeadLetter(ctx context.Context, job *Job, cause error) error
	Close() error
}

func newJob(t JobType, payload interface{}) (*Job, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal payload: %w", err)
	}
	job := &Job{
		ID:        uuid.New().String(),
		Type:      t,
		Payload:   body,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal job: %w", err)
	}
	return job, raw, nil
}

// NewEmailJob wraps payload in a fresh job envelope and returns its wire form.
func NewEmailJob(payload EmailPayload) (*Job, []byte, error) {
	return newJob(JobTypeEmail, payload)
}

// deadLetterBody marks job as attempted once and records cause.
func deadLetterBody(job *Job, cause error) ([]byte, error) {
	job.Attempt = 1
	if cause != nil {
		job.LastError = cause.Error()
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	return raw, nil
}

// DecodeEmail unmarshals an email job's payload.
func DecodeEmail(job *Job) (EmailPayload, error) {
	var p EmailPayload
	if job.Type != JobTypeEmail {
		return p, fmt.Errorf("unexpected job type: %s", job.Type)
	}
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return p, fmt.Errorf("unmarshal payload: %w", err)
	}
	return p, nil
}

// Open returns the Queue for driver: "redis" uses client, "amqp" dials amqpURL.
func Open(driver string, client *redis.Client, amqpURL string, logger *zap.Logger) (Queue, error) {
	switch driver {
	case "redis", "":
		if client == nil {
			return nil, fmt.Errorf("redis queue requires a redis client")
		}
		return NewRedisQueue(client, logger), nil
	case "amqp":
		q, err := NewAMQPQueue(amqpURL, logger)
		if err != nil {
			return nil, err
		}
		return q, nil
	default:
		return nil, fmt.Errorf("unsupported queue driver: %s", driver)
	}
}
