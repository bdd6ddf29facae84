package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/mailer"
	"github.com/conventionhub/backend/pkg/queue"
)

// EmailLogStore records delivery attempts.
type EmailLogStore interface {
	Create(ctx context.Context, el *models.EmailLog) error
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// EmailProcessor renders and sends queued transactional emails.
type EmailProcessor struct {
	queue    queue.Queue
	renderer *mailer.Renderer
	sender   mailer.Sender
	logs     EmailLogStore
	logger   *zap.Logger
	backoff  time.Duration
}

// NewEmailProcessor creates an email processor.
func NewEmailProcessor(q queue.Queue, renderer *mailer.Renderer, sender mailer.Sender, logs EmailLogStore, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{queue: q, renderer: renderer, sender: sender, logs: logs, logger: logger, backoff: queue.DequeueBackoff}
}

// Process makes the single delivery attempt for job and records it in email_logs.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	payload, err := queue.DecodeEmail(job)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	log := p.logger.With(zap.String("job_id", job.ID), zap.String("email_type", payload.EmailType))

	el := &models.EmailLog{
		UserID:         payload.UserID,
		EmailType:      payload.EmailType,
		RecipientEmail: payload.RecipientEmail,
		Status:         models.EmailLogStatusPending,
	}
	msg, renderErr := p.renderer.Render(payload.EmailType, payload.RecipientEmail, payload.RecipientName, payload.Data)
	el.Subject = msg.Subject
	if err := p.logs.Create(ctx, el); err != nil {
		log.Warn("create email log", zap.Error(err))
		el = nil
	}
	if renderErr != nil {
		p.markFailed(ctx, el, renderErr, log)
		return fmt.Errorf("render: %w", renderErr)
	}

	if err := p.sender.Send(msg); err != nil {
		p.markFailed(ctx, el, err, log)
		return fmt.Errorf("send: %w", err)
	}
	if el != nil {
		if err := p.logs.MarkSent(ctx, el.ID, time.Now()); err != nil {
			log.Warn("mark email sent", zap.Error(err))
		}
	}
	log.Info("email sent", zap.String("to", payload.RecipientEmail))
	return nil
}

func (p *EmailProcessor) markFailed(ctx context.Context, el *models.EmailLog, cause error, log *zap.Logger) {
	if el == nil {
		return
	}
	if err := p.logs.MarkFailed(ctx, el.ID, cause.Error()); err != nil {
		log.Warn("mark email failed", zap.Error(err))
	}
}

// Run dequeues and processes jobs until ctx is done. A failed job is moved
// to the dead-letter queue and never requeued.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			p.logger.Info("email worker stopping")
			return
		}
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			sleep(ctx, p.backoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		err = p.Process(ctx, job)
		if err == nil {
			continue
		}
		p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
		if dlErr := p.queue.DeadLetter(ctx, job, err); dlErr != nil {
			p.logger.Error("dead-letter failed", zap.String("job_id", job.ID), zap.Error(dlErr))
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
