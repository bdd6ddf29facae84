package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Expirer moves ended PUBLISHED conventions to PAST.
type Expirer interface {
	Expire(ctx context.Context) (int64, error)
}

// ExpiryJob runs an Expirer once at start and then on every tick.
type ExpiryJob struct {
	expirer  Expirer
	interval time.Duration
	logger   *zap.Logger
}

// NewExpiryJob creates the expiry job. A non-positive interval means hourly.
func NewExpiryJob(e Expirer, interval time.Duration, logger *zap.Logger) *ExpiryJob {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpiryJob{expirer: e, interval: interval, logger: logger}
}

// RunOnce performs one expiry pass.
func (j *ExpiryJob) RunOnce(ctx context.Context) {
	n, err := j.expirer.Expire(ctx)
	if err != nil {
		j.logger.Error("expire conventions", zap.Error(err))
		return
	}
	j.logger.Debug("expiry pass done", zap.Int64("expired", n))
}

// Run blocks until ctx is done.
func (j *ExpiryJob) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	j.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("expiry job stopping")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}
