package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/mailer"
	"github.com/conventionhub/backend/pkg/queue"
)

type memLogs struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.EmailLog
}

func newMemLogs() *memLogs { return &memLogs{rows: map[uuid.UUID]*models.EmailLog{}} }

func (m *memLogs) Create(ctx context.Context, el *models.EmailLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	el.ID = uuid.New()
	cp := *el
	m.rows[el.ID] = &cp
	return nil
}

func (m *memLogs) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id].Status = models.EmailLogStatusSent
	m.rows[id].SentAt = &at
	return nil
}

func (m *memLogs) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id].Status = models.EmailLogStatusFailed
	m.rows[id].ErrorMessage = reason
	return nil
}

func (m *memLogs) statuses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, r := range m.rows {
		out = append(out, r.Status)
	}
	return out
}

type fakeSender struct {
	mu       sync.Mutex
	sent     []mailer.Message
	attempts int
	err      error
}

func (f *fakeSender) Send(msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

// chanQueue is an in-memory queue.Queue.
type chanQueue struct {
	jobs chan *queue.Job

	mu   sync.Mutex
	dead []*queue.Job
}

func (q *chanQueue) EnqueueEmail(ctx context.Context, p queue.EmailPayload) error { return nil }

func (q *chanQueue) Dequeue(ctx context.Context) (*queue.Job, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case j := <-q.jobs:
		return j, nil
	}
}

func (q *chanQueue) DeadLetter(ctx context.Context, job *queue.Job, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dead = append(q.dead, job)
	return nil
}

func (q *chanQueue) deadCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.dead)
}

func (q *chanQueue) Close() error { return nil }

func emailJob(t *testing.T, p queue.EmailPayload) *queue.Job {
	t.Helper()
	job, _, err := queue.NewEmailJob(p)
	require.NoError(t, err)
	return job
}

func newProcessor(t *testing.T, sender mailer.Sender, logs EmailLogStore, q queue.Queue) *EmailProcessor {
	t.Helper()
	r, err := mailer.NewRenderer("ConventionHub")
	require.NoError(t, err)
	p := NewEmailProcessor(q, r, sender, logs, nil)
	p.backoff = time.Millisecond
	return p
}

func TestProcessSendsAndLogs(t *testing.T) {
	logs, sender := newMemLogs(), &fakeSender{}
	p := newProcessor(t, sender, logs, nil)
	uid := uuid.New()

	err := p.Process(context.Background(), emailJob(t, queue.EmailPayload{
		EmailType:      models.EmailTypeOrganizerApproved,
		UserID:         &uid,
		RecipientEmail: "org@example.com",
		RecipientName:  "Org",
		Data:           map[string]string{"dashboard_url": "https://app.example.com/organizer"},
	}))
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].HTML, "https://app.example.com/organizer")
	assert.Equal(t, []string{models.EmailLogStatusSent}, logs.statuses())
}

func TestProcessUnknownTemplateFails(t *testing.T) {
	logs, sender := newMemLogs(), &fakeSender{}
	p := newProcessor(t, sender, logs, nil)

	err := p.Process(context.Background(), emailJob(t, queue.EmailPayload{EmailType: "newsletter", RecipientEmail: "a@example.com"}))
	assert.Error(t, err)
	assert.Empty(t, sender.sent)
	assert.Equal(t, []string{models.EmailLogStatusFailed}, logs.statuses())
}

func TestRunAttemptsFailedSendOnce(t *testing.T) {
	logs := newMemLogs()
	sender := &fakeSender{err: errors.New("smtp down")}
	q := &chanQueue{jobs: make(chan *queue.Job, 2)}
	p := newProcessor(t, sender, logs, q)
	uid := uuid.New()

	q.jobs <- emailJob(t, queue.EmailPayload{
		EmailType:      models.EmailTypeOrganizerApproved,
		UserID:         &uid,
		RecipientEmail: "org@example.com",
		Data:           map[string]string{"dashboard_url": "https://app.example.com/organizer"},
	})
	q.jobs <- emailJob(t, queue.EmailPayload{EmailType: "unknown", RecipientEmail: "b@example.com"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return q.deadCount() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 1, sender.attemptCount())
	assert.Empty(t, q.jobs)
	assert.Equal(t, 2, q.deadCount())
	assert.Equal(t, []string{models.EmailLogStatusFailed, models.EmailLogStatusFailed}, logs.statuses())
}

type countingExpirer struct{ calls int32 }

func (c *countingExpirer) Expire(ctx context.Context) (int64, error) {
	atomic.AddInt32(&c.calls, 1)
	return 0, nil
}

func TestExpiryJobRunsImmediatelyAndOnTick(t *testing.T) {
	e := &countingExpirer{}
	job := NewExpiryJob(e, 5*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&e.calls) >= 3 }, time.Second, time.Millisecond)
	cancel()
	<-done
}
