// Package queue runs background jobs with retries.
//
//	type PaymentReceiptJob struct{ TransactionID string }
//	func (j *PaymentReceiptJob) Handle(ctx context.Context) error { ... }
//
//	q := queue.New(queue.NewMemoryDriver())
//	q.Register("payment.receipt", func() queue.Job { return &PaymentReceiptJob{} })
//	q.Dispatch(ctx, &PaymentReceiptJob{TransactionID: "pi_1"})
//	go q.Work(ctx, 2)
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/plantnet/plantnet-server/pkg/logger"
	"github.com/plantnet/plantnet-server/pkg/metrics"
)

// Job is a unit of background work. A non-nil error triggers a retry.
type Job interface {
	Handle(ctx context.Context) error
}

// Named jobs control the type name used on the wire; others use %T.
type Named interface {
	JobName() string
}

// Driver is the queue storage backend.
type Driver interface {
	Push(ctx context.Context, payload []byte) error
	Pop(ctx context.Context) ([]byte, error)
}

// DelayedDriver supports scheduling a payload for later.
type DelayedDriver interface {
	PushDelayed(ctx context.Context, payload []byte, delay time.Duration) error
}

// background is implemented by drivers that need a maintenance loop.
type background interface {
	Run(ctx context.Context)
}

// FailedJob is a job that exhausted its retries.
type FailedJob struct {
	Type     string    `bson:"type" json:"type"`
	Payload  string    `bson:"payload" json:"payload"`
	Error    string    `bson:"error" json:"error"`
	Attempts int       `bson:"attempts" json:"attempts"`
	FailedAt time.Time `bson:"failedAt" json:"failedAt"`
}

// FailedStore persists exhausted jobs.
type FailedStore interface {
	Save(ctx context.Context, job FailedJob) error
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Manager dispatches and processes jobs over one driver.
type Manager struct {
	driver   Driver
	store    FailedStore
	maxRetry int
	backoff  time.Duration

	mu       sync.RWMutex
	registry map[string]func() Job
	failed   []FailedJob
}

type Option func(*Manager)

// WithFailedStore persists exhausted jobs in addition to the in-memory list.
func WithFailedStore(s FailedStore) Option { return func(m *Manager) { m.store = s } }

// WithRetry sets attempts per job and the linear backoff unit.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(m *Manager) {
		if attempts > 0 {
			m.maxRetry = attempts
		}
		m.backoff = backoff
	}
}

func New(d Driver, opts ...Option) *Manager {
	m := &Manager{
		driver:   d,
		maxRetry: 3,
		backoff:  time.Second,
		registry: map[string]func() Job{},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Register makes a job type available for decoding by name.
func (m *Manager) Register(name string, factory func() Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[name] = factory
}

func typeName(job Job) string {
	if n, ok := job.(Named); ok {
		return n.JobName()
	}
	return fmt.Sprintf("%T", job)
}

func encode(job Job) ([]byte, string, error) {
	name := typeName(job)
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, name, fmt.Errorf("queue: marshal job %s: %w", name, err)
	}
	env, err := json.Marshal(envelope{Type: name, Payload: payload})
	if err != nil {
		return nil, name, fmt.Errorf("queue: marshal envelope: %w", err)
	}
	return env, name, nil
}

// Dispatch queues job for immediate processing.
func (m *Manager) Dispatch(ctx context.Context, job Job) error {
	env, _, err := encode(job)
	if err != nil {
		return err
	}
	return m.driver.Push(ctx, env)
}

// DispatchAfter queues job to run after delay. Drivers without native
// delay support get an in-process timer.
func (m *Manager) DispatchAfter(ctx context.Context, job Job, delay time.Duration) error {
	env, name, err := encode(job)
	if err != nil {
		return err
	}
	if dd, ok := m.driver.(DelayedDriver); ok {
		return dd.PushDelayed(ctx, env, delay)
	}

	detached := context.WithoutCancel(ctx)
	time.AfterFunc(delay, func() {
		if err := m.driver.Push(detached, env); err != nil {
			logger.WithCtx(detached).Error("queue: delayed dispatch failed", "type", name, "error", err)
		}
	})
	return nil
}

// Work runs n workers until ctx is cancelled, then returns.
func (m *Manager) Work(ctx context.Context, n int) {
	if n < 1 {
		n = 1
	}
	if bg, ok := m.driver.(background); ok {
		go bg.Run(ctx)
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.work(ctx)
		}()
	}
	logger.Info("queue: workers started", "count", n)
	wg.Wait()
}

func (m *Manager) work(ctx context.Context) {
	for {
		raw, err := m.driver.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("queue: pop failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}
		if raw == nil {
			continue
		}
		m.process(ctx, raw)
	}
}

func (m *Manager) process(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Error("queue: bad envelope", "error", err)
		return
	}

	m.mu.RLock()
	factory, ok := m.registry[env.Type]
	m.mu.RUnlock()

	if !ok {
		logger.Warn("queue: unregistered job type", "type", env.Type)
		return
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		logger.Error("queue: unmarshal payload", "type", env.Type, "error", err)
		return
	}

	m.runWithRetry(ctx, job, env.Type, env.Payload)
}

func (m *Manager) runWithRetry(ctx context.Context, job Job, name string, payload []byte) {
	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= m.maxRetry; attempt++ {
		if err := job.Handle(ctx); err != nil {
			lastErr = err
			logger.Warn("queue: job failed", "type", name, "attempt", attempt, "error", err)
			if attempt == m.maxRetry {
				break
			}
			select {
			case <-ctx.Done():
				lastErr = fmt.Errorf("%w (worker stopping)", err)
				attempt = m.maxRetry
			case <-time.After(time.Duration(attempt) * m.backoff):
			}
			continue
		}
		metrics.RecordQueueJob(name, "success", start)
		logger.Info("queue: job processed", "type", name)
		return
	}

	metrics.RecordQueueJob(name, "failed", start)
	m.persistFailed(ctx, FailedJob{
		Type:     name,
		Payload:  string(payload),
		Error:    lastErr.Error(),
		Attempts: m.maxRetry,
		FailedAt: time.Now().UTC(),
	})
	logger.Error("queue: job exhausted retries", "type", name, "error", lastErr)
}

func (m *Manager) persistFailed(ctx context.Context, f FailedJob) {
	m.mu.Lock()
	m.failed = append(m.failed, f)
	m.mu.Unlock()

	if m.store == nil {
		return
	}
	if err := m.store.Save(context.WithoutCancel(ctx), f); err != nil {
		logger.Error("queue: persist failed job", "type", f.Type, "error", err)
	}
}

// FailedJobs returns a snapshot of jobs that exhausted their retries in
// this process.
func (m *Manager) FailedJobs() []FailedJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]FailedJob, len(m.failed))
	copy(out, m.failed)
	return out
}
