package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"KronosAlign/pkg/logger"
)

// LocalQueue runs jobs on in-process workers. It is used when Redis is not
// configured and keeps the same retry and dead-letter semantics, minus
// durability.
type LocalQueue struct {
	logger *logger.Logger
	config *QueueConfig
	jobs   map[string]Job
	ch     chan Message
	mu     sync.RWMutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	running bool
	dlqMu   sync.Mutex
	dead    []Message
}

// NewLocalQueue creates an in-process queue.
func NewLocalQueue(lgr *logger.Logger, config *QueueConfig) *LocalQueue {
	cfg := config.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &LocalQueue{
		logger: lgr,
		config: cfg,
		jobs:   make(map[string]Job),
		ch:     make(chan Message, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (q *LocalQueue) RegisterJob(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.jobs[job.Type()]; exists {
		q.logger.Warn("job already registered", logger.String("job", job.Name()))
		return
	}
	q.jobs[job.Type()] = job
}

func (q *LocalQueue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return fmt.Errorf("queue already running")
	}
	q.running = true
	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.logger.Info("local queue started", logger.Int("workers", q.config.Workers))
	return nil
}

func (q *LocalQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("timeout: %w", ctx.Err())
	case <-done:
		return nil
	}
}

// Enqueue fails fast when the buffer is full instead of blocking the caller.
func (q *LocalQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.running {
		return fmt.Errorf("queue not running")
	}
	if _, ok := q.jobs[msgType]; !ok {
		return fmt.Errorf("no job registered for type: %s", msgType)
	}
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("queue full")
	}
}

// DeadLetters returns messages that exhausted their retries.
func (q *LocalQueue) DeadLetters() []Message {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	return append([]Message(nil), q.dead...)
}

func (q *LocalQueue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case msg := <-q.ch:
			q.run(msg)
		}
	}
}

func (q *LocalQueue) run(msg Message) {
	q.mu.RLock()
	job := q.jobs[msg.Type]
	q.mu.RUnlock()

	for {
		err := job.Handle(q.ctx, msg.Payload)
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}
		q.logger.Error("message processing error",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()),
			logger.Int("attempt", msg.Attempts+1),
			logger.Error(err))
		if msg.Attempts >= q.config.RetryLimit {
			q.dlqMu.Lock()
			q.dead = append(q.dead, msg)
			q.dlqMu.Unlock()
			return
		}
		msg.Attempts++
		select {
		case <-time.After(q.config.RetryDelay):
		case <-q.ctx.Done():
			return
		}
	}
}
