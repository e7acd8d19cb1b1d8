package notify

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/erazemk/izposoja/internal/model"
)

const (
	defaultWorkers      = 2
	defaultQueueSize    = 100
	defaultMaxAttempts  = 4
	defaultBaseDelay    = 500 * time.Millisecond
	defaultJitterFactor = 0.3
)

var (
	// ErrQueueFull is wrapped in a DeliveryError when the outgoing queue has no room.
	ErrQueueFull = errors.New("mail queue is full")

	// ErrClosed is wrapped in a DeliveryError when the dispatcher no longer accepts messages.
	ErrClosed = errors.New("mail dispatcher is closed")
)

// Dispatcher hands messages to a Mailer from a pool of background workers.
// Dispatch never blocks the caller.
type Dispatcher struct {
	mailer       Mailer
	logger       *slog.Logger
	workers      int
	queueSize    int
	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64

	queue  chan Message
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWorkers sets the number of sending goroutines.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithQueueSize sets the number of messages that may wait for a worker.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// WithMaxAttempts sets how often a message is tried before it is dropped.
func WithMaxAttempts(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

// WithBaseDelay sets the first retry delay. Later delays double.
func WithBaseDelay(delay time.Duration) Option {
	return func(d *Dispatcher) {
		if delay >= 0 {
			d.baseDelay = delay
		}
	}
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher starts the workers and returns a dispatcher sending through m.
func NewDispatcher(m Mailer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		mailer:       m,
		logger:       slog.Default(),
		workers:      defaultWorkers,
		queueSize:    defaultQueueSize,
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.queue = make(chan Message, d.queueSize)
	d.ctx, d.cancel = context.WithCancel(context.Background())
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Dispatch queues msg for delivery. A full or closed queue is reported as a
// *model.DeliveryError; the message is then dropped.
func (d *Dispatcher) Dispatch(msg Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return &model.DeliveryError{To: msg.To, Err: ErrClosed}
	}

	select {
	case d.queue <- msg:
		return nil
	default:
		return &model.DeliveryError{To: msg.To, Err: ErrQueueFull}
	}
}

// Close stops accepting messages and waits until the queue is drained. When
// ctx ends first, pending retries are abandoned and ctx.Err() is returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()

	for msg := range d.queue {
		if err := d.send(msg); err != nil {
			derr := &model.DeliveryError{To: msg.To, Err: err}
			d.logger.Error("mail delivery failed", "id", msg.ID, "subject", msg.Subject, "error", derr)
		}
	}
}

// send tries msg with exponential backoff: baseDelay, baseDelay*2, ...
func (d *Dispatcher) send(msg Message) error {
	var lastErr error

	for attempt := 0; attempt < d.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := d.baseDelay * time.Duration(1<<(attempt-1))
			delay += time.Duration(rand.Float64() * float64(delay) * d.jitterFactor)

			select {
			case <-time.After(delay):
			case <-d.ctx.Done():
				return errors.Join(lastErr, d.ctx.Err())
			}
		}

		lastErr = d.mailer.Send(d.ctx, msg)
		if lastErr == nil {
			return nil
		}
		d.logger.Warn("mail delivery attempt failed", "id", msg.ID, "attempt", attempt+1, "error", lastErr)
	}

	return lastErr
}
