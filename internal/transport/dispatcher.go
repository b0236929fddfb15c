package transport

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vietddude/dispatch/internal/core/domain"
	"github.com/vietddude/dispatch/internal/metrics"
	"github.com/vietddude/dispatch/internal/tracking"
)

// Handler processes one delivered message.
type Handler func(ctx context.Context, msg *domain.Message) error

// DispatcherConfig holds the runtime settings the dispatcher relies on to
// orchestrate delivery, redelivery, and dead-lettering.
type DispatcherConfig struct {
	WorkerConcurrency int
	BaseBackoff       time.Duration
	MaxBackoff        time.Duration
}

// Dispatcher pulls messages from the input queue and delivers them to the
// handler on semaphore-bounded workers. A failed delivery is registered
// with the error tracker and the message is requeued after a backoff; once
// the tracker reports the message has failed too many times it is moved to
// the error queue with its full failure history attached and its tracking
// entry is released.
type Dispatcher struct {
	cfg        DispatcherConfig
	input      *Queue
	errorQueue *Queue
	tracker    *tracking.ErrorTracker
	handler    Handler
	sem        *semaphore.Weighted
	log        *slog.Logger
	wg         sync.WaitGroup
}

// NewDispatcher creates a dispatcher. All collaborators are required.
func NewDispatcher(
	cfg DispatcherConfig,
	input *Queue,
	errorQueue *Queue,
	tracker *tracking.ErrorTracker,
	handler Handler,
) (*Dispatcher, error) {
	if input == nil || errorQueue == nil {
		return nil, fmt.Errorf("input and error queues must not be nil")
	}
	if tracker == nil {
		return nil, fmt.Errorf("tracker must not be nil")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler must not be nil")
	}
	if cfg.WorkerConcurrency <= 0 {
		return nil, fmt.Errorf("worker concurrency must be positive, got %d", cfg.WorkerConcurrency)
	}
	if cfg.BaseBackoff <= 0 || cfg.MaxBackoff < cfg.BaseBackoff {
		return nil, fmt.Errorf("invalid backoff range [%v, %v]", cfg.BaseBackoff, cfg.MaxBackoff)
	}

	return &Dispatcher{
		cfg:        cfg,
		input:      input,
		errorQueue: errorQueue,
		tracker:    tracker,
		handler:    handler,
		sem:        semaphore.NewWeighted(int64(cfg.WorkerConcurrency)),
		log:        slog.Default().With("component", "dispatch", "queue", input.Name()),
	}, nil
}

// Run consumes the input queue until the context is cancelled, then waits
// for in-flight deliveries to finish.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.log.Info("Starting dispatcher", "concurrency", d.cfg.WorkerConcurrency)

	for {
		msg, err := d.input.Receive(ctx)
		if err != nil {
			break
		}
		if err := d.sem.Acquire(ctx, 1); err != nil {
			break
		}

		d.wg.Add(1)
		go func(m *domain.Message) {
			defer d.wg.Done()
			defer d.sem.Release(1)
			d.deliver(ctx, m)
		}(msg)
	}

	d.wg.Wait()
	d.log.Info("Dispatcher stopped")
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, msg *domain.Message) {
	if err := d.handler(ctx, msg); err != nil {
		d.handleFailure(ctx, msg, err)
		return
	}

	// Success drops any failure history accumulated on earlier attempts.
	d.tracker.CleanUp(msg.ID)
	metrics.MessagesDispatched.WithLabelValues(d.input.Name(), "handled").Inc()
}

func (d *Dispatcher) handleFailure(ctx context.Context, msg *domain.Message, cause error) {
	d.tracker.RegisterError(msg.ID, cause)

	if d.tracker.HasFailedTooManyTimes(msg.ID) {
		d.deadLetter(ctx, msg)
		return
	}

	attempt := len(d.tracker.Errors(msg.ID))
	select {
	case <-ctx.Done():
		return
	case <-time.After(d.backoff(attempt)):
	}

	if err := d.input.Send(ctx, msg); err != nil {
		d.log.Error("Failed to requeue message", "message_id", msg.ID, "error", err)
		return
	}
	metrics.MessagesDispatched.WithLabelValues(d.input.Name(), "retried").Inc()
}

func (d *Dispatcher) deadLetter(ctx context.Context, msg *domain.Message) {
	description, _ := d.tracker.FullErrorDescription(msg.ID)

	if msg.Headers == nil {
		msg.Headers = make(map[string]string)
	}
	msg.Headers[domain.HeaderErrorDetails] = description
	msg.Headers[domain.HeaderSourceQueue] = d.input.Name()

	if err := d.errorQueue.Send(ctx, msg); err != nil {
		// Keep the tracking entry so a redelivery still counts as exhausted.
		d.log.Error("Failed to forward message to error queue", "message_id", msg.ID, "error", err)
		return
	}

	d.tracker.CleanUp(msg.ID)
	metrics.MessagesDispatched.WithLabelValues(d.input.Name(), "dead_lettered").Inc()
	metrics.MessagesDeadLettered.Inc()
	d.log.Error("Moving message to error queue",
		"message_id", msg.ID, "error_queue", d.errorQueue.Name())
}

// backoff computes the delay before redelivery attempt n, exponential with
// jitter, capped at MaxBackoff.
func (d *Dispatcher) backoff(attempt int) time.Duration {
	delay := float64(d.cfg.BaseBackoff) * math.Pow(2, float64(attempt-1))
	if limit := float64(d.cfg.MaxBackoff); delay > limit {
		delay = limit
	}
	jitter := rand.Float64() * 0.2 * delay
	return time.Duration(delay + jitter)
}
