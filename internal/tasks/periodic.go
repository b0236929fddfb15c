package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Task invokes an action on a fixed interval until disposed. It is the
// injected periodic-trigger collaborator: hosts create one, Start it, and
// Dispose it on teardown. Both Start and Dispose are idempotent, and the
// action's context is cancelled on Dispose so an in-flight run can be
// cooperatively interrupted.
type Task struct {
	name     string
	interval time.Duration
	action   func(context.Context) error
	log      *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates a periodic task. It does not tick until Start is called.
func New(name string, interval time.Duration, action func(context.Context) error) (*Task, error) {
	if name == "" {
		return nil, fmt.Errorf("task name must not be empty")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("task interval must be positive, got %v", interval)
	}
	if action == nil {
		return nil, fmt.Errorf("task action must not be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Task{
		name:     name,
		interval: interval,
		action:   action,
		log:      slog.Default().With("task", name),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start begins ticking. Subsequent calls are no-ops.
func (t *Task) Start() {
	t.startOnce.Do(func() {
		t.log.Info("Starting periodic task", "interval", t.interval)
		go t.run()
	})
}

// Dispose stops future invocations and releases the timer. Safe to call
// multiple times, including before Start.
func (t *Task) Dispose() {
	t.stopOnce.Do(func() {
		t.cancel()
		t.log.Info("Periodic task disposed")
	})
}

func (t *Task) run() {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-ticker.C:
			if err := t.action(t.ctx); err != nil {
				t.log.Error("Periodic task failed", "error", err)
			}
		}
	}
}
