package control

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vietddude/dispatch/internal/core/config"
	"github.com/vietddude/dispatch/internal/health"
	"github.com/vietddude/dispatch/internal/tasks"
	"github.com/vietddude/dispatch/internal/tracking"
	"github.com/vietddude/dispatch/internal/transport"
)

// Config holds the application configuration.
type Config struct {
	Port     int
	Queues   config.QueueConfig
	Tracking config.TrackingConfig
	Dispatch config.DispatchConfig
}

// Pipeline is the main application struct that wires the error tracker,
// sweeper, dispatcher, and health server together and manages their
// lifecycle.
type Pipeline struct {
	cfg          Config
	tracker      *tracking.ErrorTracker
	sweepTask    *tasks.Task
	dispatcher   *transport.Dispatcher
	input        *transport.Queue
	errorQueue   *transport.Queue
	healthServer *health.Server
	log          *slog.Logger
}

// NewPipeline creates a Pipeline with all dependencies initialized. The
// handler receives every message pulled from the input queue.
//
// A blank input address marks a send-only endpoint: it gets no dispatcher
// and no sweeper, since a process that never receives messages never
// accumulates failure records.
func NewPipeline(cfg Config, handler transport.Handler) (*Pipeline, error) {
	tracker, err := tracking.New(cfg.Tracking.MaxDeliveryAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to init error tracker: %w", err)
	}

	p := &Pipeline{
		cfg:     cfg,
		tracker: tracker,
		log:     slog.Default().With("component", "control"),
	}

	var queues []*transport.Queue
	if cfg.Queues.InputAddress != "" {
		sweeper, err := tracking.NewSweeper(tracker, cfg.Tracking.MaxAge())
		if err != nil {
			return nil, fmt.Errorf("failed to init sweeper: %w", err)
		}
		p.sweepTask, err = tasks.New("CleanupTrackedErrors", cfg.Tracking.SweepInterval(), func(context.Context) error {
			sweeper.Sweep()
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init sweep task: %w", err)
		}

		errorAddress := cfg.Queues.ErrorAddress
		if errorAddress == "" {
			errorAddress = cfg.Queues.InputAddress + "-error"
		}
		p.input, err = transport.NewQueue(cfg.Queues.InputAddress, cfg.Dispatch.QueueCapacity)
		if err != nil {
			return nil, fmt.Errorf("failed to init input queue: %w", err)
		}
		p.errorQueue, err = transport.NewQueue(errorAddress, cfg.Dispatch.QueueCapacity)
		if err != nil {
			return nil, fmt.Errorf("failed to init error queue: %w", err)
		}
		queues = []*transport.Queue{p.input, p.errorQueue}

		p.dispatcher, err = transport.NewDispatcher(transport.DispatcherConfig{
			WorkerConcurrency: cfg.Dispatch.WorkerConcurrency,
			BaseBackoff:       cfg.Dispatch.BaseBackoff(),
			MaxBackoff:        cfg.Dispatch.MaxBackoff(),
		}, p.input, p.errorQueue, tracker, handler)
		if err != nil {
			return nil, fmt.Errorf("failed to init dispatcher: %w", err)
		}
	}

	p.healthServer = health.NewServer(tracker, queues, cfg.Port)

	return p, nil
}

// Tracker exposes the error tracker to collaborators that decide retries.
func (p *Pipeline) Tracker() *tracking.ErrorTracker {
	return p.tracker
}

// Input returns the input queue, nil for a send-only endpoint.
func (p *Pipeline) Input() *transport.Queue {
	return p.input
}

// ErrorQueue returns the error queue, nil for a send-only endpoint.
func (p *Pipeline) ErrorQueue() *transport.Queue {
	return p.errorQueue
}

// Start launches the health server, the dispatcher, and the sweep task.
func (p *Pipeline) Start(ctx context.Context) error {
	go func() {
		if err := p.healthServer.Start(); err != nil && err != http.ErrServerClosed {
			p.log.Error("Health server failed", "error", err)
		}
	}()

	if p.dispatcher == nil {
		p.log.Info("Send-only endpoint, skipping dispatcher and error tracker sweep")
		return nil
	}

	go func() {
		if err := p.dispatcher.Run(ctx); err != nil {
			p.log.Error("Dispatcher failed", "error", err)
		}
	}()

	p.sweepTask.Start()
	return nil
}

// Stop stops the pipeline. Safe to invoke multiple times.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.log.Info("Stopping pipeline...")

	if p.sweepTask != nil {
		p.sweepTask.Dispose()
	}

	return p.healthServer.Stop(ctx)
}
