package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Task is a unit of background work. The runner owns scheduling only; tasks
// are injected so the core stays testable without a process-wide cron.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

// Runner executes a task once at start and then on a fixed interval.
type Runner struct {
	task     Task
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
}

func NewRunner(task Task, interval time.Duration, logger *zap.Logger) *Runner {
	return &Runner{
		task:     task,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start launches the task loop in a goroutine.
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("Starting background runner",
		zap.String("task", r.task.Name()),
		zap.Duration("interval", r.interval),
	)

	go r.loop(ctx)
}

// Stop stops the task loop.
func (r *Runner) Stop() {
	r.logger.Info("Stopping background runner", zap.String("task", r.task.Name()))
	close(r.stopChan)
}

func (r *Runner) loop(ctx context.Context) {
	r.runOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.runOnce(ctx)
		case <-r.stopChan:
			r.logger.Info("Background runner stopped", zap.String("task", r.task.Name()))
			return
		case <-ctx.Done():
			r.logger.Info("Background runner cancelled", zap.String("task", r.task.Name()))
			return
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	if err := r.task.Run(ctx); err != nil {
		r.logger.Error("Background task failed",
			zap.String("task", r.task.Name()),
			zap.Error(err),
		)
	}
}
