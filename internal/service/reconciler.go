package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Refresher re-reads a view from the server.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context) error

// Refresh implements Refresher.
func (f RefresherFunc) Refresh(ctx context.Context) error {
	return f(ctx)
}

// Reconciler periodically re-fetches views so locally patched records converge
// on the server state.
type Reconciler struct {
	cron     *cron.Cron
	schedule string
	targets  map[string]Refresher
	names    []string
	logger   *zap.Logger
	metrics  *MetricsService

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewReconciler validates schedule (standard cron spec or @every) up front.
func NewReconciler(schedule string, logger *zap.Logger, metrics *MetricsService) (*Reconciler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule == "" {
		schedule = "@every 1m"
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("parse reconcile schedule %q: %w", schedule, err)
	}
	return &Reconciler{
		schedule: schedule,
		targets:  make(map[string]Refresher),
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Register adds a named view to refresh on every run.
func (r *Reconciler) Register(name string, target Refresher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.targets[name]; !exists {
		r.names = append(r.names, name)
	}
	r.targets[name] = target
}

// RunOnce refreshes every registered view in registration order and joins the
// failures.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	r.mu.Lock()
	names := append([]string(nil), r.names...)
	targets := make([]Refresher, len(names))
	for i, name := range names {
		targets[i] = r.targets[name]
	}
	r.mu.Unlock()

	start := time.Now()
	var errs []error
	for i, target := range targets {
		if err := target.Refresh(ctx); err != nil {
			r.logger.Warn("reconcile target failed", zap.String("target", names[i]), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", names[i], err))
		}
	}
	err := errors.Join(errs...)
	r.metrics.ObserveReconcile(err, time.Since(start))
	return err
}

// Start schedules RunOnce until Stop is called or ctx is done.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New()
	if _, err := c.AddFunc(r.schedule, func() {
		if runCtx.Err() != nil {
			return
		}
		_ = r.RunOnce(runCtx)
	}); err != nil {
		cancel()
		return fmt.Errorf("schedule reconcile: %w", err)
	}

	r.cron = c
	r.cancel = cancel
	r.running = true
	c.Start()
	r.logger.Info("reconciler started", zap.String("schedule", r.schedule))

	go func() {
		<-runCtx.Done()
		r.Stop()
	}()
	return nil
}

// Stop halts scheduling and waits for a run in progress.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel := r.cancel
	c := r.cron
	r.mu.Unlock()

	cancel()
	<-c.Stop().Done()
	r.logger.Info("reconciler stopped")
}
