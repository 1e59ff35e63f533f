// Package worker runs periodic weight recalibration in the background.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/focusengine/internal/domain/model"
	"github.com/okian/focusengine/internal/domain/weights"
	"github.com/okian/focusengine/pkg/logger"
	"github.com/okian/focusengine/pkg/metrics"
)

const defaultRunTimeout = 2 * time.Minute

// Calibrator recomputes and activates component weights.
type Calibrator interface {
	ComputeWeights(ctx context.Context, windowSize, minPlayers int) (model.ComponentWeightSet, error)
}

// Worker is a background loop with graceful shutdown.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or Shutdown is called.
	Run(ctx context.Context)

	// Shutdown stops the loop, waiting for an in-flight run to finish.
	Shutdown(ctx context.Context) error
}

// Recalibrator calls ComputeWeights on a fixed interval.
type Recalibrator struct {
	calibrator Calibrator
	interval   time.Duration
	windowSize int
	minPlayers int
	runTimeout time.Duration
	runOnStart bool
	name       string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}
	started      chan struct{}
	startOnce    sync.Once

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
	runs    int

	logger logger.Logger
}

// NewRecalibrator creates a worker that recalibrates every interval. An
// interval of zero or less disables the loop: Run returns immediately.
func NewRecalibrator(c Calibrator, interval time.Duration, windowSize, minPlayers int, opts ...Option) *Recalibrator {
	w := &Recalibrator{
		calibrator: c,
		interval:   interval,
		windowSize: windowSize,
		minPlayers: minPlayers,
		runTimeout: defaultRunTimeout,
		name:       "recalibrator",
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		started:    make(chan struct{}),
		logger:     logger.NamedOrNop("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Enabled reports whether the loop has a positive interval.
func (w *Recalibrator) Enabled() bool { return w.interval > 0 }

// Run starts the loop.
func (w *Recalibrator) Run(ctx context.Context) {
	w.startOnce.Do(func() { close(w.started) })
	defer close(w.done)

	if !w.Enabled() {
		w.logger.Info(ctx, "recalibration disabled")
		return
	}
	w.logger.Info(ctx, "recalibration loop started", logger.Duration("interval", w.interval))

	if w.runOnStart {
		w.runOnce(ctx)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Shutdown stops the loop. It is safe to call more than once.
func (w *Recalibrator) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.started:
	default:
		// Run never started; nothing to wait for.
		return nil
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// RunOnce performs a single recalibration outside the loop.
func (w *Recalibrator) RunOnce(ctx context.Context) error {
	return w.runOnce(ctx)
}

// Status describes completed runs.
type Status struct {
	LastRun time.Time
	LastErr error
	Runs    int
}

// Status returns a snapshot of completed runs.
func (w *Recalibrator) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Status{LastRun: w.lastRun, LastErr: w.lastErr, Runs: w.runs}
}

func (w *Recalibrator) runOnce(ctx context.Context) error {
	start := time.Now()
	if w.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.runTimeout)
		defer cancel()
	}

	metrics.RecordWorkerRun()
	set, err := w.calibrator.ComputeWeights(ctx, w.windowSize, w.minPlayers)

	w.mu.Lock()
	w.lastRun = start
	w.lastErr = err
	w.runs++
	w.mu.Unlock()

	switch {
	case err == nil:
		w.logger.Info(ctx, "weights recalibrated",
			logger.String("weightSetId", set.ID),
			logger.Int("populationSize", set.PopulationSize),
			logger.Duration("took", time.Since(start)),
		)
	case errors.Is(err, weights.ErrInsufficientData):
		// Expected until enough seasons are ingested; the prior set stays active.
		w.logger.Warn(ctx, "recalibration skipped", logger.Error(err))
	default:
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "calibration_error")
		w.logger.Error(ctx, "recalibration failed", logger.Error(err))
	}
	return err
}
