package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EscalationSweeper is the slice of the engine the worker drives.
type EscalationSweeper interface {
	RunEscalationSweep(ctx context.Context) ([]string, error)
}

// SLAWorker periodically runs the escalation sweep over open approval
// instances. Escalation is advisory, so a missed tick only delays the breach
// flag; the next sweep picks it up.
type SLAWorker struct {
	engine EscalationSweeper
	logger *zap.Logger

	sweepInterval time.Duration
	sweepTimeout  time.Duration

	mu        sync.Mutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewSLAWorker creates a new SLA sweep worker.
func NewSLAWorker(engine EscalationSweeper, sweepInterval time.Duration, logger *zap.Logger) *SLAWorker {
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}
	return &SLAWorker{
		engine:        engine,
		logger:        logger,
		sweepInterval: sweepInterval,
		sweepTimeout:  time.Minute,
	}
}

// Start starts the sweep loop.
func (w *SLAWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return fmt.Errorf("SLA worker is already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true

	w.logger.Info("SLAWorker started", zap.Duration("sweep_interval", w.sweepInterval))

	go w.sweepLoop()
	return nil
}

// Stop stops the sweep loop.
func (w *SLAWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.isRunning {
		return
	}

	w.isRunning = false
	if w.cancel != nil {
		w.cancel()
	}

	w.logger.Info("SLAWorker stopped")
}

// Name returns the worker name for identification
func (w *SLAWorker) Name() string {
	return "SLAWorker"
}

func (w *SLAWorker) sweepLoop() {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	// Sweep immediately on start
	w.sweep()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("Sweep loop context cancelled")
			return

		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *SLAWorker) sweep() {
	ctx, cancel := context.WithTimeout(w.ctx, w.sweepTimeout)
	defer cancel()

	escalated, err := w.engine.RunEscalationSweep(ctx)
	if err != nil {
		w.logger.Error("Escalation sweep failed", zap.Error(err))
		return
	}

	if len(escalated) > 0 {
		w.logger.Info("Escalation sweep completed",
			zap.Int("escalated", len(escalated)),
			zap.Strings("instance_ids", escalated))
	}
}
