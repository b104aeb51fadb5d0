package pipeline

import (
	"context"
	"fmt"
	"time"

	"freeswim-tracker/internal/logger"
)

// Runner drives a routine once per frame arrival when the provider signals
// arrivals, and from a fixed rate ticker otherwise. Ticks never overlap: a
// slow frame delays the next tick instead of running beside it.
type Runner struct {
	routine  Routine
	frames   FrameProvider
	sink     Sink
	interval time.Duration
	logger   logger.Logger

	published uint64
	skipped   uint64
}

func NewRunner(routine Routine, frames FrameProvider, sink Sink, fps float64, log logger.Logger) *Runner {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	if fps <= 0 {
		fps = 30
	}
	return &Runner{
		routine:  routine,
		frames:   frames,
		sink:     sink,
		interval: time.Duration(float64(time.Second) / fps),
		logger:   log,
	}
}

// Run sets the routine up and processes ticks until ctx ends.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.routine.Setup(); err != nil {
		return fmt.Errorf("routine setup: %w", err)
	}
	if err := r.routine.Initialize(); err != nil {
		return fmt.Errorf("routine initialize: %w", err)
	}

	if n, ok := r.frames.(FrameNotifier); ok {
		r.logger.Info("Runner", "frame loop started", map[string]interface{}{
			"trigger": "frame arrival",
		})
		runLoop(ctx, r, n.Ready())
		return nil
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("Runner", "frame loop started", map[string]interface{}{
		"trigger":  "ticker",
		"interval": r.interval.String(),
	})
	runLoop(ctx, r, ticker.C)
	return nil
}

// runLoop runs one tick per trigger until ctx ends.
func runLoop[T any](ctx context.Context, r *Runner, trigger <-chan T) {
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Runner", "frame loop stopped", map[string]interface{}{
				"published": r.published,
				"skipped":   r.skipped,
			})
			return
		case <-trigger:
			r.Tick()
		}
	}
}

// Tick processes a single frame and publishes the result, if any.
func (r *Runner) Tick() bool {
	result, ok := r.routine.Process(r.frames)
	if !ok {
		r.skipped++
		return false
	}
	r.published++
	r.sink.Publish(result)
	return true
}
