package scheduler

import (
	"context"
	"log/slog"
	"time"
)

type processor interface {
	ProcessDue(ctx context.Context, limit int) (*Report, error)
	NextDue(ctx context.Context) (time.Time, bool, error)
}

// Runner drives ProcessDue in the background. It wakes at the earlier of the
// poll interval and the next pending entry, or immediately on Refresh.
type Runner struct {
	engine     processor
	interval   time.Duration
	batchSize  int
	logger     *slog.Logger
	updateChan chan struct{}
}

func NewRunner(engine processor, interval time.Duration, batchSize int, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Runner{
		engine:     engine,
		interval:   interval,
		batchSize:  batchSize,
		logger:     logger,
		updateChan: make(chan struct{}, 1),
	}
}

// Refresh makes the runner re-evaluate the schedule without waiting.
func (r *Runner) Refresh() {
	select {
	case r.updateChan <- struct{}{}:
	default:
	}
}

// Start blocks until ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("scheduler runner started", "interval", r.interval, "batch_size", r.batchSize)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("scheduler runner stopped")
			return
		case <-r.updateChan:
		case <-timer.C:
		}

		wait := r.tick(ctx)
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)
	}
}

// tick processes one batch and returns how long to sleep before the next one.
func (r *Runner) tick(ctx context.Context) time.Duration {
	report, err := r.engine.ProcessDue(ctx, r.batchSize)
	if err != nil {
		r.logger.Error("process due notifications", "err", err)
		return r.interval
	}
	if report.Processed+report.Skipped >= r.batchSize {
		// Full batch: more entries may already be due.
		return 0
	}
	next, ok, err := r.engine.NextDue(ctx)
	if err != nil || !ok {
		return r.interval
	}
	wait := time.Until(next)
	switch {
	case wait <= 0 && report.Processed == 0:
		// Due entries we could not claim; back off instead of spinning.
		return r.interval
	case wait < 0:
		return 0
	case wait > r.interval:
		return r.interval
	}
	return wait
}
