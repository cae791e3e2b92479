package ingestion

import (
	"context"
	"log"
	"time"
)

// DefaultInterval is the gap between scheduled cycles.
const DefaultInterval = 1 * time.Hour

// Scheduler runs collection cycles at a fixed interval. The first cycle
// starts immediately. The loop body is sequential, so cycles never
// overlap; tickers drop missed fires, so a cycle longer than the interval
// defers the next one until it completes.
type Scheduler struct {
	collector *Collector
	interval  time.Duration
	logger    *log.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(collector *Collector, interval time.Duration, logger *log.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		collector: collector,
		interval:  interval,
		logger:    logger,
	}
}

// Run blocks until the context is cancelled. Cancellation stops
// scheduling; an in-flight cycle runs to completion.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Printf("Starting collection scheduler, interval: %v", s.interval)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Println("Scheduler stopping...")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce executes a single cycle. Failures are logged, never fatal: the
// next scheduled cycle still runs.
func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	result, err := s.collector.RunCycle(ctx)
	if err != nil {
		s.logger.Printf("Collection cycle failed: %v", err)
		return
	}

	s.logger.Printf("Collection cycle committed: %d ticks, %d new assets in %v",
		result.TicksWritten, result.NewAssets, result.Duration)
}
