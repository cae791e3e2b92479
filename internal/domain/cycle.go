package domain

import "time"

// CycleResult summarizes one execution of the ingestion cycle.
type CycleResult struct {
	Timestamp    time.Time     // shared tick timestamp assigned to the cycle
	NewAssets    int           // registry rows created this cycle
	TicksWritten int           // price ticks committed this cycle
	Duration     time.Duration // wall time of the cycle
}
