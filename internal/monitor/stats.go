// Package monitor collects staging statistics for the pipeline.
package monitor

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Stats collects pipeline counters in a lock-free manner.
type Stats struct {
	produced    atomic.Uint64
	filtered    atomic.Uint64
	enqueued    atomic.Uint64
	rejected    atomic.Uint64
	overwritten atomic.Uint64
	dequeued    atomic.Uint64
	lost        atomic.Uint64
	highWater   atomic.Int64
	startTime   time.Time
}

// NewStats creates a new statistics collector.
func NewStats() *Stats {
	return &Stats{
		startTime: time.Now(),
	}
}

// RecordProduced counts a frame read from the source.
func (s *Stats) RecordProduced() { s.produced.Add(1) }

// RecordFiltered counts a frame the filter chain refused.
func (s *Stats) RecordFiltered() { s.filtered.Add(1) }

// RecordEnqueued counts a frame accepted by the ring and tracks the
// occupancy high-water mark.
func (s *Stats) RecordEnqueued(occupancy int) {
	s.enqueued.Add(1)
	v := int64(occupancy)
	for {
		cur := s.highWater.Load()
		if v <= cur || s.highWater.CompareAndSwap(cur, v) {
			return
		}
	}
}

// RecordRejected counts a frame refused because the ring was full.
func (s *Stats) RecordRejected() { s.rejected.Add(1) }

// RecordOverwritten counts an old frame dropped to make room.
func (s *Stats) RecordOverwritten() { s.overwritten.Add(1) }

// RecordDequeued counts n frames handed to every sink.
func (s *Stats) RecordDequeued(n int) { s.dequeued.Add(uint64(n)) }

// RecordLost counts n frames taken off the ring but never delivered, because
// the run was cancelled or a sink failed.
func (s *Stats) RecordLost(n int) { s.lost.Add(uint64(n)) }

// Produced returns the number of frames read from the source.
func (s *Stats) Produced() uint64 { return s.produced.Load() }

// Filtered returns the number of frames dropped by filters.
func (s *Stats) Filtered() uint64 { return s.filtered.Load() }

// Enqueued returns the number of frames accepted by the ring.
func (s *Stats) Enqueued() uint64 { return s.enqueued.Load() }

// Rejected returns the number of frames refused by a full ring.
func (s *Stats) Rejected() uint64 { return s.rejected.Load() }

// Overwritten returns the number of queued frames dropped for newer ones.
func (s *Stats) Overwritten() uint64 { return s.overwritten.Load() }

// Dequeued returns the number of frames delivered to sinks.
func (s *Stats) Dequeued() uint64 { return s.dequeued.Load() }

// Lost returns the number of dequeued frames that were never delivered.
func (s *Stats) Lost() uint64 { return s.lost.Load() }

// HighWater returns the largest occupancy seen after an enqueue.
func (s *Stats) HighWater() int { return int(s.highWater.Load()) }

// Elapsed returns the time since monitoring started.
func (s *Stats) Elapsed() time.Duration {
	return time.Since(s.startTime)
}

// Rate returns dequeued frames per second.
func (s *Stats) Rate() float64 {
	elapsed := s.Elapsed().Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(s.Dequeued()) / elapsed
}

// Summary returns a formatted summary string.
func (s *Stats) Summary() string {
	produced := s.Produced()
	rejected := s.Rejected()

	rejectRate := float64(0)
	if produced > 0 {
		rejectRate = float64(rejected) / float64(produced) * 100
	}

	return fmt.Sprintf(
		"── Summary ──\n"+
			"  Produced:    %d\n"+
			"  Filtered:    %d\n"+
			"  Enqueued:    %d\n"+
			"  Rejected:    %d (%.1f%%)\n"+
			"  Overwritten: %d\n"+
			"  Dequeued:    %d\n"+
			"  Lost:        %d\n"+
			"  High water:  %d\n"+
			"  Duration:    %s\n"+
			"  Throughput:  %.0f frames/s\n"+
			"─────────────",
		produced, s.Filtered(), s.Enqueued(),
		rejected, rejectRate,
		s.Overwritten(), s.Dequeued(), s.Lost(), s.HighWater(),
		s.Elapsed().Round(time.Millisecond),
		s.Rate(),
	)
}
