package monitor

import (
	"sync"
	"time"
)

// bucket counts the events of one wall-clock second.
type bucket struct {
	sec      time.Time
	n        int64
	reported bool
}

// RateDetector tracks per-second event counts over a sliding window and flags
// seconds whose count exceeds threshold times the average of the others.
type RateDetector struct {
	mu        sync.Mutex
	window    time.Duration
	threshold float64 // spike multiplier over the moving average, e.g. 3.0
	buckets   []bucket
}

// NewRateDetector creates a detector. Windows under a second fall back to 10s
// and a non-positive threshold falls back to 3.
func NewRateDetector(window time.Duration, threshold float64) *RateDetector {
	if window < time.Second {
		window = 10 * time.Second
	}
	if threshold <= 0 {
		threshold = 3.0
	}
	return &RateDetector{
		window:    window,
		threshold: threshold,
	}
}

// Record counts an event now. See RecordAt.
func (r *RateDetector) Record() bool {
	return r.RecordAt(time.Now())
}

// RecordAt counts an event that happened at t and reports whether it tipped
// its second into a spike. Each second is reported at most once. Events older
// than the newest second are counted in the newest second.
func (r *RateDetector) RecordAt(t time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sec := t.Truncate(time.Second)
	if n := len(r.buckets); n > 0 && !sec.After(r.buckets[n-1].sec) {
		r.buckets[n-1].n++
	} else {
		r.buckets = append(r.buckets, bucket{sec: sec, n: 1})
		r.prune(sec)
	}

	last := &r.buckets[len(r.buckets)-1]
	if last.reported || !r.isSpiking() {
		return false
	}
	last.reported = true
	return true
}

// CurrentRate returns events per second over the window ending at the newest
// recorded second.
func (r *RateDetector) CurrentRate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var total int64
	for _, b := range r.buckets {
		total += b.n
	}
	return float64(total) / r.window.Seconds()
}

// LatestSecond returns the event count of the newest recorded second.
func (r *RateDetector) LatestSecond() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.buckets) == 0 {
		return 0
	}
	return r.buckets[len(r.buckets)-1].n
}

// prune drops buckets that fell out of the window ending at newest. Must be
// called with lock held.
func (r *RateDetector) prune(newest time.Time) {
	cutoff := newest.Add(-r.window)
	i := 0
	for i < len(r.buckets) && !r.buckets[i].sec.After(cutoff) {
		i++
	}
	if i > 0 {
		r.buckets = append(r.buckets[:0], r.buckets[i:]...)
	}
}

// isSpiking compares the newest bucket with the average of the older ones.
// Must be called with lock held.
func (r *RateDetector) isSpiking() bool {
	if len(r.buckets) < 3 {
		return false
	}

	var sum int64
	for _, b := range r.buckets[:len(r.buckets)-1] {
		sum += b.n
	}
	avg := float64(sum) / float64(len(r.buckets)-1)
	if avg == 0 {
		return false
	}
	return float64(r.buckets[len(r.buckets)-1].n) > avg*r.threshold
}
