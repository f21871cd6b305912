// Package pipeline stages frames from a Source through a ring buffer to Sinks.
//
// One producer goroutine encodes frames into ring elements and one consumer
// goroutine drains them. The ring itself is unsynchronized, so the pipeline
// guards it with a mutex.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"hash"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Geun-Oh/rbq/internal/buffer"
	"github.com/Geun-Oh/rbq/internal/filter"
	"github.com/Geun-Oh/rbq/internal/frame"
	"github.com/Geun-Oh/rbq/internal/monitor"
	"github.com/Geun-Oh/rbq/internal/sink"
	"github.com/Geun-Oh/rbq/internal/source"
	"golang.org/x/crypto/sha3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultPoll = time.Millisecond
	sampleDepth = 3
)

// Config holds pipeline configuration.
type Config struct {
	Source    source.Source
	Ring      *buffer.Ring
	Filters   *filter.Chain // optional
	Sinks     []sink.Sink
	Stats     *monitor.Stats
	Limiter   *rate.Limiter // optional; paces delivery in frames per second
	Batch     int           // frames per DequeueN, default 1
	Overwrite bool          // drop the oldest frame instead of rejecting the newest
	Poll      time.Duration // consumer sleep while the ring is empty
	Logger    *slog.Logger
	OnSample  func(Sample) // optional; called after every delivered batch

	// Spikes, if set, sees every produced frame at its timestamp. OnSpike is
	// called with the frame count of each second it flags.
	Spikes  *monitor.RateDetector
	OnSpike func(perSecond int64)
}

// Sample is a snapshot of the ring taken by the consumer just before it
// dequeues a batch, so a saturated ring shows up as Len == Cap.
type Sample struct {
	Len  int
	Cap  int
	Head []frame.Frame // up to three frames at the front of the ring, oldest first
}

// Result is returned by a completed Run.
type Result struct {
	// Digest is the SHA3-256 of every delivered payload followed by '\n'.
	Digest []byte
}

func (cfg *Config) validate() error {
	if cfg.Source == nil {
		return errors.New("pipeline: source is required")
	}
	if cfg.Ring == nil || cfg.Ring.Cap() == 0 {
		return errors.New("pipeline: an initialized ring is required")
	}
	if cfg.Ring.ElemSize() < frame.MinElemSize() {
		return fmt.Errorf("pipeline: element size %d is below the minimum of %d", cfg.Ring.ElemSize(), frame.MinElemSize())
	}
	if len(cfg.Sinks) == 0 {
		return errors.New("pipeline: at least one sink is required")
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 1
	}
	if cfg.Batch > cfg.Ring.Cap() {
		cfg.Batch = cfg.Ring.Cap()
	}
	if cfg.Limiter != nil && cfg.Limiter.Burst() < cfg.Batch {
		return fmt.Errorf("pipeline: limiter burst %d is smaller than batch %d", cfg.Limiter.Burst(), cfg.Batch)
	}
	if cfg.Poll <= 0 {
		cfg.Poll = defaultPoll
	}
	if cfg.Stats == nil {
		cfg.Stats = monitor.NewStats()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return nil
}

type stage struct {
	cfg  *Config
	mu   sync.Mutex // guards cfg.Ring
	done atomic.Bool
	pool *buffer.FramePool
	sum  hash.Hash
}

// Run executes the pipeline until the source is exhausted and the ring is
// drained, ctx is cancelled, or a sink fails. Cancellation is not an error:
// Run returns promptly with the digest of what was delivered so far, even if
// the source is still blocked waiting for input.
func Run(ctx context.Context, cfg *Config) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	ch, err := cfg.Source.Start(gctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: start source: %w", err)
	}

	st := &stage{
		cfg:  cfg,
		pool: buffer.NewFramePool(cfg.Ring.ElemSize()),
		sum:  sha3.New256(),
	}
	cfg.Logger.Info("pipeline started",
		"source", cfg.Source.Name(),
		"capacity", cfg.Ring.Cap(),
		"elem_size", cfg.Ring.ElemSize(),
		"batch", cfg.Batch,
		"overwrite", cfg.Overwrite,
		"filters", cfg.Filters.Name(),
	)

	g.Go(func() error {
		defer st.done.Store(true)
		return st.produce(gctx, ch)
	})
	g.Go(func() error {
		return st.consume(gctx)
	})
	err = g.Wait()

	for _, s := range cfg.Sinks {
		if ferr := s.Flush(); ferr != nil {
			cfg.Logger.Warn("flush sink", "sink", s.Name(), "err", ferr)
		}
		if cerr := s.Close(); cerr != nil {
			cfg.Logger.Warn("close sink", "sink", s.Name(), "err", cerr)
		}
	}

	cfg.Logger.Info("pipeline finished",
		"produced", cfg.Stats.Produced(),
		"enqueued", cfg.Stats.Enqueued(),
		"rejected", cfg.Stats.Rejected(),
		"dequeued", cfg.Stats.Dequeued(),
		"lost", cfg.Stats.Lost(),
		"high_water", cfg.Stats.HighWater(),
	)
	if err != nil {
		return nil, err
	}
	return &Result{Digest: st.sum.Sum(nil)}, nil
}

// produce offers every frame from ch to the ring until ch is closed or ctx is
// cancelled. A full ring rejects the frame unless Overwrite is set; the
// producer never waits for room.
func (st *stage) produce(ctx context.Context, ch <-chan frame.Frame) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case f, ok := <-ch:
			if !ok {
				return nil
			}
			if err := st.offer(&f); err != nil {
				return err
			}
		}
	}
}

func (st *stage) offer(f *frame.Frame) error {
	cfg := st.cfg
	cfg.Stats.RecordProduced()
	st.watchRate(f)
	if !cfg.Filters.Match(f) {
		cfg.Stats.RecordFiltered()
		return nil
	}

	slot := st.pool.Get()
	defer st.pool.Put(slot)
	if err := frame.Encode(*slot, f); err != nil {
		return fmt.Errorf("pipeline: encode frame %d: %w", f.Seq, err)
	}

	st.mu.Lock()
	ok := cfg.Ring.Enqueue(*slot)
	overwrote := false
	if !ok && cfg.Overwrite && cfg.Ring.Drop() {
		overwrote = true
		ok = cfg.Ring.Enqueue(*slot)
	}
	occupancy := cfg.Ring.Len()
	st.mu.Unlock()

	if overwrote {
		cfg.Stats.RecordOverwritten()
	}
	if !ok {
		cfg.Stats.RecordRejected()
		cfg.Logger.Debug("ring full, frame rejected", "seq", f.Seq)
		return nil
	}
	cfg.Stats.RecordEnqueued(occupancy)
	if f.Truncated {
		cfg.Logger.Debug("frame truncated", "seq", f.Seq, "len", len(f.Payload))
	}
	return nil
}

// watchRate feeds the spike detector. Frames without a timestamp count now.
func (st *stage) watchRate(f *frame.Frame) {
	cfg := st.cfg
	if cfg.Spikes == nil {
		return
	}
	ts := f.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	if !cfg.Spikes.RecordAt(ts) {
		return
	}
	n := cfg.Spikes.LatestSecond()
	cfg.Logger.Warn("input rate spike", "per_second", n, "seq", f.Seq)
	if cfg.OnSpike != nil {
		cfg.OnSpike(n)
	}
}

// consume drains the ring in batches until the producer is done and the ring
// is empty.
func (st *stage) consume(ctx context.Context) error {
	cfg := st.cfg
	size := cfg.Ring.ElemSize()
	batch := make([]byte, cfg.Batch*size)
	scratch := make([]byte, size)

	for {
		if ctx.Err() != nil {
			return nil
		}

		st.mu.Lock()
		var sample Sample
		if cfg.OnSample != nil {
			sample = st.sample(scratch)
		}
		n := cfg.Ring.DequeueN(batch)
		st.mu.Unlock()

		if n == 0 {
			// done is set after the producer's last Enqueue, so an empty ring
			// observed after done is final.
			if st.done.Load() {
				st.mu.Lock()
				empty := cfg.Ring.IsEmpty()
				st.mu.Unlock()
				if empty {
					return nil
				}
				continue
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(cfg.Poll):
			}
			continue
		}

		if cfg.Limiter != nil {
			if err := cfg.Limiter.WaitN(ctx, n); err != nil {
				cfg.Stats.RecordLost(n)
				return nil
			}
		}

		delivered, err := st.deliver(batch[:n*size], size)
		cfg.Stats.RecordDequeued(delivered)
		if err != nil {
			cfg.Stats.RecordLost(n - delivered)
			return err
		}

		if cfg.OnSample != nil {
			cfg.OnSample(sample)
		}
	}
}

// deliver decodes each element of elems and writes it to every sink. It
// returns how many frames reached all sinks.
func (st *stage) deliver(elems []byte, size int) (int, error) {
	var f frame.Frame
	n := len(elems) / size
	for i := 0; i < n; i++ {
		if err := frame.Decode(elems[i*size:(i+1)*size], &f); err != nil {
			return i, fmt.Errorf("pipeline: decode element: %w", err)
		}
		for _, s := range st.cfg.Sinks {
			if err := s.Write(&f); err != nil {
				return i, fmt.Errorf("pipeline: write to %s: %w", s.Name(), err)
			}
		}
		st.sum.Write(f.Payload)
		st.sum.Write([]byte{'\n'})
	}
	return n, nil
}

// sample peeks at the front of the ring. Must be called with mu held.
func (st *stage) sample(scratch []byte) Sample {
	r := st.cfg.Ring
	s := Sample{Len: r.Len(), Cap: r.Cap()}
	for i := 0; i < min(r.Len(), sampleDepth); i++ {
		if !r.Peek(scratch, i) {
			break
		}
		var f frame.Frame
		if frame.Decode(scratch, &f) == nil {
			s.Head = append(s.Head, f)
		}
	}
	return s
}
