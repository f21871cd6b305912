package tui

import (
	"context"
	"sync"
	"time"

	"github.com/Geun-Oh/rbq/internal/frame"
	"github.com/Geun-Oh/rbq/internal/pipeline"
	"github.com/Geun-Oh/rbq/internal/sink"
	tea "github.com/charmbracelet/bubbletea"
)

// RunConfig holds configuration for the dashboard.
type RunConfig struct {
	Pipeline *pipeline.Config
}

// programSink forwards delivered frames to the dashboard.
type programSink struct {
	p *tea.Program
}

func (s programSink) Write(f *frame.Frame) error {
	c := *f
	c.Payload = append([]byte(nil), f.Payload...)
	s.p.Send(FrameMsg(c))
	return nil
}

func (s programSink) Flush() error { return nil }
func (s programSink) Close() error { return nil }
func (s programSink) Name() string { return "tui" }

// Run starts the dashboard with a live pipeline. Sinks already present in the
// pipeline config keep receiving frames. Blocks until the user quits.
func Run(ctx context.Context, cfg *RunConfig) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pc := cfg.Pipeline
	model := NewModel(pc.Stats, pc.Ring.Cap(), pc.Source.Name())
	program := tea.NewProgram(model, tea.WithAltScreen())

	pc.Sinks = append(pc.Sinks, programSink{p: program})
	prev := pc.OnSample
	pc.OnSample = func(s pipeline.Sample) {
		if prev != nil {
			prev(s)
		}
		program.Send(SampleMsg(s))
	}
	prevSpike := pc.OnSpike
	pc.OnSpike = func(n int64) {
		if prevSpike != nil {
			prevSpike(n)
		}
		program.Send(SpikeMsg{PerSecond: n, At: time.Now()})
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := pipeline.Run(ctx, pc)
		program.Send(DoneMsg{Err: err})
	}()

	_, err := program.Run()

	cancel()
	wg.Wait()
	return err
}

var _ sink.Sink = programSink{}
