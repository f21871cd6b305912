package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Geun-Oh/rbq/internal/filter"
	"github.com/Geun-Oh/rbq/internal/monitor"
	"github.com/Geun-Oh/rbq/internal/pipeline"
	"github.com/Geun-Oh/rbq/internal/sink"
	"github.com/Geun-Oh/rbq/internal/source"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

// spikeWindow is the averaging window of the input spike detector.
const spikeWindow = 10 * time.Second

// inputOptions are the flags shared by pipe and watch.
type inputOptions struct {
	follow    bool
	exec      bool
	keywords  []string
	regexes   []string
	excludes  []string
	matchAll  bool
	rate      float64
	batch     int
	overwrite bool
	spike     float64
}

func (o *inputOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVarP(&o.follow, "follow", "f", false, "keep reading the file as it grows")
	f.BoolVarP(&o.exec, "exec", "x", false, "treat the arguments as a command to run")
	f.StringSliceVarP(&o.keywords, "keyword", "k", nil, "stage only lines containing this keyword (repeatable)")
	f.StringSliceVar(&o.regexes, "regex", nil, "stage only lines matching this regular expression (repeatable)")
	f.StringSliceVar(&o.excludes, "exclude", nil, "never stage lines containing this text (repeatable)")
	f.BoolVar(&o.matchAll, "match-all", false, "require every keyword and regex to match instead of any")
	f.Float64Var(&o.rate, "rate", 0, "drain at most this many frames per second (0 = unlimited)")
	f.IntVar(&o.batch, "batch", 1, "frames drained per dequeue")
	f.BoolVar(&o.overwrite, "overwrite", false, "drop the oldest frame when the ring is full instead of the newest")
	f.Float64Var(&o.spike, "spike", 3, "flag seconds whose input rate exceeds this multiple of the 10s average (0 = off)")
}

func (o *inputOptions) source(args []string) (source.Source, error) {
	switch {
	case o.exec:
		if len(args) == 0 {
			return nil, fmt.Errorf("--exec needs a command")
		}
		return source.NewExecSource(args[0], args[1:]), nil
	case len(args) == 1:
		return source.NewFileSource(args[0], o.follow), nil
	case len(args) == 0:
		return source.NewStdinSource(), nil
	default:
		return nil, fmt.Errorf("expected at most one file, got %d arguments", len(args))
	}
}

func (o *inputOptions) filters() (*filter.Chain, error) {
	mode := filter.MatchAny
	if o.matchAll {
		mode = filter.MatchAll
	}
	match := filter.NewChain(mode)
	for _, k := range o.keywords {
		match.Add(filter.NewKeywordFilter(k))
	}
	for _, p := range o.regexes {
		re, err := filter.NewRegexFilter(p)
		if err != nil {
			return nil, err
		}
		match.Add(re)
	}
	if len(o.excludes) == 0 {
		return match, nil
	}
	chain := filter.NewChain(filter.MatchAll, filter.NewExcludeFilter(o.excludes...))
	if match.Len() > 0 {
		chain.Add(match)
	}
	return chain, nil
}

// pipelineConfig builds everything except sinks.
func (o *inputOptions) pipelineConfig(args []string) (*pipeline.Config, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}
	ring, err := newRing()
	if err != nil {
		return nil, err
	}
	src, err := o.source(args)
	if err != nil {
		return nil, err
	}
	chain, err := o.filters()
	if err != nil {
		return nil, err
	}

	cfg := &pipeline.Config{
		Source:    src,
		Ring:      ring,
		Filters:   chain,
		Stats:     monitor.NewStats(),
		Batch:     o.batch,
		Overwrite: o.overwrite,
		Logger:    logger,
	}
	if o.spike > 0 {
		cfg.Spikes = monitor.NewRateDetector(spikeWindow, o.spike)
	}
	if o.rate > 0 {
		cfg.Limiter = rate.NewLimiter(rate.Limit(o.rate), max(o.batch, 1))
	}
	return cfg, nil
}

var (
	pipeOpts    inputOptions
	format      string
	output      string
	color       bool
	showStats   bool
	printDigest bool

	pipeCmd = &cobra.Command{
		Use:   "pipe [file | --exec command args...]",
		Short: "Stage input lines through the ring and print what is drained",
		Example: `  journalctl -f | rbq pipe -c 64 --rate 100 --stats
  rbq pipe -e 128 --format json app.log
  rbq pipe --exec -k ERROR -- make test`,
		RunE: runPipe,
	}
)

func init() {
	pipeOpts.register(pipeCmd)
	f := pipeCmd.Flags()
	f.StringVar(&format, "format", "text", "output format: text, json or hex")
	f.StringVarP(&output, "output", "o", "", "append output to this file instead of stdout")
	f.BoolVar(&color, "color", false, "colorize text output")
	f.BoolVar(&showStats, "stats", false, "print a staging summary on exit")
	f.BoolVar(&printDigest, "digest", false, "print the SHA3-256 of the delivered stream on exit")
}

func newSink() (sink.Sink, error) {
	if output != "" {
		return sink.NewFileSink(output, format)
	}
	switch format {
	case "json":
		return sink.NewJSONSink(os.Stdout), nil
	case "hex":
		return sink.NewTerminalSink(os.Stdout, false, true), nil
	case "text":
		return sink.NewTerminalSink(os.Stdout, color, false), nil
	default:
		return nil, fmt.Errorf("unknown --format %q", format)
	}
}

func runPipe(cmd *cobra.Command, args []string) error {
	cfg, err := pipeOpts.pipelineConfig(args)
	if err != nil {
		return err
	}
	out, err := newSink()
	if err != nil {
		return err
	}
	cfg.Sinks = []sink.Sink{out}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return err
	}

	if showStats {
		fmt.Fprintln(os.Stderr, cfg.Stats.Summary())
	}
	if printDigest {
		fmt.Fprintf(os.Stderr, "sha3-256 %s\n", hex.EncodeToString(res.Digest))
	}
	return nil
}
