package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Geun-Oh/rbq/internal/tui"
	"github.com/spf13/cobra"
)

var (
	watchOpts inputOptions

	watchCmd = &cobra.Command{
		Use:   "watch [file | --exec command args...]",
		Short: "Show the ring filling and draining in a terminal dashboard",
		RunE:  runWatch,
	}
)

func init() {
	watchOpts.register(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := watchOpts.pipelineConfig(args)
	if err != nil {
		return err
	}
	// The dashboard owns the terminal.
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return tui.Run(ctx, &tui.RunConfig{Pipeline: cfg})
}
