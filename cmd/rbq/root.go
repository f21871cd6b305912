package cmd

import (
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/Geun-Oh/rbq/internal/buffer"
	"github.com/spf13/cobra"
)

var (
	capacity int
	elemSize int
	logLevel string

	rootCmd = &cobra.Command{
		Use:   "rbq",
		Short: "rbq stages line frames through a fixed-size ring buffer",
		Long: `rbq reads lines from stdin, a file or a command, stages them through a
power-of-two ring buffer of fixed-size elements and writes what the consumer
drains. A full ring rejects new frames unless --overwrite is given.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().IntVarP(&capacity, "capacity", "c", 16, "ring capacity in elements (power of two)")
	rootCmd.PersistentFlags().IntVarP(&elemSize, "elem-size", "e", 64, "element size in bytes, including the frame header")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")

	rootCmd.AddCommand(pipeCmd, watchCmd, selftestCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

// newRing allocates the backing storage once and attaches a ring to it.
func newRing() (*buffer.Ring, error) {
	if capacity <= 0 || elemSize <= 0 || capacity > buffer.MaxElems {
		return nil, fmt.Errorf("invalid ring size: %d elements of %d bytes", capacity, elemSize)
	}
	if elemSize > math.MaxInt/capacity {
		return nil, fmt.Errorf("ring size overflows: %d elements of %d bytes", capacity, elemSize)
	}
	storage := make([]byte, capacity*elemSize)
	r, err := buffer.New(buffer.Attr{Storage: storage, ElemSize: elemSize, NumElems: capacity})
	if err != nil {
		return nil, fmt.Errorf("create ring: %w", err)
	}
	return r, nil
}
