package source

import (
	"context"
	"os"

	"github.com/Geun-Oh/rbq/internal/frame"
)

// StdinSource reads lines from os.Stdin (pipe mode).
type StdinSource struct {
	inner *ReaderSource
}

// NewStdinSource creates a source that reads from stdin.
func NewStdinSource() *StdinSource {
	return &StdinSource{inner: NewReaderSource("stdin", os.Stdin)}
}

// Name returns the source identifier.
func (s *StdinSource) Name() string {
	return "stdin"
}

// Start reads from stdin and returns a channel of frames.
func (s *StdinSource) Start(ctx context.Context) (<-chan frame.Frame, error) {
	return s.inner.Start(ctx)
}
