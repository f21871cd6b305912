package source

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/Geun-Oh/rbq/internal/frame"
)

// ExecSource executes a command and streams its stdout/stderr lines as frames.
type ExecSource struct {
	command string
	args    []string
	seq     atomic.Uint64
}

// NewExecSource creates a source that runs the given command with arguments.
func NewExecSource(command string, args []string) *ExecSource {
	return &ExecSource{
		command: command,
		args:    args,
	}
}

// Name returns the source identifier.
func (s *ExecSource) Name() string {
	return fmt.Sprintf("exec:%s", s.command)
}

// Start executes the command and returns a channel of frames.
// The channel is closed when the command exits or ctx is cancelled.
func (s *ExecSource) Start(ctx context.Context) (<-chan frame.Frame, error) {
	cmd := exec.CommandContext(ctx, s.command, s.args...)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start command: %w", err)
	}

	ch := make(chan frame.Frame, chanSize)
	var wg sync.WaitGroup
	wg.Add(2)

	go s.readStream(ctx, "stdout", stdoutPipe, ch, &wg)
	go s.readStream(ctx, "stderr", stderrPipe, ch, &wg)

	go func() {
		wg.Wait()
		_ = cmd.Wait()
		close(ch)
	}()

	return ch, nil
}

func (s *ExecSource) readStream(ctx context.Context, stream string, r io.Reader, ch chan<- frame.Frame, wg *sync.WaitGroup) {
	defer wg.Done()
	scanLines(ctx, newScanner(r), stream, &s.seq, ch)
}
