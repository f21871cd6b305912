package source

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/Geun-Oh/rbq/internal/frame"
)

// followPoll is how often a followed file is checked for new lines.
const followPoll = 100 * time.Millisecond

// FileSource reads lines from a file, optionally following new writes (tail -f).
type FileSource struct {
	path   string
	follow bool
	seq    atomic.Uint64
}

// NewFileSource creates a source that reads from a file.
// If follow is true, it continues reading as new lines are appended.
func NewFileSource(path string, follow bool) *FileSource {
	return &FileSource{
		path:   path,
		follow: follow,
	}
}

// Name returns the source identifier.
func (s *FileSource) Name() string {
	return fmt.Sprintf("file:%s", s.path)
}

// Start opens the file and returns a channel of frames.
func (s *FileSource) Start(ctx context.Context) (<-chan frame.Frame, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open file %s: %w", s.path, err)
	}

	ch := make(chan frame.Frame, chanSize)

	go func() {
		defer close(ch)
		defer f.Close()

		lr := newLineReader(f)
		for {
			if !lr.drain(ctx, "file", &s.seq, ch) {
				return
			}
			if !s.follow {
				lr.flush(ctx, "file", &s.seq, ch)
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(followPoll):
			}
		}
	}()

	return ch, nil
}
