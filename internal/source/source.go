// Package source defines the Source interface and the line readers that feed
// frames into the staging pipeline.
package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/Geun-Oh/rbq/internal/frame"
)

// Source reads input and emits one Frame per line on a channel.
// Implementations must close the returned channel when the source is exhausted
// or the context is cancelled.
type Source interface {
	// Start begins reading from the source. The returned channel will receive
	// frames until the source is exhausted or ctx is cancelled.
	Start(ctx context.Context) (<-chan frame.Frame, error)

	// Name returns a human-readable identifier for this source.
	Name() string
}

const (
	chanSize   = 256
	readSize   = 64 * 1024
	maxLineLen = 1024 * 1024
)

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, readSize), maxLineLen)
	return scanner
}

// emit sends a copy of line on ch as the next frame. It returns false if ctx
// was cancelled first.
func emit(ctx context.Context, line []byte, stream string, seq *atomic.Uint64, ch chan<- frame.Frame) bool {
	payload := make([]byte, len(line))
	copy(payload, line)

	f := frame.Frame{
		Seq:       seq.Add(1),
		Timestamp: time.Now(),
		Stream:    stream,
		Payload:   payload,
	}
	select {
	case <-ctx.Done():
		return false
	case ch <- f:
		return true
	}
}

// scanLines sends every line of scanner on ch, numbering frames from seq.
// It returns false if ctx was cancelled.
func scanLines(ctx context.Context, scanner *bufio.Scanner, stream string, seq *atomic.Uint64, ch chan<- frame.Frame) bool {
	for scanner.Scan() {
		if !emit(ctx, scanner.Bytes(), stream, seq, ch) {
			return false
		}
	}
	return true
}

// lineReader splits a growing input into lines. Bytes after the last newline
// are held back until their newline arrives, so a line written in pieces still
// becomes one frame.
type lineReader struct {
	br      *bufio.Reader
	partial []byte
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{br: bufio.NewReaderSize(r, readSize)}
}

// drain emits every complete line readable right now. It returns true at EOF
// and false if ctx was cancelled or the read failed.
func (lr *lineReader) drain(ctx context.Context, stream string, seq *atomic.Uint64, ch chan<- frame.Frame) bool {
	for {
		chunk, err := lr.br.ReadSlice('\n')
		lr.partial = append(lr.partial, chunk...)
		switch {
		case err == nil:
			line := bytes.TrimSuffix(lr.partial[:len(lr.partial)-1], []byte{'\r'})
			if !emit(ctx, line, stream, seq, ch) {
				return false
			}
			lr.partial = lr.partial[:0]
		case errors.Is(err, bufio.ErrBufferFull):
			if len(lr.partial) >= maxLineLen {
				if !emit(ctx, lr.partial, stream, seq, ch) {
					return false
				}
				lr.partial = lr.partial[:0]
			}
		case errors.Is(err, io.EOF):
			return true
		default:
			return false
		}
	}
}

// flush emits the held-back tail, if any, as a final line.
func (lr *lineReader) flush(ctx context.Context, stream string, seq *atomic.Uint64, ch chan<- frame.Frame) bool {
	if len(lr.partial) == 0 {
		return true
	}
	line := lr.partial
	lr.partial = nil
	return emit(ctx, line, stream, seq, ch)
}

// ReaderSource emits the lines of an arbitrary reader.
type ReaderSource struct {
	name string
	r    io.Reader
	seq  atomic.Uint64
}

// NewReaderSource creates a source reading lines from r.
func NewReaderSource(name string, r io.Reader) *ReaderSource {
	return &ReaderSource{name: name, r: r}
}

// Name returns the source identifier.
func (s *ReaderSource) Name() string {
	return s.name
}

// Start reads from the underlying reader until EOF. If the reader is an
// io.Closer it is closed when ctx is cancelled.
func (s *ReaderSource) Start(ctx context.Context) (<-chan frame.Frame, error) {
	ch := make(chan frame.Frame, chanSize)
	go func() {
		defer close(ch)
		// A blocked Read only returns once the reader is closed.
		if c, ok := s.r.(io.Closer); ok {
			stop := context.AfterFunc(ctx, func() { _ = c.Close() })
			defer stop()
		}
		scanLines(ctx, newScanner(s.r), s.name, &s.seq, ch)
	}()
	return ch, nil
}
