package sink

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Geun-Oh/rbq/internal/frame"
)

const (
	colorReset  = "\033[0m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

// TerminalSink writes frames as text lines, or as hex dumps when hex is set.
type TerminalSink struct {
	w     io.Writer
	color bool
	hex   bool
}

// NewTerminalSink creates a sink that writes to w (stdout when nil).
// With color, timestamps are dimmed and truncated frames highlighted.
func NewTerminalSink(w io.Writer, color, hex bool) *TerminalSink {
	if w == nil {
		w = os.Stdout
	}
	return &TerminalSink{w: w, color: color, hex: hex}
}

// Write outputs a formatted frame.
func (s *TerminalSink) Write(f *frame.Frame) error {
	if s.hex {
		_, err := fmt.Fprintf(s.w, "#%d %d bytes\n%s", f.Seq, len(f.Payload), hex.Dump(f.Payload))
		return err
	}

	ts := f.Timestamp.Format(time.RFC3339)
	mark := ""
	if f.Truncated {
		mark = " (truncated)"
	}
	if !s.color {
		_, err := fmt.Fprintf(s.w, "[%s][%s][#%d]: %s%s\n", ts, f.Stream, f.Seq, f.Payload, mark)
		return err
	}
	if f.Truncated {
		mark = colorYellow + mark + colorReset
	}
	_, err := fmt.Fprintf(s.w, "%s[%s]%s[%s][#%d]: %s%s\n",
		colorGray, ts, colorReset,
		f.Stream, f.Seq,
		f.Payload, mark,
	)
	return err
}

// Flush is a no-op for terminal output.
func (s *TerminalSink) Flush() error { return nil }

// Close is a no-op for terminal output.
func (s *TerminalSink) Close() error { return nil }

// Name returns the sink identifier.
func (s *TerminalSink) Name() string {
	if s.hex {
		return "hex"
	}
	return "terminal"
}
