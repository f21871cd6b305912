package sink

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/Geun-Oh/rbq/internal/frame"
	"github.com/sugawarayuuta/sonnet"
)

// jsonFrame is the serialization format for JSON Lines output. Payloads that
// are not valid UTF-8 go to PayloadBase64 and leave Payload empty.
type jsonFrame struct {
	Seq           uint64 `json:"seq"`
	Timestamp     string `json:"timestamp"`
	Stream        string `json:"stream,omitempty"`
	Payload       string `json:"payload"`
	PayloadBase64 string `json:"payload_base64,omitempty"`
	Truncated     bool   `json:"truncated,omitempty"`
}

// JSONSink writes frames as JSON Lines (one JSON object per line).
type JSONSink struct {
	w io.Writer
}

// NewJSONSink creates a JSON Lines sink writing to w (stdout when nil).
func NewJSONSink(w io.Writer) *JSONSink {
	if w == nil {
		w = os.Stdout
	}
	return &JSONSink{w: w}
}

// Write serializes a frame as a single JSON line.
func (s *JSONSink) Write(f *frame.Frame) error {
	jf := jsonFrame{
		Seq:       f.Seq,
		Timestamp: f.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		Stream:    f.Stream,
		Truncated: f.Truncated,
	}
	if utf8.Valid(f.Payload) {
		jf.Payload = string(f.Payload)
	} else {
		jf.PayloadBase64 = base64.StdEncoding.EncodeToString(f.Payload)
	}
	b, err := sonnet.Marshal(jf)
	if err != nil {
		return fmt.Errorf("sink: encode frame %d: %w", f.Seq, err)
	}
	_, err = s.w.Write(append(b, '\n'))
	return err
}

// Flush is a no-op for JSON sink.
func (s *JSONSink) Flush() error { return nil }

// Close is a no-op for JSON sink.
func (s *JSONSink) Close() error { return nil }

// Name returns the sink identifier.
func (s *JSONSink) Name() string { return "json" }

// FileSink appends frames to a file through an inner text, hex or JSON sink.
type FileSink struct {
	inner Sink
	file  *os.File
}

// NewFileSink creates a sink that writes to the given file path.
// format selects the inner formatter: "json", "hex" or "text" (default).
func NewFileSink(path string, format string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open output file %s: %w", path, err)
	}

	var inner Sink
	switch format {
	case "json":
		inner = NewJSONSink(f)
	case "hex":
		inner = NewTerminalSink(f, false, true)
	default:
		inner = NewTerminalSink(f, false, false)
	}

	return &FileSink{inner: inner, file: f}, nil
}

// Write delegates to the inner sink.
func (s *FileSink) Write(f *frame.Frame) error {
	return s.inner.Write(f)
}

// Flush syncs the file to disk.
func (s *FileSink) Flush() error {
	return s.file.Sync()
}

// Close flushes and closes the file.
func (s *FileSink) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	return s.file.Close()
}

// Name returns the sink identifier.
func (s *FileSink) Name() string {
	return "file:" + s.file.Name()
}
