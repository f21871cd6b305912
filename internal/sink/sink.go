// Package sink defines the Sink interface for frames leaving the ring.
package sink

import (
	"github.com/Geun-Oh/rbq/internal/frame"
)

// Sink receives dequeued frames and writes them to an output destination.
type Sink interface {
	// Write outputs a single frame. The frame is only valid for the call.
	Write(f *frame.Frame) error

	// Flush ensures all buffered output is written.
	Flush() error

	// Close releases resources held by the sink.
	Close() error

	// Name returns a human-readable identifier for this sink.
	Name() string
}
