// Package frame defines the Frame type staged through the ring and its
// fixed-size slot encoding.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Slot layout, big endian:
//
//	[0:8)   Seq
//	[8:16)  Timestamp, Unix nanoseconds
//	[16]    stream code
//	[17:19) payload length, top bit set when truncated
//	[19:)   payload, zero padded
const HeaderSize = 19

var streams = []string{"", "stdin", "stdout", "stderr", "file"}

func streamCode(s string) byte {
	for i, name := range streams {
		if name == s {
			return byte(i)
		}
	}
	return 0
}

func streamName(c byte) string {
	if int(c) < len(streams) {
		return streams[c]
	}
	return ""
}

const (
	truncatedBit = 0x8000
	maxPayload   = truncatedBit - 1
)

var (
	// ErrSlotTooSmall is returned when a slot cannot hold a header and one payload byte.
	ErrSlotTooSmall = errors.New("frame: slot too small")
	// ErrCorrupt is returned when a slot declares more payload than it holds.
	ErrCorrupt = errors.New("frame: corrupt slot")
)

// Frame is one line of input travelling through the pipeline.
type Frame struct {
	Seq       uint64    // monotonic sequence number assigned by the source
	Timestamp time.Time // read time
	Stream    string    // stdin, stdout, stderr or file; anything else encodes as ""
	Payload   []byte
	Truncated bool // payload was cut to fit the slot
}

// MinElemSize returns the smallest element size Encode accepts.
func MinElemSize() int {
	return HeaderSize + 1
}

// Encode writes f into dst, which is exactly one ring element. The payload is
// truncated to fit, Truncated is set accordingly and the rest of dst is zeroed.
func Encode(dst []byte, f *Frame) error {
	if len(dst) < MinElemSize() {
		return fmt.Errorf("%w: %d bytes", ErrSlotTooSmall, len(dst))
	}
	room := min(len(dst)-HeaderSize, maxPayload)
	n := copy(dst[HeaderSize:HeaderSize+room], f.Payload)
	f.Truncated = n < len(f.Payload)

	word := uint16(n)
	if f.Truncated {
		word |= truncatedBit
	}
	var nanos int64
	if !f.Timestamp.IsZero() {
		nanos = f.Timestamp.UnixNano()
	}
	binary.BigEndian.PutUint64(dst[0:8], f.Seq)
	binary.BigEndian.PutUint64(dst[8:16], uint64(nanos))
	dst[16] = streamCode(f.Stream)
	binary.BigEndian.PutUint16(dst[17:19], word)
	clear(dst[HeaderSize+n:])
	return nil
}

// Decode reads a slot written by Encode into f. Payload is copied so f does
// not alias src.
func Decode(src []byte, f *Frame) error {
	if len(src) < MinElemSize() {
		return fmt.Errorf("%w: %d bytes", ErrSlotTooSmall, len(src))
	}
	word := binary.BigEndian.Uint16(src[17:19])
	n := int(word &^ truncatedBit)
	if n > len(src)-HeaderSize {
		return fmt.Errorf("%w: payload length %d exceeds slot of %d bytes", ErrCorrupt, n, len(src))
	}
	f.Seq = binary.BigEndian.Uint64(src[0:8])
	f.Timestamp = time.Time{}
	if nanos := int64(binary.BigEndian.Uint64(src[8:16])); nanos != 0 {
		f.Timestamp = time.Unix(0, nanos)
	}
	f.Stream = streamName(src[16])
	f.Truncated = word&truncatedBit != 0
	f.Payload = append(f.Payload[:0], src[HeaderSize:HeaderSize+n]...)
	return nil
}

// Format returns a formatted string representation of the frame.
func (f *Frame) Format() string {
	ts := f.Timestamp.Format(time.RFC3339)
	if f.Stream != "" {
		return fmt.Sprintf("[%s][%s][#%d]: %s", ts, f.Stream, f.Seq, f.Payload)
	}
	return fmt.Sprintf("[%s][#%d]: %s", ts, f.Seq, f.Payload)
}
