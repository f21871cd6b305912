package cmd

import (
	"fmt"
	"io"

	"github.com/Geun-Oh/rbq/internal/buffer"
	"github.com/spf13/cobra"
)

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Run the ring buffer acceptance scenarios and report PASS/FAIL",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return selftest(cmd.OutOrStdout())
	},
}

type scenario struct {
	name string
	run  func(r *buffer.Ring) error
}

var scenarios = []scenario{
	{"full ring rejects newest", func(r *buffer.Ring) error {
		for i := 0; i < 16; i++ {
			if !r.Enqueue([]byte{byte(i)}) {
				return fmt.Errorf("enqueue %d failed", i)
			}
		}
		if !r.IsFull() || r.Len() != 16 {
			return fmt.Errorf("want full with 16 elements, got %d", r.Len())
		}
		if r.Enqueue([]byte{16}) || r.Len() != 16 {
			return fmt.Errorf("enqueue on a full ring succeeded")
		}
		out := make([]byte, 1)
		if !r.Dequeue(out) || out[0] != 0 {
			return fmt.Errorf("dequeue returned %d, want 0", out[0])
		}
		if r.Len() != 15 || r.IsFull() {
			return fmt.Errorf("want 15 elements after dequeue, got %d", r.Len())
		}
		return nil
	}},
	{"peek follows tail", func(r *buffer.Ring) error {
		for i := 0; i < 5; i++ {
			r.Enqueue([]byte{byte(i)})
		}
		out := make([]byte, 1)
		for _, c := range []struct{ idx, want int }{{0, 0}, {4, 4}} {
			if !r.Peek(out, c.idx) || int(out[0]) != c.want {
				return fmt.Errorf("peek(%d) = %d, want %d", c.idx, out[0], c.want)
			}
		}
		if r.Peek(out, 5) {
			return fmt.Errorf("peek(5) succeeded on 5 elements")
		}
		if !r.Dequeue(out) || out[0] != 0 {
			return fmt.Errorf("dequeue returned %d, want 0", out[0])
		}
		for _, c := range []struct{ idx, want int }{{0, 1}, {3, 4}} {
			if !r.Peek(out, c.idx) || int(out[0]) != c.want {
				return fmt.Errorf("peek(%d) = %d, want %d", c.idx, out[0], c.want)
			}
		}
		return nil
	}},
	{"wrap-around keeps order", func(r *buffer.Ring) error {
		for i := 0; i < 16; i++ {
			r.Enqueue([]byte{byte(i)})
		}
		out := make([]byte, 1)
		for i := 0; i < 8; i++ {
			r.Dequeue(out)
		}
		for i := 16; i < 24; i++ {
			if !r.Enqueue([]byte{byte(i)}) {
				return fmt.Errorf("enqueue %d failed", i)
			}
		}
		for want := 8; want < 24; want++ {
			if !r.Dequeue(out) || int(out[0]) != want {
				return fmt.Errorf("dequeue returned %d, want %d", out[0], want)
			}
		}
		if !r.IsEmpty() {
			return fmt.Errorf("ring not empty after draining")
		}
		return nil
	}},
	{"empty ring leaves output untouched", func(r *buffer.Ring) error {
		out := []byte{0xA5}
		if r.Dequeue(out) || r.Peek(out, 0) || out[0] != 0xA5 {
			return fmt.Errorf("read from an empty ring")
		}
		return nil
	}},
	{"non power of two is rejected", func(r *buffer.Ring) error {
		if err := r.Init(buffer.Attr{Storage: make([]byte, 12), ElemSize: 1, NumElems: 12}); err == nil {
			return fmt.Errorf("capacity 12 accepted")
		}
		if err := r.Init(buffer.Attr{Storage: make([]byte, 1), ElemSize: 1, NumElems: 0}); err == nil {
			return fmt.Errorf("capacity 0 accepted")
		}
		if r.Cap() != 16 {
			return fmt.Errorf("failed init changed capacity to %d", r.Cap())
		}
		return nil
	}},
}

// selftest runs every scenario on a fresh 16-slot byte ring.
func selftest(w io.Writer) error {
	failed := 0
	for _, s := range scenarios {
		r, err := buffer.New(buffer.Attr{Storage: make([]byte, 16), ElemSize: 1, NumElems: 16})
		if err != nil {
			return err
		}
		if err := s.run(r); err != nil {
			failed++
			fmt.Fprintf(w, "FAIL %s: %v\n", s.name, err)
			continue
		}
		fmt.Fprintf(w, "PASS %s\n", s.name)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(scenarios))
	}
	return nil
}
