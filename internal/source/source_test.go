package source

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Geun-Oh/rbq/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, s Source) []frame.Frame {
	t.Helper()
	ch, err := s.Start(context.Background())
	require.NoError(t, err)
	var out []frame.Frame
	for f := range ch {
		out = append(out, f)
	}
	return out
}

func TestReaderSourceNumbersLines(t *testing.T) {
	s := NewReaderSource("test", strings.NewReader("a\nbb\nccc\n"))
	frames := collect(t, s)

	require.Len(t, frames, 3)
	for i, want := range []string{"a", "bb", "ccc"} {
		assert.Equal(t, uint64(i+1), frames[i].Seq)
		assert.Equal(t, want, string(frames[i].Payload))
		assert.Equal(t, "test", frames[i].Stream)
	}
	assert.Equal(t, "test", s.Name())
}

func TestReaderSourceStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lines := strings.Repeat("x\n", chanSize*4)
	ch, err := NewReaderSource("test", strings.NewReader(lines)).Start(ctx)
	require.NoError(t, err)

	<-ch
	cancel()
	n := 0
	for range ch {
		n++
	}
	assert.Less(t, n, chanSize*4)
}

func TestFileSourceReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.log")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\n"), 0o644))

	s := NewFileSource(path, false)
	frames := collect(t, s)
	require.Len(t, frames, 2)
	assert.Equal(t, "two", string(frames[1].Payload))
	assert.Equal(t, uint64(2), frames[1].Seq)
	assert.Equal(t, "file:"+path, s.Name())
}

func TestFileSourceMissingFile(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "nope"), false).Start(context.Background())
	require.Error(t, err)
}

func TestFileSourceFollowsAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grow.log")
	require.NoError(t, os.WriteFile(path, []byte("first\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := NewFileSource(path, true).Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", string((<-ch).Payload))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("second\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case fr := <-ch:
		assert.Equal(t, "second", string(fr.Payload))
		assert.Equal(t, uint64(2), fr.Seq)
	case <-time.After(5 * time.Second):
		t.Fatal("appended line was not delivered")
	}

	cancel()
	for range ch {
	}
}

func TestExecSourceReadsBothStreams(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	frames := collect(t, NewExecSource("sh", []string{"-c", "echo out; echo err 1>&2"}))

	require.Len(t, frames, 2)
	got := map[string]string{}
	for _, f := range frames {
		got[f.Stream] = string(f.Payload)
	}
	assert.Equal(t, map[string]string{"stdout": "out", "stderr": "err"}, got)
}

func TestFileSourceJoinsLineWrittenInParts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parts.log")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := NewFileSource(path, true).Start(ctx)
	require.NoError(t, err)

	// Let at least one poll observe the unterminated "abc".
	time.Sleep(3 * followPoll / 2)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("def\r\nghi\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	var got []string
	for len(got) < 2 {
		select {
		case fr := <-ch:
			got = append(got, string(fr.Payload))
		case <-time.After(5 * time.Second):
			t.Fatalf("got %q, want two lines", got)
		}
	}
	assert.Equal(t, []string{"abcdef", "ghi"}, got)

	cancel()
	for range ch {
	}
}

func TestFileSourceEmitsUnterminatedLastLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tail.log")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo"), 0o644))

	frames := collect(t, NewFileSource(path, false))
	require.Len(t, frames, 2)
	assert.Equal(t, "two", string(frames[1].Payload))
}

func TestReaderSourceClosesIdleReaderOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := NewReaderSource("stdin", pr).Start(ctx)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "no frame expected from an idle reader")
	case <-time.After(2 * time.Second):
		t.Fatal("source kept blocking on an idle reader after cancel")
	}

	_, err = pw.Write([]byte("late\n"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}
