package cmd

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/Geun-Oh/rbq/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelftestPasses(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, selftest(&buf))
	assert.Equal(t, len(scenarios), strings.Count(buf.String(), "PASS"))
	assert.NotContains(t, buf.String(), "FAIL")
}

func TestNewRingRejectsBadCapacity(t *testing.T) {
	prevCap, prevSize := capacity, elemSize
	t.Cleanup(func() { capacity, elemSize = prevCap, prevSize })

	capacity, elemSize = 12, 64
	_, err := newRing()
	require.Error(t, err)

	capacity = 32
	r, err := newRing()
	require.NoError(t, err)
	assert.Equal(t, 32, r.Cap())
	assert.Equal(t, 64, r.ElemSize())
}

func TestNewRingRejectsOverflowingSize(t *testing.T) {
	prevCap, prevSize := capacity, elemSize
	t.Cleanup(func() { capacity, elemSize = prevCap, prevSize })

	capacity, elemSize = 4, (math.MaxInt/4)+1
	_, err := newRing()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overflows")
}

func TestFiltersCombineExcludes(t *testing.T) {
	o := inputOptions{keywords: []string{"GET", "POST"}, excludes: []string{"/health"}}
	chain, err := o.filters()
	require.NoError(t, err)

	match := func(s string) bool { return chain.Match(&frame.Frame{Payload: []byte(s)}) }
	assert.True(t, match("GET /api"))
	assert.True(t, match("POST /api"))
	assert.False(t, match("GET /health"))
	assert.False(t, match("PUT /api"))
}

func TestFiltersMatchAll(t *testing.T) {
	o := inputOptions{keywords: []string{"a"}, regexes: []string{`b$`}, matchAll: true}
	chain, err := o.filters()
	require.NoError(t, err)
	assert.True(t, chain.Match(&frame.Frame{Payload: []byte("a b")}))
	assert.False(t, chain.Match(&frame.Frame{Payload: []byte("a c")}))

	o.regexes = []string{"("}
	_, err = o.filters()
	require.Error(t, err)
}

func TestSourceSelection(t *testing.T) {
	o := inputOptions{}
	src, err := o.source(nil)
	require.NoError(t, err)
	assert.Equal(t, "stdin", src.Name())

	src, err = o.source([]string{"app.log"})
	require.NoError(t, err)
	assert.Equal(t, "file:app.log", src.Name())

	_, err = o.source([]string{"a", "b"})
	require.Error(t, err)

	o.exec = true
	src, err = o.source([]string{"echo", "hi"})
	require.NoError(t, err)
	assert.Equal(t, "exec:echo", src.Name())
	_, err = o.source(nil)
	require.Error(t, err)
}

func TestPipelineConfigSpikeDetector(t *testing.T) {
	o := inputOptions{spike: 3}
	cfg, err := o.pipelineConfig(nil)
	require.NoError(t, err)
	assert.NotNil(t, cfg.Spikes)

	o.spike = 0
	cfg, err = o.pipelineConfig(nil)
	require.NoError(t, err)
	assert.Nil(t, cfg.Spikes)
}
