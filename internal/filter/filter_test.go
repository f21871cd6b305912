package filter

import (
	"testing"

	"github.com/Geun-Oh/rbq/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fr(s string) *frame.Frame {
	return &frame.Frame{Payload: []byte(s)}
}

func TestEmptyChainPassesEverything(t *testing.T) {
	var nilChain *Chain
	assert.True(t, nilChain.Match(fr("x")))
	assert.True(t, NewChain(MatchAll).Match(fr("x")))
	assert.Equal(t, "any()", nilChain.Name())
}

func TestChainModes(t *testing.T) {
	re, err := NewRegexFilter(`^err\d+`)
	require.NoError(t, err)
	kw := NewKeywordFilter("disk")

	anyChain := NewChain(MatchAny, re, kw)
	assert.True(t, anyChain.Match(fr("err42 net")))
	assert.True(t, anyChain.Match(fr("disk full")))
	assert.False(t, anyChain.Match(fr("ok")))

	allChain := NewChain(MatchAll, re, kw)
	assert.True(t, allChain.Match(fr("err1 disk")))
	assert.False(t, allChain.Match(fr("err1 net")))
	assert.Equal(t, `all(regex:^err\d+,keyword:disk)`, allChain.Name())
}

func TestExcludeFilter(t *testing.T) {
	c := NewChain(MatchAll, NewKeywordFilter("GET"))
	c.Add(NewExcludeFilter("/health", "/metrics"))

	assert.True(t, c.Match(fr("GET /api")))
	assert.False(t, c.Match(fr("GET /health")))
	assert.False(t, c.Match(fr("POST /api")))
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "exclude:/health,/metrics", NewExcludeFilter("/health", "/metrics").Name())
}

func TestInvalidRegex(t *testing.T) {
	_, err := NewRegexFilter("(")
	require.Error(t, err)
}
