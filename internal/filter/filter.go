// Package filter decides which frames are staged into the ring.
package filter

import (
	"strings"

	"github.com/Geun-Oh/rbq/internal/frame"
)

// Filter reports whether a frame should be staged.
type Filter interface {
	Match(f *frame.Frame) bool
	Name() string
}

// MatchMode controls how the filters of a Chain combine.
type MatchMode int

const (
	// MatchAny stages a frame if any filter matches.
	MatchAny MatchMode = iota
	// MatchAll stages a frame only if every filter matches.
	MatchAll
)

// Chain combines filters under one MatchMode. A nil or empty Chain passes
// every frame.
type Chain struct {
	filters []Filter
	mode    MatchMode
}

// NewChain creates a Chain with the given mode.
func NewChain(mode MatchMode, filters ...Filter) *Chain {
	return &Chain{filters: filters, mode: mode}
}

// Add appends a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Match evaluates the chain against fr.
func (c *Chain) Match(fr *frame.Frame) bool {
	if c.Len() == 0 {
		return true
	}
	want := c.mode == MatchAll
	for _, f := range c.filters {
		if f.Match(fr) != want {
			return !want
		}
	}
	return want
}

// Name describes the chain, e.g. "all(keyword:a,regex:b)".
func (c *Chain) Name() string {
	if c == nil {
		return "any()"
	}
	op := "any"
	if c.mode == MatchAll {
		op = "all"
	}
	names := make([]string, 0, len(c.filters))
	for _, f := range c.filters {
		names = append(names, f.Name())
	}
	return op + "(" + strings.Join(names, ",") + ")"
}

// Len returns the number of filters in the chain.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.filters)
}
