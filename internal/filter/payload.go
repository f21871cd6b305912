package filter

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/Geun-Oh/rbq/internal/frame"
)

// KeywordFilter matches frames whose payload contains a keyword.
type KeywordFilter struct {
	keyword []byte
}

// NewKeywordFilter creates a filter that matches payloads containing keyword.
func NewKeywordFilter(keyword string) *KeywordFilter {
	return &KeywordFilter{keyword: []byte(keyword)}
}

// Match reports whether the payload contains the keyword.
func (f *KeywordFilter) Match(fr *frame.Frame) bool {
	return bytes.Contains(fr.Payload, f.keyword)
}

// Name returns the filter description.
func (f *KeywordFilter) Name() string {
	return "keyword:" + string(f.keyword)
}

// RegexFilter matches payloads against a regular expression compiled once.
type RegexFilter struct {
	re *regexp.Regexp
}

// NewRegexFilter compiles pattern into a filter.
func NewRegexFilter(pattern string) (*RegexFilter, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("filter: invalid regex %q: %w", pattern, err)
	}
	return &RegexFilter{re: re}, nil
}

// Match reports whether the payload matches the expression.
func (f *RegexFilter) Match(fr *frame.Frame) bool {
	return f.re.Match(fr.Payload)
}

// Name returns the filter description.
func (f *RegexFilter) Name() string {
	return "regex:" + f.re.String()
}

// ExcludeFilter passes frames that contain none of its patterns. Use it with
// MatchAll so the exclusion applies on top of the other filters.
type ExcludeFilter struct {
	patterns [][]byte
}

// NewExcludeFilter creates a filter that rejects payloads containing any pattern.
func NewExcludeFilter(patterns ...string) *ExcludeFilter {
	f := &ExcludeFilter{}
	for _, p := range patterns {
		f.patterns = append(f.patterns, []byte(p))
	}
	return f
}

// Match reports whether the payload avoids every excluded pattern.
func (f *ExcludeFilter) Match(fr *frame.Frame) bool {
	for _, p := range f.patterns {
		if bytes.Contains(fr.Payload, p) {
			return false
		}
	}
	return true
}

// Name returns the filter description.
func (f *ExcludeFilter) Name() string {
	parts := make([]string, len(f.patterns))
	for i, p := range f.patterns {
		parts[i] = string(p)
	}
	return "exclude:" + strings.Join(parts, ",")
}
