package broadcast

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// toolMatcher matches tool names against doublestar patterns.
type toolMatcher struct {
	patterns []string
}

func newToolMatcher(patterns []string) (*toolMatcher, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, p)
		}
	}
	return &toolMatcher{patterns: append([]string(nil), patterns...)}, nil
}

func (m *toolMatcher) Match(name string) bool {
	if m == nil {
		return false
	}
	for _, p := range m.patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}
