package engine

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// selector decides which tests execute under a focus filter.
//
// A test path is its description and those of its enclosing tests joined
// with "/". Slashes inside a description are replaced by "_" before
// matching so each description stays one path segment.
type selector struct {
	pattern  string
	segments []string
}

// ValidateFilter checks a focus filter pattern.
func ValidateFilter(pattern string) error {
	if pattern == "" || !doublestar.ValidatePattern(pattern) {
		return newUsageError(ErrCodeInvalidFilter, "invalid filter pattern %q", pattern)
	}
	return nil
}

func newSelector(pattern string) (*selector, error) {
	if err := ValidateFilter(pattern); err != nil {
		return nil, err
	}
	return &selector{pattern: pattern, segments: strings.Split(pattern, "/")}, nil
}

// allows reports whether the test at path executes: it matches, one of
// its ancestors matches, or one of its descendants might match.
func (s *selector) allows(path []string) bool {
	if s == nil {
		return true
	}

	clean := make([]string, len(path))
	for i, desc := range path {
		clean[i] = strings.ReplaceAll(desc, "/", "_")
	}

	for i := 1; i <= len(clean); i++ {
		if ok, _ := doublestar.Match(s.pattern, strings.Join(clean[:i], "/")); ok {
			return true
		}
	}
	return s.prefixOf(clean)
}

// prefixOf reports whether path could be an ancestor of a matching path.
func (s *selector) prefixOf(path []string) bool {
	for i, desc := range path {
		if i >= len(s.segments) {
			return false
		}
		if s.segments[i] == "**" {
			return true
		}
		if ok, _ := doublestar.Match(s.segments[i], desc); !ok {
			return false
		}
	}
	return len(s.segments) > len(path)
}
