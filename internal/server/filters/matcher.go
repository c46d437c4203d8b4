package filters

import (
	"strings"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
)

// PathMatcher matches request paths against ant-style patterns: "*" stays inside one path
// segment, "**" spans segments and "/x/**" also matches "/x" itself.
type PathMatcher struct {
	globs []glob.Glob
}

// NewPathMatcher compiles patterns. Blank patterns are skipped.
func NewPathMatcher(patterns ...string) (*PathMatcher, error) {
	m := &PathMatcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if err := m.add(p); err != nil {
			return nil, err
		}
		if base, ok := strings.CutSuffix(p, "/**"); ok && base != "" {
			if err := m.add(base); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *PathMatcher) add(pattern string) error {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return errors.Wrapf(err, "path pattern %q", pattern)
	}
	m.globs = append(m.globs, g)
	return nil
}

// Match reports whether path matches any pattern. A nil matcher matches nothing.
func (m *PathMatcher) Match(path string) bool {
	if m == nil {
		return false
	}
	for _, g := range m.globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}
