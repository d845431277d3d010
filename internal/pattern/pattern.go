// Package pattern compiles user-supplied glob patterns for file matching.
//
// Include patterns are case-insensitive and support one level of brace
// alternates. A bare pattern without wildcards is treated as a substring
// query over file names. Exclude patterns stay case-sensitive and apply
// to both files and directories during traversal.
package pattern

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"fskit/internal/errors"
)

// Matcher matches file paths against one compiled include pattern.
type Matcher struct {
	variants  []string
	pathBased bool
}

// Compile compiles a glob pattern. Patterns containing a slash match the
// root-relative path, others match the base name only. A pattern without
// any wildcard is wrapped as a substring query.
func Compile(pattern string) (*Matcher, error) {
	if pattern == "" {
		return nil, errors.New(errors.InvalidGlob, "empty pattern")
	}

	expanded, err := expandBraces(pattern)
	if err != nil {
		return nil, err
	}

	bare := !strings.ContainsAny(pattern, "*?[{")
	variants := make([]string, 0, len(expanded))
	for _, v := range expanded {
		v = strings.ToLower(v)
		if bare {
			v = "**/*" + v + "*"
		}
		if !doublestar.ValidatePattern(v) {
			return nil, errors.New(errors.InvalidGlob, "invalid glob pattern: "+pattern)
		}
		variants = append(variants, v)
	}

	return &Matcher{
		variants:  variants,
		pathBased: strings.Contains(pattern, "/") || bare,
	}, nil
}

// Match reports whether a file with the given root-relative path and base
// name matches the pattern. Matching is case-insensitive.
func (m *Matcher) Match(relPath, base string) bool {
	target := strings.ToLower(base)
	if m.pathBased {
		target = strings.ToLower(relPath)
	}
	for _, v := range m.variants {
		if doublestar.MatchUnvalidated(v, target) {
			return true
		}
	}
	return false
}

// ExcludeSet matches paths against a set of exclude patterns.
type ExcludeSet struct {
	matchers []excludeMatcher
}

type excludeMatcher struct {
	variants  []string
	pathBased bool
}

// CompileExcludes compiles exclude patterns. Unlike includes they are
// case-sensitive; bare patterns become name substring queries and a
// leading slash anchors nothing and is stripped.
func CompileExcludes(patterns []string) (*ExcludeSet, error) {
	set := &ExcludeSet{}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		p = strings.TrimPrefix(p, "/")

		expanded, err := expandBraces(p)
		if err != nil {
			return nil, err
		}

		bare := !strings.ContainsAny(p, "*?[{")
		variants := make([]string, 0, len(expanded))
		for _, v := range expanded {
			if bare {
				v = "*" + v + "*"
			}
			if !doublestar.ValidatePattern(v) {
				return nil, errors.New(errors.InvalidGlob, "invalid exclude pattern: "+p)
			}
			variants = append(variants, v)
		}

		set.matchers = append(set.matchers, excludeMatcher{
			variants:  variants,
			pathBased: strings.Contains(p, "/"),
		})
	}
	return set, nil
}

// Match reports whether the entry with the given root-relative path and
// base name is excluded.
func (s *ExcludeSet) Match(relPath, base string) bool {
	if s == nil {
		return false
	}
	for _, m := range s.matchers {
		target := base
		if m.pathBased {
			target = relPath
		}
		for _, v := range m.variants {
			if doublestar.MatchUnvalidated(v, target) {
				return true
			}
		}
	}
	return false
}

// Empty reports whether the set contains no patterns.
func (s *ExcludeSet) Empty() bool {
	return s == nil || len(s.matchers) == 0
}

// expandBraces expands a single level of {a,b,c} alternates into separate
// patterns. Nested braces are rejected.
func expandBraces(pattern string) ([]string, error) {
	open := strings.IndexByte(pattern, '{')
	if open == -1 {
		return []string{pattern}, nil
	}

	depth := 0
	closing := -1
	for i := open; i < len(pattern); i++ {
		switch pattern[i] {
		case '{':
			depth++
			if depth > 1 {
				return nil, errors.New(errors.UnsupportedBraceNesting, "nested braces are not supported: "+pattern)
			}
		case '}':
			depth--
			if depth == 0 {
				closing = i
			}
		}
		if closing != -1 {
			break
		}
	}
	if closing == -1 {
		return nil, errors.New(errors.InvalidGlob, "unbalanced braces: "+pattern)
	}

	prefix := pattern[:open]
	body := pattern[open+1 : closing]
	suffix := pattern[closing+1:]

	tails, err := expandBraces(suffix)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, alt := range strings.Split(body, ",") {
		for _, tail := range tails {
			out = append(out, prefix+alt+tail)
		}
	}
	return out, nil
}
