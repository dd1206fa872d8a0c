// Package wildmatch compiles include/exclude glob sets into predicates
// over slash-separated relative paths.
//
// Pattern language: '*' matches any run of characters excluding '/',
// '?' matches a single character excluding '/', '**' matches across
// path segments ('a/**/b' also matches 'a/b'), and '\' escapes the
// following character. Matching is case-sensitive.
package wildmatch

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Matcher is a compiled (include, exclude) pattern pair. A path matches
// when it matches any include pattern and no exclude pattern. A Matcher
// with no includes matches nothing.
type Matcher struct {
	includes []string
	excludes []string
	incRe    []*regexp.Regexp
	excRe    []*regexp.Regexp
}

// Empty matches nothing.
var Empty = &Matcher{}

// New validates and compiles the given pattern lists.
func New(includes, excludes []string) (*Matcher, error) {
	m := &Matcher{
		includes: slices.Clone(includes),
		excludes: slices.Clone(excludes),
	}
	for _, p := range includes {
		re, err := compile(p)
		if err != nil {
			return nil, err
		}
		m.incRe = append(m.incRe, re)
	}
	for _, p := range excludes {
		re, err := compile(p)
		if err != nil {
			return nil, err
		}
		m.excRe = append(m.excRe, re)
	}
	return m, nil
}

// Matches reports whether the slash-separated relative path p matches.
// It is deterministic and side-effect free.
func (m *Matcher) Matches(p string) bool {
	matched := false
	for _, re := range m.incRe {
		if re.MatchString(p) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, re := range m.excRe {
		if re.MatchString(p) {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the matcher has no include patterns, in which
// case it can never match a path. A matcher whose excludes cover all of
// its includes also matches nothing but is not reported as empty.
func (m *Matcher) IsEmpty() bool {
	return len(m.includes) == 0
}

// Equal reports element-wise equality of the (include, exclude) tuples.
func (m *Matcher) Equal(o *Matcher) bool {
	if o == nil {
		return false
	}
	return slices.Equal(m.includes, o.includes) && slices.Equal(m.excludes, o.excludes)
}

func (m *Matcher) String() string {
	if m.IsEmpty() {
		return "glob(none)"
	}
	b := new(strings.Builder)
	fmt.Fprintf(b, "glob(include = [%s]", quoteJoin(m.includes))
	if len(m.excludes) != 0 {
		fmt.Fprintf(b, ", exclude = [%s]", quoteJoin(m.excludes))
	}
	b.WriteString(")")
	return b.String()
}

func quoteJoin(patterns []string) string {
	quoted := make([]string, 0, len(patterns))
	for _, p := range patterns {
		quoted = append(quoted, fmt.Sprintf("%q", p))
	}
	return strings.Join(quoted, ", ")
}

func validate(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return fmt.Errorf("wildmatch: empty pattern")
	}
	if strings.HasPrefix(pattern, "/") {
		return fmt.Errorf("wildmatch: pattern %q must be relative", pattern)
	}
	for _, seg := range strings.Split(pattern, "/") {
		if seg == ".." {
			return fmt.Errorf("wildmatch: pattern %q must not contain '..' segments", pattern)
		}
	}
	return nil
}

// compile translates a glob into an anchored regular expression.
func compile(pattern string) (*regexp.Regexp, error) {
	if err := validate(pattern); err != nil {
		return nil, err
	}
	b := new(strings.Builder)
	b.WriteString("^")
	atSegmentStart := true
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				if atSegmentStart && i+2 < len(pattern) && pattern[i+2] == '/' {
					// '**/' as a whole segment also matches zero segments.
					b.WriteString("(?:.*/)?")
					i += 2
					continue
				}
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
			atSegmentStart = false
		case '?':
			b.WriteString("[^/]")
			atSegmentStart = false
		case '\\':
			if i+1 < len(pattern) {
				i++
				b.WriteString(regexp.QuoteMeta(string(pattern[i])))
			} else {
				b.WriteString(regexp.QuoteMeta(`\`))
			}
			atSegmentStart = false
		case '/':
			b.WriteString("/")
			atSegmentStart = true
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
			atSegmentStart = false
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("wildmatch: pattern %q: %w", pattern, err)
	}
	return re, nil
}
