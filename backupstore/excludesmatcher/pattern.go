package excludesmatcher

import (
	"regexp"
	"strings"
)

const (
	doubleStar = "**"

	// matches a run of characters inside a single path segment
	segmentWildcardExpr = "[^/]*"
)

// CompiledPattern is a validated pattern, compiled to a regular expression.
// It is never mutated after Compile returns it.
type CompiledPattern struct {
	raw    string
	expr   *regexp.Regexp
	anchor *regexp.Regexp
}

// NormalisePattern converts backslashes to forward slashes and strips trailing slashes
func NormalisePattern(raw string) string {
	return strings.TrimRight(strings.ReplaceAll(raw, "\\", "/"), "/")
}

// ValidatePattern returns an *InvalidPatternError for the first rule the pattern breaks, or nil.
//
// A pattern containing "**" may only contain it once, as its last two characters,
// and not directly after an empty segment ("a//**").
// Any other pattern may contain at most one "*" per path segment.
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return newInvalidPatternError(pattern, ErrEmptyPattern)
	}

	if strings.Contains(pattern, doubleStar) {
		if strings.Count(pattern, doubleStar) > 1 {
			return newInvalidPatternError(pattern, ErrMoreThanOneDoubleStar)
		}

		if !strings.HasSuffix(pattern, doubleStar) {
			return newInvalidPatternError(pattern, ErrDoubleStarNotAtEnd)
		}

		segments := strings.Split(pattern, "/")
		if len(segments) > 1 && segments[len(segments)-2] == "" {
			return newInvalidPatternError(pattern, ErrEmptyTrailingSegment)
		}

		return nil
	}

	for _, segment := range strings.Split(pattern, "/") {
		if strings.Count(segment, "*") > 1 {
			return newInvalidPatternError(pattern, ErrMoreThanOneStar)
		}
	}

	return nil
}

// Compile validates the pattern and compiles it.
//
// "*" matches any run of characters except "/". A trailing "/**" matches the prefix itself
// and anything below it, so "a/b/**" matches "a/b" and "a/b/c/d" but not "a/bc".
// A trailing "**" not preceded by "/" matches any run of characters, including "/".
// All patterns are anchored at both ends.
func Compile(pattern string) (*CompiledPattern, error) {
	err := ValidatePattern(pattern)
	if nil != err {
		return nil, err
	}

	var expr string
	if strings.HasSuffix(pattern, doubleStar) {
		prefix := strings.TrimSuffix(pattern, doubleStar)
		if strings.HasSuffix(prefix, "/") {
			expr = "^" + globToExpr(strings.TrimSuffix(prefix, "/")) + "(/.*)?$"
		} else {
			expr = "^" + globToExpr(prefix) + ".*$"
		}
	} else {
		expr = "^" + globToExpr(pattern) + "$"
	}

	return newCompiledPattern(pattern, expr)
}

func newCompiledPattern(raw, expr string) (*CompiledPattern, error) {
	re, err := regexp.Compile(expr)
	if nil != err {
		return nil, err
	}

	anchor, err := regexp.Compile("^(?:" + expr + ")$")
	if nil != err {
		return nil, err
	}

	return &CompiledPattern{raw, re, anchor}, nil
}

func mustCompileExpr(raw, expr string) *CompiledPattern {
	pattern, err := newCompiledPattern(raw, expr)
	if nil != err {
		panic(err)
	}
	return pattern
}

func globToExpr(glob string) string {
	var sb strings.Builder
	for _, char := range glob {
		if char == '*' {
			sb.WriteString(segmentWildcardExpr)
			continue
		}
		sb.WriteString(regexp.QuoteMeta(string(char)))
	}
	return sb.String()
}

// FullMatch reports whether the pattern matches the whole of path
func (p *CompiledPattern) FullMatch(path string) bool {
	return p.anchor.MatchString(path)
}

// Search reports whether the pattern matches anywhere within path.
// Patterns produced by Compile carry their own anchors, so for those Search and FullMatch agree.
func (p *CompiledPattern) Search(path string) bool {
	return p.expr.MatchString(path)
}

// Pattern is the source pattern the CompiledPattern was built from
func (p *CompiledPattern) Pattern() string {
	return p.raw
}

// String returns the compiled regular expression
func (p *CompiledPattern) String() string {
	return p.expr.String()
}
