package excludesmatcher

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Rule is a compiled pattern together with the way it is matched against paths.
// A Rule can't be changed once it has been added to an ExcludesMatcher.
type Rule struct {
	pattern string
	kind    MatchKind
	matcher *CompiledPattern
}

// Pattern is the normalised pattern the rule was added with
func (r Rule) Pattern() string {
	return r.pattern
}

func (r Rule) Kind() MatchKind {
	return r.kind
}

func (r Rule) matches(relativePath string) bool {
	switch r.kind {
	case MatchKindExact:
		return r.matcher.FullMatch(relativePath)
	case MatchKindWildcard:
		return r.matcher.Search(relativePath)
	default:
		return false
	}
}

func (r Rule) String() string {
	return fmt.Sprintf("%s (%s)", r.pattern, r.kind)
}

// ExcludesMatcher is a type that matches relative paths against an ordered list of exclusion rules
type ExcludesMatcher struct {
	rules        []Rule
	builtInCount int
}

// NewExcludesMatcher creates an ExcludesMatcher holding only the built-in rules:
// - anything whose first path segment starts with "." (dotfiles, dot-directories, the store itself)
// - the top-level "backup" directory and everything below it
func NewExcludesMatcher() *ExcludesMatcher {
	backupDirPattern, err := Compile("backup/**")
	if nil != err {
		panic(err)
	}

	rules := []Rule{
		{pattern: ".*", kind: MatchKindWildcard, matcher: mustCompileExpr(".*", `^\..*`)},
		{pattern: backupDirPattern.Pattern(), kind: MatchKindWildcard, matcher: backupDirPattern},
	}

	return &ExcludesMatcher{
		rules:        rules,
		builtInCount: len(rules),
	}
}

// AddRulesFromReader adds one rule per pattern line read from reader.
// Blank lines and lines starting with "#" are skipped.
// A line may be prefixed with "exact:" or "wildcard:" to choose the match kind; wildcard is the default.
func (e *ExcludesMatcher) AddRulesFromReader(reader io.Reader) error {
	bufScanner := bufio.NewScanner(reader)
	for bufScanner.Scan() {
		pattern := strings.TrimSpace(bufScanner.Text())
		if pattern == "" {
			continue
		}

		if strings.HasPrefix(pattern, "#") {
			// line is a comment
			continue
		}

		kind := MatchKindWildcard
		for _, candidate := range []MatchKind{MatchKindExact, MatchKindWildcard} {
			prefix := candidate.String() + ":"
			if strings.HasPrefix(pattern, prefix) {
				kind = candidate
				pattern = strings.TrimSpace(strings.TrimPrefix(pattern, prefix))
				break
			}
		}

		err := e.AddRule(pattern, kind)
		if nil != err {
			return err
		}
	}

	return bufScanner.Err()
}

// AddRule normalises and compiles the pattern, and appends it as a new rule.
// An invalid pattern is returned as an *InvalidPatternError and no rule is added.
func (e *ExcludesMatcher) AddRule(pattern string, kind MatchKind) error {
	if !kind.isValid() {
		return errors.Errorf("couldn't add rule for %q: unknown match kind %s", pattern, kind)
	}

	pattern = NormalisePattern(pattern)

	compiledPattern, err := Compile(pattern)
	if nil != err {
		return err
	}

	e.rules = append(e.rules, Rule{
		pattern: pattern,
		kind:    kind,
		matcher: compiledPattern,
	})

	return nil
}

// ShouldExclude reports whether any rule matches the relative path.
// relativePath uses "/" as the separator and has no leading "/".
// Rules are tried in the order they were added, the first match wins.
func (e *ExcludesMatcher) ShouldExclude(relativePath string) bool {
	for _, rule := range e.rules {
		if rule.matches(relativePath) {
			return true
		}
	}
	return false
}

// Rules returns a copy of all the rules, built-in rules first
func (e *ExcludesMatcher) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// UserRules returns a copy of the rules added after the built-in rules
func (e *ExcludesMatcher) UserRules() []Rule {
	return append([]Rule(nil), e.rules[e.builtInCount:]...)
}

// IsBuiltIn reports whether the rule at index i of Rules() is a built-in rule
func (e *ExcludesMatcher) IsBuiltIn(i int) bool {
	return i < e.builtInCount
}
