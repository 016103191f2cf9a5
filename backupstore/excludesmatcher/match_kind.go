package excludesmatcher

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// MatchKind decides how a rule's pattern is applied to a path.
type MatchKind int

const (
	// MatchKindExact requires the pattern to match the whole path
	MatchKindExact MatchKind = iota + 1
	// MatchKindWildcard requires the pattern to match somewhere within the path
	MatchKindWildcard
)

func (k MatchKind) String() string {
	switch k {
	case MatchKindExact:
		return "exact"
	case MatchKindWildcard:
		return "wildcard"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// MatchKindNames are the names accepted by ParseMatchKind
var MatchKindNames = []string{MatchKindExact.String(), MatchKindWildcard.String()}

// ParseMatchKind reads a MatchKind from its name, ignoring case and surrounding whitespace
func ParseMatchKind(name string) (MatchKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "exact":
		return MatchKindExact, nil
	case "wildcard":
		return MatchKindWildcard, nil
	default:
		return 0, errors.Errorf("unknown match kind %q (expected one of: %s)", name, strings.Join(MatchKindNames, ", "))
	}
}

func (k MatchKind) isValid() bool {
	return k == MatchKindExact || k == MatchKindWildcard
}
