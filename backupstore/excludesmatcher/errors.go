package excludesmatcher

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrEmptyPattern          = errors.New("pattern is empty")
	ErrMoreThanOneDoubleStar = errors.New(`pattern contains more than one "**"`)
	ErrDoubleStarNotAtEnd    = errors.New(`"**" must be at the end of the pattern`)
	ErrEmptyTrailingSegment  = errors.New("pattern cannot end with an empty segment")
	ErrMoreThanOneStar       = errors.New(`pattern contains more than one "*" in a path segment`)
)

// InvalidPatternError is returned when a pattern fails validation.
// Violation is one of the Err* pattern errors in this package.
type InvalidPatternError struct {
	Pattern   string
	Violation error
}

func newInvalidPatternError(pattern string, violation error) *InvalidPatternError {
	return &InvalidPatternError{pattern, violation}
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid exclusion pattern %q: %s", e.Pattern, e.Violation)
}

func (e *InvalidPatternError) Unwrap() error {
	return e.Violation
}
