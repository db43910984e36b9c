package agenda

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is to classify an error returned by Convert.
var (
	ErrDocumentParse   = errors.New("document parse error")
	ErrMissingField    = errors.New("missing required field")
	ErrRecurrenceParse = errors.New("recurrence parse error")
	ErrDurationParse   = errors.New("duration parse error")
	ErrOutputWrite     = errors.New("output write error")
)

// withKind tags err with kind while keeping err itself reachable.
func withKind(kind, err error) error {
	return fmt.Errorf("%w: %w", kind, err)
}
