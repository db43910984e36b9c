package agenda

import (
	"errors"

	"github.com/hashicorp/go-multierror"

	appLog "icalagenda/internal/log"
)

// Outcome classifies one attempted unit of work.
type Outcome int

const (
	// Continue means the unit succeeded.
	Continue Outcome = iota
	// SkipUnit means the unit failed and was skipped.
	SkipUnit
	// Abort means the unit failed and the whole run must stop.
	Abort
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case SkipUnit:
		return "skip"
	case Abort:
		return "abort"
	default:
		return "unknown"
	}
}

// abortError carries an error that has already been logged by the scope
// that decided to abort, so enclosing scopes pass it through untouched.
type abortError struct {
	err error
}

func (e *abortError) Error() string { return e.err.Error() }
func (e *abortError) Unwrap() error { return e.err }

// containment applies the same skip-or-abort policy at every scope.
type containment struct {
	continueOnError bool
	skipped         *multierror.Error
}

// attempt runs fn as one unit of the named scope. Failures are logged here;
// write failures always abort.
func (c *containment) attempt(scope string, fn func() error, kv ...any) (Outcome, error) {
	err := fn()
	if err == nil {
		return Continue, nil
	}

	var aborted *abortError
	if errors.As(err, &aborted) {
		return Abort, err
	}

	appLog.Error("failed to convert "+scope, err, kv...)

	if c.continueOnError && !errors.Is(err, ErrOutputWrite) {
		appLog.Info("skipping "+scope, kv...)
		c.skipped = multierror.Append(c.skipped, err)
		return SkipUnit, nil
	}
	return Abort, &abortError{err: err}
}

// unwrapAbort strips the internal abort marker before returning to callers.
func unwrapAbort(err error) error {
	var aborted *abortError
	if errors.As(err, &aborted) {
		return aborted.err
	}
	return err
}
