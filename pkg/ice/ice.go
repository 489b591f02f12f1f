// Package ice reports internal compiler errors: violated invariants inside
// the backend or malformed input from an upstream phase. They are never
// user diagnostics. Code deep inside a phase calls Fatalf, which panics; the
// per-procedure driver converts the panic back into an error with Catch.
package ice

import "fmt"

// Error is an internal-consistency failure raised by a backend phase.
type Error struct {
	Phase string
	Msg   string
	Err   error // optional underlying cause
}

func (e *Error) Error() string {
	return fmt.Sprintf("internal error in %s: %s", e.Phase, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fatalf aborts the current phase.
func Fatalf(phase, format string, args ...any) {
	panic(&Error{Phase: phase, Msg: fmt.Sprintf(format, args...)})
}

// Wrap aborts the current phase with a sentinel cause attached.
func Wrap(phase string, cause error, format string, args ...any) {
	panic(&Error{Phase: phase, Msg: fmt.Sprintf(format, args...), Err: cause})
}

// Catch recovers an *Error panic into *errp. Other panics propagate.
// It must be called directly by a deferred statement.
func Catch(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(*Error); ok {
		*errp = e
		return
	}
	panic(r)
}
