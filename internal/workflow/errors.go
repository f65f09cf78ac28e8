package workflow

import "fmt"

// IllegalStateChangeError is returned when a requested transition is not
// defined for the workflow's current step. It aborts the command and is never
// retried automatically.
type IllegalStateChangeError struct {
	From string
	To   string
}

func (e *IllegalStateChangeError) Error() string {
	return fmt.Sprintf("illegal state change from %q to %q", e.From, e.To)
}

func illegalStateChange(from, to RequestState) error {
	return &IllegalStateChangeError{From: string(from), To: string(to)}
}
