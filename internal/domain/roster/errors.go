package roster

import (
	"errors"
	"fmt"
)

// ErrCorruptRoster indicates an assumed-impossible membership state was found
// during a read, such as a team with two captains. It is reported, never
// silently repaired.
var ErrCorruptRoster = errors.New("corrupt roster state")

// PreconditionError is a guard failure: the operation was rejected and no
// writes beyond the preceding guards were performed. The message is safe to
// show to the requesting user.
type PreconditionError struct {
	msg string
}

func (e *PreconditionError) Error() string {
	return e.msg
}

// NewPreconditionError builds a guard failure with a user-facing message.
func NewPreconditionError(msg string) error {
	return &PreconditionError{msg: msg}
}

// failf builds a guard failure with a formatted user-facing message.
func failf(format string, args ...any) error {
	return NewPreconditionError(fmt.Sprintf(format, args...))
}

// IsPrecondition reports whether err is a guard failure.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}
