package dialog

import "errors"

// Input errors are returned to the caller with the session state untouched.
var (
	ErrEmptyUtterance     = errors.New("dialog: empty utterance")
	ErrInvalidSideChannel = errors.New("dialog: invalid side channel")
	ErrInvalidState       = errors.New("dialog: invalid state")
)

// IsInputError reports whether err was caused by a malformed turn.
func IsInputError(err error) bool {
	return errors.Is(err, ErrEmptyUtterance) ||
		errors.Is(err, ErrInvalidSideChannel) ||
		errors.Is(err, ErrInvalidState)
}
