package validation

// Error marks input the caller can fix, as opposed to an internal failure.
// Handlers map it to a 400 response.
type Error struct {
	msg string
}

func (e *Error) Error() string {
	return e.msg
}

func NewError(msg string) error {
	return &Error{msg: msg}
}
