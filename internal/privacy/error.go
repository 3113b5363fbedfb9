package privacy

// scrubbedError reports a scrubbed message and unwraps to the original error.
type scrubbedError struct {
	err error
	msg string
}

func (e *scrubbedError) Error() string { return e.msg }
func (e *scrubbedError) Unwrap() error { return e.err }

// WrapError scrubs URLs, credentials and addresses from err's message so it
// can be logged or shown to API clients. errors.Is and errors.As still see
// the original error. A nil err returns nil.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	return &scrubbedError{err: err, msg: ScrubMessage(err.Error())}
}
