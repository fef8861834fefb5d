package engine

// startupTimeoutError signals the engine never became healthy within the
// startup deadline.
type startupTimeoutError struct{ msg string }

func (e startupTimeoutError) Error() string { return e.msg }

// ErrStartupTimeout constructs a startup-timeout error.
func ErrStartupTimeout(msg string) error { return startupTimeoutError{msg: msg} }

// IsStartupTimeout reports whether err indicates a startup timeout.
func IsStartupTimeout(err error) bool {
	_, ok := err.(startupTimeoutError)
	return ok
}

// diedDuringStartupError signals the engine process exited before passing
// its first health check.
type diedDuringStartupError struct{ msg string }

func (e diedDuringStartupError) Error() string { return e.msg }

// ErrDiedDuringStartup constructs a died-during-startup error.
func ErrDiedDuringStartup(msg string) error { return diedDuringStartupError{msg: msg} }

// IsDiedDuringStartup reports whether err indicates the engine exited
// while still starting up.
func IsDiedDuringStartup(err error) bool {
	_, ok := err.(diedDuringStartupError)
	return ok
}
