package app

// invalidInputError signals a malformed request field for 400 mapping.
type invalidInputError struct{ msg string }

func (e invalidInputError) Error() string { return e.msg }

// ErrInvalidInput constructs an invalid-input error.
func ErrInvalidInput(msg string) error { return invalidInputError{msg: msg} }

// IsInvalidInput reports whether err indicates malformed input.
func IsInvalidInput(err error) bool {
	_, ok := err.(invalidInputError)
	return ok
}

// fileNotFoundError signals an unknown input file id for 404 mapping.
type fileNotFoundError struct{ id string }

func (e fileNotFoundError) Error() string {
	return "file not found: " + e.id + " (upload first or provide file_url)"
}

// ErrFileNotFound constructs a file-not-found error.
func ErrFileNotFound(id string) error { return fileNotFoundError{id: id} }

// IsFileNotFound reports whether err indicates an unknown input file.
func IsFileNotFound(err error) bool {
	_, ok := err.(fileNotFoundError)
	return ok
}

// downloadFailedError signals an input acquisition failure before the
// job was created; mapped to 400 like the original surface.
type downloadFailedError struct{ msg string }

func (e downloadFailedError) Error() string { return "failed to download file: " + e.msg }

// ErrDownloadFailed constructs a download failure error.
func ErrDownloadFailed(msg string) error { return downloadFailedError{msg: msg} }

// IsDownloadFailed reports whether err indicates a failed input download.
func IsDownloadFailed(err error) bool {
	_, ok := err.(downloadFailedError)
	return ok
}
