package job

// jobNotFoundError signals an unknown job id for 404 mapping.
type jobNotFoundError struct{ id string }

func (e jobNotFoundError) Error() string { return "job not found: " + e.id }

// ErrJobNotFound constructs a job-not-found error.
func ErrJobNotFound(id string) error { return jobNotFoundError{id: id} }

// IsJobNotFound reports whether err indicates an unknown job id.
func IsJobNotFound(err error) bool {
	_, ok := err.(jobNotFoundError)
	return ok
}

// jobExistsError signals a duplicate job id on create.
type jobExistsError struct{ id string }

func (e jobExistsError) Error() string { return "job already exists: " + e.id }

// ErrJobExists constructs a duplicate-job error.
func ErrJobExists(id string) error { return jobExistsError{id: id} }

// IsJobExists reports whether err indicates a duplicate job id.
func IsJobExists(err error) bool {
	_, ok := err.(jobExistsError)
	return ok
}
