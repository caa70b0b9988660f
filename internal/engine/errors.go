package engine

import (
	"errors"
	"fmt"
)

// LimitError is returned when a batch holds more jobs than the engine
// accepts. Nothing is compiled or logged.
type LimitError struct {
	Jobs  int
	Limit int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("batch of %d jobs exceeds the limit of %d", e.Jobs, e.Limit)
}

// IsLimitError reports whether err is a LimitError.
// Uses errors.As to handle wrapped errors.
func IsLimitError(err error) bool {
	var le *LimitError
	return errors.As(err, &le)
}

// DuplicateJobError is returned when two jobs share a name.
type DuplicateJobError struct {
	Name string
}

func (e *DuplicateJobError) Error() string {
	return fmt.Sprintf("duplicate job %q", e.Name)
}
