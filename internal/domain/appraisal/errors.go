package appraisal

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrTaskNotRetryable = errors.New("only failed tasks can be re-armed")
)

// ValidationError rejects an initiation request before anything is written.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("initiation rejected: %d problem(s)", len(e.Problems))
}

func invalid(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}
