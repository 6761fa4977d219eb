package evaluation

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound               = errors.New("evaluation not found")
	ErrInvalidTransition      = errors.New("evaluation is not in a state that allows this action")
	ErrConcurrentModification = errors.New("evaluation was modified concurrently")
	ErrGoalNotFound           = errors.New("development goal not found")
	ErrGoalNotEligible        = errors.New("development goals require a completed meeting in an active cycle")
)

// ValidationError carries field-level problems for 400 responses.
type ValidationError struct {
	Fields []FieldProblem
}

type FieldProblem struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

func NewValidationError(problems ...FieldProblem) *ValidationError {
	return &ValidationError{Fields: problems}
}
