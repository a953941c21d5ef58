package bridge

import (
	"strings"

	"github.com/crmarques/prismafmt/faults"
)

// Result is the envelope used where a Go error cannot cross the boundary.
type Result struct {
	Operation Operation     `json:"operation" yaml:"operation"`
	Output    string        `json:"output,omitempty" yaml:"output,omitempty"`
	Error     *ErrorPayload `json:"error,omitempty" yaml:"error,omitempty"`
}

type ErrorPayload struct {
	Category faults.ErrorCategory `json:"category" yaml:"category"`
	Message  string               `json:"message" yaml:"message"`
}

func (r Result) OK() bool {
	return r.Error == nil
}

// Err rebuilds a typed error from the envelope.
func (r Result) Err() error {
	if r.Error == nil {
		return nil
	}
	return faults.NewTypedError(r.Error.Category, r.Error.Message, nil)
}

func NewResult(operation Operation, output string, err error) Result {
	if err == nil {
		return Result{Operation: operation, Output: output}
	}
	return Result{
		Operation: operation,
		Error: &ErrorPayload{
			Category: faults.CategoryOf(err),
			Message:  strings.TrimSpace(err.Error()),
		},
	}
}
