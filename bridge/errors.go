package bridge

import (
	"fmt"

	"github.com/crmarques/prismafmt/faults"
)

// Unsupported builds the typed outcome returned when an operation has no
// implementation behind the boundary. Callers detect it with
// faults.IsCategory(err, faults.UnsupportedError).
func Unsupported(operation Operation, cause error) error {
	return faults.NewTypedError(
		faults.UnsupportedError,
		fmt.Sprintf("operation %q is not supported by the engine", operation),
		cause,
	)
}

// EngineFailure wraps an error raised by the external library.
func EngineFailure(operation Operation, cause error) error {
	return faults.NewTypedError(
		faults.EngineError,
		fmt.Sprintf("engine %s failed", operation),
		cause,
	)
}

func IsUnsupported(err error) bool {
	return faults.IsCategory(err, faults.UnsupportedError)
}

func validationError(message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, message, cause)
}
