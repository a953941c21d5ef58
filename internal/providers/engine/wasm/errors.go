package wasm

import (
	"errors"

	"github.com/crmarques/prismafmt/faults"
)

var errNoMemory = faults.NewTypedError(faults.EngineError, "wasm module does not export its linear memory", nil)

// thrownError is raised by the throw host stubs with the message the guest
// passed; wazero surfaces it from the failing call.
type thrownError struct {
	message string
}

func (e *thrownError) Error() string {
	return e.message
}

func thrownMessage(err error) (string, bool) {
	var thrown *thrownError
	if errors.As(err, &thrown) {
		return thrown.message, true
	}
	return "", false
}

func validationError(message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, message, cause)
}

func notFoundError(message string, cause error) error {
	return faults.NewTypedError(faults.NotFoundError, message, cause)
}

func engineError(message string, cause error) error {
	return faults.NewTypedError(faults.EngineError, message, cause)
}

func internalError(message string, cause error) error {
	return faults.NewTypedError(faults.InternalError, message, cause)
}

var errPoolClosed = faults.NewTypedError(faults.InternalError, "wasm engine is closed", nil)
