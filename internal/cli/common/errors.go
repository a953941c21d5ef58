package common

import (
	"github.com/crmarques/prismafmt/faults"
)

func ValidationError(message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, message, cause)
}
