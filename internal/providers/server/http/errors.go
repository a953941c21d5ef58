package http

import (
	stdhttp "net/http"

	"github.com/crmarques/prismafmt/faults"
)

func validationError(message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, message, cause)
}

func transportError(message string, cause error) error {
	return faults.NewTypedError(faults.TransportError, message, cause)
}

// StatusCode maps a fault category to the HTTP status of an error response.
func StatusCode(category faults.ErrorCategory) int {
	switch category {
	case faults.ValidationError:
		return stdhttp.StatusBadRequest
	case faults.NotFoundError:
		return stdhttp.StatusNotFound
	case faults.AuthError:
		return stdhttp.StatusUnauthorized
	case faults.ConflictError:
		return stdhttp.StatusConflict
	case faults.TransportError, faults.EngineError:
		return stdhttp.StatusBadGateway
	case faults.UnsupportedError:
		return stdhttp.StatusNotImplemented
	default:
		return stdhttp.StatusInternalServerError
	}
}
