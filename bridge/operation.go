package bridge

import (
	"fmt"
	"strings"
)

type Operation string

const (
	OperationFormat             Operation = "format"
	OperationLint               Operation = "lint"
	OperationNativeTypes        Operation = "native_types"
	OperationReferentialActions Operation = "referential_actions"
	OperationPreviewFeatures    Operation = "preview_features"
	OperationVersion            Operation = "version"
)

var operations = []Operation{
	OperationFormat,
	OperationLint,
	OperationNativeTypes,
	OperationReferentialActions,
	OperationPreviewFeatures,
	OperationVersion,
}

// Operations lists the export surface in declaration order.
func Operations() []Operation {
	return append([]Operation(nil), operations...)
}

// ParseOperation accepts canonical names and their dashed CLI spellings.
func ParseOperation(name string) (Operation, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for _, operation := range operations {
		if string(operation) == normalized {
			return operation, nil
		}
	}
	return "", validationError(fmt.Sprintf("unknown operation %q", strings.TrimSpace(name)), nil)
}

// TakesInput reports whether the operation forwards a text argument.
func (o Operation) TakesInput() bool {
	return o != OperationPreviewFeatures
}

// ContentType is the media type of the engine output for the operation.
func (o Operation) ContentType() string {
	switch o {
	case OperationFormat, OperationVersion:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

// CommandName is the dashed spelling used by the prisma-fmt CLI.
func (o Operation) CommandName() string {
	return strings.ReplaceAll(string(o), "_", "-")
}

func (o Operation) String() string {
	return string(o)
}
