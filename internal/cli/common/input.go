package common

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/crmarques/prismafmt/faults"
	"github.com/spf13/cobra"
)

const (
	stdinFileIndicator  = "-"
	MissingInputMessage = "input is required: provide a schema file, '-' or stdin"
	maxInputBytes       = 4 << 20
)

// SchemaInput is the text handed to an engine. Text is never trimmed or
// re-encoded; Path is empty when the text came from stdin.
type SchemaInput struct {
	Text string
	Path string
}

func ReadSchemaInput(command *cobra.Command, args []string) (SchemaInput, error) {
	return readSchemaInput(command, args, true)
}

func ReadOptionalSchemaInput(command *cobra.Command, args []string) (SchemaInput, error) {
	return readSchemaInput(command, args, false)
}

func readSchemaInput(command *cobra.Command, args []string, required bool) (SchemaInput, error) {
	source := ""
	if len(args) > 0 {
		source = args[0]
	}

	if source != "" && source != stdinFileIndicator {
		file, err := os.Open(source)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return SchemaInput{}, faults.NewTypedError(faults.NotFoundError, fmt.Sprintf("schema file %s not found", source), err)
			}
			return SchemaInput{}, faults.NewTypedError(faults.InternalError, fmt.Sprintf("failed to open schema file %s", source), err)
		}
		defer file.Close()

		data, err := readAllWithLimit(file, maxInputBytes)
		if err != nil {
			return SchemaInput{}, err
		}
		if required && len(bytes.TrimSpace(data)) == 0 {
			return SchemaInput{}, ValidationError("input is empty", nil)
		}
		return SchemaInput{Text: string(data), Path: source}, nil
	}

	inputReader := command.InOrStdin()
	if source == "" && isTerminalReader(inputReader) {
		if required {
			return SchemaInput{}, ValidationError(MissingInputMessage, nil)
		}
		return SchemaInput{}, nil
	}

	data, err := readAllWithLimit(inputReader, maxInputBytes)
	if err != nil {
		return SchemaInput{}, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		if required {
			return SchemaInput{}, ValidationError(MissingInputMessage, nil)
		}
		return SchemaInput{}, nil
	}

	return SchemaInput{Text: string(data)}, nil
}

func readAllWithLimit(reader io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(reader, maxBytes+1))
	if err != nil {
		return nil, faults.NewTypedError(faults.InternalError, "failed to read input", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, ValidationError("input exceeds maximum supported size", errors.New("input too large"))
	}
	return data, nil
}
