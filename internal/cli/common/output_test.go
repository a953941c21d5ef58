package common

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/crmarques/prismafmt/bridge"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

func newOutputCommand() (*cobra.Command, *bytes.Buffer) {
	command := &cobra.Command{}
	stdout := &bytes.Buffer{}
	command.SetOut(stdout)
	return command, stdout
}

func TestWriteOutputSuppressesNilPayload(t *testing.T) {
	t.Parallel()

	command, stdout := newOutputCommand()

	var value any
	if err := WriteOutput(command, OutputJSON, value, nil); err != nil {
		t.Fatalf("WriteOutput returned error: %v", err)
	}
	if got := stdout.String(); got != "" {
		t.Fatalf("expected empty output for nil payload, got %q", got)
	}
}

func TestWriteOutputRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	command, _ := newOutputCommand()
	if err := WriteOutput(command, "xml", map[string]any{"ok": true}, nil); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestWriteEngineOutput(t *testing.T) {
	t.Parallel()

	t.Run("text_adds_missing_newline", func(t *testing.T) {
		t.Parallel()

		command, stdout := newOutputCommand()
		if err := WriteEngineOutput(command, OutputAuto, bridge.OperationLint, "[]"); err != nil {
			t.Fatalf("WriteEngineOutput returned error: %v", err)
		}
		if got := stdout.String(); got != "[]\n" {
			t.Fatalf("expected %q, got %q", "[]\n", got)
		}
	})

	t.Run("text_keeps_engine_newline", func(t *testing.T) {
		t.Parallel()

		command, stdout := newOutputCommand()
		formatted := "model A {\n  id Int @id\n}\n"
		if err := WriteEngineOutput(command, OutputText, bridge.OperationFormat, formatted); err != nil {
			t.Fatalf("WriteEngineOutput returned error: %v", err)
		}
		if got := stdout.String(); got != formatted {
			t.Fatalf("expected verbatim output, got %q", got)
		}
	})

	t.Run("json_envelope", func(t *testing.T) {
		t.Parallel()

		command, stdout := newOutputCommand()
		if err := WriteEngineOutput(command, OutputJSON, bridge.OperationVersion, "abc123"); err != nil {
			t.Fatalf("WriteEngineOutput returned error: %v", err)
		}
		var result bridge.Result
		if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
			t.Fatalf("decode output: %v", err)
		}
		if result.Operation != bridge.OperationVersion || result.Output != "abc123" || result.Error != nil {
			t.Fatalf("unexpected envelope %#v", result)
		}
	})

	t.Run("yaml_envelope", func(t *testing.T) {
		t.Parallel()

		command, stdout := newOutputCommand()
		if err := WriteEngineOutput(command, OutputYAML, bridge.OperationLint, "[]"); err != nil {
			t.Fatalf("WriteEngineOutput returned error: %v", err)
		}
		var result bridge.Result
		if err := yaml.Unmarshal(stdout.Bytes(), &result); err != nil {
			t.Fatalf("decode output: %v", err)
		}
		if result.Output != "[]" {
			t.Fatalf("unexpected envelope %#v", result)
		}
	})
}

func TestValidateOutputFormatForCommandPath(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		path    string
		format  string
		wantErr bool
	}{
		{name: "structured command json", path: "prisma-fmt lint", format: OutputJSON, wantErr: false},
		{name: "text only command auto", path: "prisma-fmt engines path", format: OutputAuto, wantErr: false},
		{name: "text only command text", path: "prisma-fmt serve", format: OutputText, wantErr: false},
		{name: "text only command json rejected", path: "prisma-fmt engines path", format: OutputJSON, wantErr: true},
		{name: "yaml default command yaml", path: "prisma-fmt config show", format: OutputYAML, wantErr: false},
		{name: "yaml default command text", path: "prisma-fmt config show", format: OutputText, wantErr: false},
		{name: "yaml default command json rejected", path: "prisma-fmt config show", format: OutputJSON, wantErr: true},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateOutputFormatForCommandPath(testCase.path, testCase.format)
			if (err != nil) != testCase.wantErr {
				t.Fatalf("ValidateOutputFormatForCommandPath(%q, %q) error=%v, wantErr=%t", testCase.path, testCase.format, err, testCase.wantErr)
			}
		})
	}
}
