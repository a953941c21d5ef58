package common

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crmarques/prismafmt/faults"
	"github.com/spf13/cobra"
)

func newCommandWithStdin(input string) *cobra.Command {
	command := &cobra.Command{}
	command.SetIn(strings.NewReader(input))
	return command
}

func TestReadSchemaInputKeepsStdinVerbatim(t *testing.T) {
	t.Parallel()

	raw := "  model A {\r\n  id Int @id\r\n}  "
	testCases := []struct {
		name string
		args []string
	}{
		{name: "no_args", args: nil},
		{name: "dash", args: []string{stdinFileIndicator}},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			input, err := ReadSchemaInput(newCommandWithStdin(raw), tc.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if input.Text != raw {
				t.Fatalf("expected verbatim input %q, got %q", raw, input.Text)
			}
			if input.Path != "" {
				t.Fatalf("expected no path for stdin, got %q", input.Path)
			}
		})
	}
}

func TestReadSchemaInputEmptyStdinReportsRequiredError(t *testing.T) {
	t.Parallel()

	_, err := ReadSchemaInput(newCommandWithStdin("   \n"), []string{stdinFileIndicator})
	if err == nil {
		t.Fatalf("expected error for empty stdin")
	}
	if err.Error() != MissingInputMessage {
		t.Fatalf("expected message %q, got %q", MissingInputMessage, err.Error())
	}
	if !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReadOptionalSchemaInputEmptyStdinReturnsEmpty(t *testing.T) {
	t.Parallel()

	input, err := ReadOptionalSchemaInput(newCommandWithStdin("\n\n"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if input.Text != "" {
		t.Fatalf("expected empty input, got %q", input.Text)
	}
}

func TestReadSchemaInputRejectsOversizedStdin(t *testing.T) {
	t.Parallel()

	_, err := ReadSchemaInput(newCommandWithStdin(strings.Repeat("a", maxInputBytes+1)), nil)
	if err == nil {
		t.Fatal("expected oversized stdin error")
	}
	if !strings.Contains(err.Error(), "input exceeds maximum supported size") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReadSchemaInputFromFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	t.Run("reads_file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(dir, "schema.prisma")
		content := "datasource db {\n  provider = \"postgresql\"\n}\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write file: %v", err)
		}

		input, err := ReadSchemaInput(newCommandWithStdin("ignored"), []string{path})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if input.Text != content || input.Path != path {
			t.Fatalf("unexpected input %#v", input)
		}
	})

	t.Run("missing_file", func(t *testing.T) {
		t.Parallel()

		_, err := ReadSchemaInput(newCommandWithStdin(""), []string{filepath.Join(dir, "missing.prisma")})
		if !faults.IsCategory(err, faults.NotFoundError) {
			t.Fatalf("expected not found error, got %v", err)
		}
	})

	t.Run("empty_file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(dir, "empty.prisma")
		if err := os.WriteFile(path, []byte("\n"), 0o600); err != nil {
			t.Fatalf("write file: %v", err)
		}

		_, err := ReadSchemaInput(newCommandWithStdin(""), []string{path})
		if !faults.IsCategory(err, faults.ValidationError) {
			t.Fatalf("expected validation error, got %v", err)
		}

		input, err := ReadOptionalSchemaInput(newCommandWithStdin(""), []string{path})
		if err != nil {
			t.Fatalf("optional read returned error: %v", err)
		}
		if input.Text != "\n" {
			t.Fatalf("expected file content, got %q", input.Text)
		}
	})
}
