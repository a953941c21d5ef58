package common

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func IsInteractiveTerminal(command *cobra.Command) bool {
	return isTerminalReader(command.InOrStdin()) && IsTerminalWriter(command.OutOrStdout())
}

func IsTerminalWriter(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok || file == nil {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// SupportsColor reports whether ANSI sequences may be written to w.
func SupportsColor(w io.Writer, noColor bool) bool {
	if noColor || strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		return false
	}
	if !IsTerminalWriter(w) {
		return false
	}
	value := strings.TrimSpace(strings.ToLower(os.Getenv("TERM")))
	return value != "" && value != "dumb"
}

func isTerminalReader(reader io.Reader) bool {
	file, ok := reader.(*os.File)
	if !ok || file == nil {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
