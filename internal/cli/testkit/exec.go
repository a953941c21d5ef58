package testkit

import (
	"bytes"
	"strings"
	"sync"

	"github.com/spf13/cobra"
)

// Cobra writes to shared annotation maps while rendering help and
// completions, so commands run one at a time even in parallel tests.
var executeMu sync.Mutex

// ExecuteCommandForTest runs command with args and stdin and returns stdout.
func ExecuteCommandForTest(command *cobra.Command, stdin string, args ...string) (string, error) {
	stdout, _, err := ExecuteCommandForTestWithStreams(command, stdin, args...)
	return stdout, err
}

func ExecuteCommandForTestWithStreams(command *cobra.Command, stdin string, args ...string) (string, string, error) {
	executeMu.Lock()
	defer executeMu.Unlock()

	var stdout, stderr bytes.Buffer
	command.SetIn(strings.NewReader(stdin))
	command.SetOut(&stdout)
	command.SetErr(&stderr)
	command.SetArgs(args)

	err := command.Execute()
	return stdout.String(), stderr.String(), err
}

// RegisteredPaths lists every user-facing command below command, depth first.
// help and cobra's hidden completion hooks are left out.
func RegisteredPaths(command *cobra.Command, prefix []string) [][]string {
	var paths [][]string
	for _, child := range command.Commands() {
		name := child.Name()
		if name == "help" || strings.HasPrefix(name, "__") {
			continue
		}
		path := append(append([]string(nil), prefix...), name)
		paths = append(paths, path)
		paths = append(paths, RegisteredPaths(child, path)...)
	}
	return paths
}

func JoinPath(path []string) string {
	if len(path) == 0 {
		return "root"
	}
	return strings.Join(path, " ")
}
