package version

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/crmarques/prismafmt/internal/cli/common"
	"github.com/crmarques/prismafmt/internal/cli/testkit"
)

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	t.Run("text", func(t *testing.T) {
		t.Parallel()

		output, err := testkit.ExecuteCommandForTest(NewCommand(&common.GlobalFlags{Output: common.OutputAuto}), "")
		if err != nil {
			t.Fatalf("version returned error: %v", err)
		}
		if output != Version+" ("+Commit+") "+BuildDate+"\n" {
			t.Fatalf("unexpected output %q", output)
		}
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		output, err := testkit.ExecuteCommandForTest(NewCommand(&common.GlobalFlags{Output: common.OutputJSON}), "")
		if err != nil {
			t.Fatalf("version returned error: %v", err)
		}
		var decoded map[string]string
		if err := json.Unmarshal([]byte(output), &decoded); err != nil {
			t.Fatalf("decode output: %v", err)
		}
		if decoded["version"] != Version || !strings.HasPrefix(decoded["go_version"], "go") {
			t.Fatalf("unexpected payload %#v", decoded)
		}
	})

	t.Run("rejects_arguments", func(t *testing.T) {
		t.Parallel()

		if _, err := testkit.ExecuteCommandForTest(NewCommand(&common.GlobalFlags{}), "", "extra"); err == nil {
			t.Fatal("expected error for unexpected argument")
		}
	})
}
