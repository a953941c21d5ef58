package common

import (
	"testing"

	"github.com/crmarques/prismafmt/faults"
)

func TestSelection(t *testing.T) {
	t.Parallel()

	t.Run("nil_flags", func(t *testing.T) {
		t.Parallel()

		selection, err := Selection(nil)
		if err != nil {
			t.Fatalf("Selection returned error: %v", err)
		}
		if selection.Path != "" || selection.Overrides != nil {
			t.Fatalf("expected empty selection, got %#v", selection)
		}
	})

	t.Run("engine_flag_wins_over_set", func(t *testing.T) {
		t.Parallel()

		selection, err := Selection(&GlobalFlags{
			Config: " ./prisma-fmt.yaml ",
			Engine: "wasm",
			Set:    []string{"engine.kind=binary", "server.listen=0.0.0.0:9000"},
		})
		if err != nil {
			t.Fatalf("Selection returned error: %v", err)
		}
		if selection.Path != "./prisma-fmt.yaml" {
			t.Fatalf("expected trimmed path, got %q", selection.Path)
		}
		if selection.Overrides["engine.kind"] != "wasm" {
			t.Fatalf("expected engine override, got %#v", selection.Overrides)
		}
		if selection.Overrides["server.listen"] != "0.0.0.0:9000" {
			t.Fatalf("expected listen override, got %#v", selection.Overrides)
		}
	})

	t.Run("value_may_contain_equals", func(t *testing.T) {
		t.Parallel()

		selection, err := Selection(&GlobalFlags{Set: []string{"engines.mirror=https://m.example.com/?a=b"}})
		if err != nil {
			t.Fatalf("Selection returned error: %v", err)
		}
		if selection.Overrides["engines.mirror"] != "https://m.example.com/?a=b" {
			t.Fatalf("unexpected overrides %#v", selection.Overrides)
		}
	})

	t.Run("rejects_malformed_override", func(t *testing.T) {
		t.Parallel()

		for _, value := range []string{"engine.kind", "=wasm"} {
			if _, err := Selection(&GlobalFlags{Set: []string{value}}); !faults.IsCategory(err, faults.ValidationError) {
				t.Fatalf("expected validation error for %q, got %v", value, err)
			}
		}
	})
}

func TestCompleteValues(t *testing.T) {
	t.Parallel()

	items, _ := CompleteValues([]string{"yaml", "json", " json ", "text", ""}, "j")
	if len(items) != 1 || items[0] != "json" {
		t.Fatalf("unexpected completions %#v", items)
	}
}
