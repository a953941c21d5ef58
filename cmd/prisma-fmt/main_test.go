package main

import (
	"errors"
	"testing"

	"github.com/crmarques/prismafmt/faults"
)

func TestNewDependenciesWiresEveryProvider(t *testing.T) {
	t.Parallel()

	deps := newDependencies("")
	if deps.Configs == nil {
		t.Fatal("expected config service")
	}
	if deps.Surfaces == nil || deps.Installers == nil || deps.Servers == nil {
		t.Fatal("expected provider factories")
	}
	if deps.Targets == nil {
		t.Fatal("expected target resolver")
	}
}

func TestExitCodeForError(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "plain error", err: errors.New("boom"), want: 1},
		{name: "validation", err: faults.NewTypedError(faults.ValidationError, "invalid", nil), want: 2},
		{name: "not found", err: faults.NewTypedError(faults.NotFoundError, "missing", nil), want: 3},
		{name: "auth", err: faults.NewTypedError(faults.AuthError, "auth", nil), want: 4},
		{name: "conflict", err: faults.NewTypedError(faults.ConflictError, "conflict", nil), want: 5},
		{name: "transport", err: faults.NewTypedError(faults.TransportError, "net", nil), want: 6},
		{name: "unsupported", err: faults.NewTypedError(faults.UnsupportedError, "abi", nil), want: 7},
		{name: "engine", err: faults.NewTypedError(faults.EngineError, "trap", nil), want: 8},
		{name: "internal", err: faults.NewTypedError(faults.InternalError, "internal", nil), want: 1},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCodeForError(testCase.err); got != testCase.want {
				t.Fatalf("exitCodeForError(%v) = %d, want %d", testCase.err, got, testCase.want)
			}
		})
	}
}
