package fetch

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/crmarques/prismafmt/debugctx"
)

const versionProbeTimeout = 10 * time.Second

// VersionProbe returns the `--version` output of an engine executable.
type VersionProbe func(ctx context.Context, path string) (string, error)

func execVersionProbe(ctx context.Context, path string) (string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()

	output, err := exec.CommandContext(probeCtx, path, "--version").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

func (f *Fetcher) Verify(ctx context.Context, path string, version string) (bool, error) {
	hash, err := resolveVersion(version)
	if err != nil {
		return false, err
	}

	output, err := f.probe(ctx, path)
	if err != nil {
		debugctx.Printf(ctx, "version probe %s failed: %v", path, err)
		return false, nil
	}
	return strings.Contains(output, hash), nil
}
