package engines

import "context"

// Request asks for a set of engines; each engine maps to the directory it is
// installed into.
type Request struct {
	Engines    map[EngineType]string
	Targets    []Target
	Version    string
	FailSilent bool
	// LockDir holds the download-lock file. Empty disables locking.
	LockDir string
}

// Result maps each engine and target to the installed file.
type Result map[EngineType]map[Target]string

func (r Result) Path(engine EngineType, target Target) (string, bool) {
	targets, ok := r[engine]
	if !ok {
		return "", false
	}
	path, ok := targets[target]
	return path, ok
}

type Downloader interface {
	Download(ctx context.Context, request Request) (Result, error)
}

type Verifier interface {
	// Verify reports whether the executable at path reports the version hash.
	Verify(ctx context.Context, path string, version string) (bool, error)
}

type PlatformDetector interface {
	Detect(ctx context.Context) (Target, error)
}

// Installer downloads engines into a cache and checks installed executables.
type Installer interface {
	Downloader
	Verifier
	CacheDir() string
}

// TargetResolver maps the native alias to the detected host target.
type TargetResolver interface {
	PlatformDetector
	Resolve(ctx context.Context, target Target) (Target, error)
}
