package config

import "context"

type Loader interface {
	// Load returns the effective configuration: defaults, then the file, then
	// environment variables, then selection overrides.
	Load(ctx context.Context, selection Selection) (Config, error)
}

type Writer interface {
	Save(ctx context.Context, path string, cfg Config) error
}

type Service interface {
	Loader
	Writer
	ResolvePath(explicitPath string) (string, error)
	Validate(ctx context.Context, cfg Config) error
}
