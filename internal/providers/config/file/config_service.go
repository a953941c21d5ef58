package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/crmarques/prismafmt/config"
)

var _ config.Service = (*FileConfigService)(nil)

type FileConfigService struct {
	path string
}

func NewFileConfigService(path string) *FileConfigService {
	return &FileConfigService{path: path}
}

func (s *FileConfigService) ResolvePath(explicitPath string) (string, error) {
	if explicitPath == "" {
		explicitPath = s.path
	}
	return resolveConfigPath(explicitPath)
}

func (s *FileConfigService) Load(_ context.Context, selection config.Selection) (config.Config, error) {
	resolvedPath, err := s.ResolvePath(selection.Path)
	if err != nil {
		return config.Config{}, err
	}

	cfg, err := decodeConfigFile(resolvedPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return config.Config{}, err
		}
		cfg = config.Config{}
	}

	if err := applyOverrides(&cfg, upstreamOverridesFromEnv()); err != nil {
		return config.Config{}, err
	}
	envOverrides, err := prefixedOverridesFromEnv()
	if err != nil {
		return config.Config{}, err
	}
	if err := applyOverrides(&cfg, envOverrides); err != nil {
		return config.Config{}, err
	}
	if err := applyOverrides(&cfg, selection.Overrides); err != nil {
		return config.Config{}, err
	}

	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (s *FileConfigService) Validate(_ context.Context, cfg config.Config) error {
	applyDefaults(&cfg)
	return validateConfig(cfg)
}

func (s *FileConfigService) Save(ctx context.Context, path string, cfg config.Config) error {
	if err := s.Validate(ctx, cfg); err != nil {
		return err
	}

	resolvedPath, err := s.ResolvePath(path)
	if err != nil {
		return err
	}

	encoded, err := encodeConfig(cfg)
	if err != nil {
		return internalError("failed to encode config", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolvedPath), 0o755); err != nil {
		return internalError("failed to create config directory", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(resolvedPath), ".prisma-fmt-config-*")
	if err != nil {
		return internalError("failed to create temporary config file", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.Write(encoded); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return internalError("failed to write config", err)
	}
	if err := tempFile.Chmod(0o600); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return internalError("failed to set config permissions", err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)
		return internalError("failed to finalize config", err)
	}
	if err := os.Rename(tempPath, resolvedPath); err != nil {
		_ = os.Remove(tempPath)
		return internalError("failed to replace config", err)
	}

	return nil
}
