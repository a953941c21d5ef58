package file

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/crmarques/prismafmt/config"
	"github.com/crmarques/prismafmt/yamlutil"
)

func decodeConfigFile(path string) (config.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return config.Config{}, err
	}
	return decodeConfig(data)
}

func decodeConfig(data []byte) (config.Config, error) {
	var cfg config.Config
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	if err := yamlutil.DecodeStrict(data, &cfg); err != nil {
		return config.Config{}, validationError("invalid config yaml", err)
	}

	return cfg, nil
}

func encodeConfig(cfg config.Config) ([]byte, error) {
	return yamlutil.Marshal(cfg)
}

func resolveConfigPath(explicitPath string) (string, error) {
	path := strings.TrimSpace(explicitPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(config.ConfigFileEnvVar))
	}
	if path == "" {
		path = config.DefaultConfigPath
	}

	expanded, err := expandHome(path)
	if err != nil {
		return "", err
	}

	cleanPath := filepath.Clean(expanded)
	if cleanPath == "." {
		return "", validationError("config path is invalid", errors.New("resolved to current directory"))
	}
	if !filepath.IsAbs(cleanPath) {
		absolute, err := filepath.Abs(cleanPath)
		if err != nil {
			return "", internalError("failed to resolve config path", err)
		}
		cleanPath = absolute
	}

	return cleanPath, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", internalError("failed to resolve user home directory", err)
	}
	if path == "~" {
		return homeDir, nil
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~/")), nil
}
