package file

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/crmarques/prismafmt/config"
	"github.com/crmarques/prismafmt/faults"
)

func validateConfig(cfg config.Config) error {
	switch cfg.Engine.Kind {
	case config.EngineKindWASM:
		if strings.TrimSpace(cfg.Engine.WASM.Path) == "" {
			return validationError("engine.wasm.path is required when engine.kind is wasm", nil)
		}
	case config.EngineKindBinary:
	default:
		return validationError(fmt.Sprintf("engine.kind %q is invalid: use wasm or binary", cfg.Engine.Kind), nil)
	}

	if cfg.Engine.WASM.PoolSize < 1 {
		return validationError("engine.wasm.pool-size must be at least 1", nil)
	}
	switch cfg.Engine.WASM.ABI {
	case config.ABIAuto, config.ABIBindgen, config.ABIPacked:
	default:
		return validationError(fmt.Sprintf("engine.wasm.abi %q is invalid: use auto, bindgen, or packed", cfg.Engine.WASM.ABI), nil)
	}

	timeout, err := time.ParseDuration(strings.TrimSpace(cfg.Engine.Binary.Timeout))
	if err != nil {
		return validationError("engine.binary.timeout is invalid", err)
	}
	if timeout <= 0 {
		return validationError("engine.binary.timeout must be positive", nil)
	}

	version := strings.TrimSpace(cfg.Engines.Version)
	if strings.ContainsAny(version, "/\\ ") {
		return validationError(fmt.Sprintf("engines.version %q is invalid", version), nil)
	}
	if err := validateMirror(cfg.Engines.Mirror); err != nil {
		return err
	}
	for _, target := range cfg.Engines.BinaryTargets {
		if strings.TrimSpace(target) == "" {
			return validationError("engines.binary-targets must not contain empty values", nil)
		}
	}

	if cfg.Server.MaxBodyBytes < 0 {
		return validationError("server.max-body-bytes must not be negative", nil)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return validationError(fmt.Sprintf("logging.level %q is invalid: use debug, info, warn, or error", cfg.Logging.Level), nil)
	}
	switch cfg.Logging.Format {
	case config.LogFormatJSON, config.LogFormatConsole:
	default:
		return validationError(fmt.Sprintf("logging.format %q is invalid: use json or console", cfg.Logging.Format), nil)
	}

	return nil
}

func validateMirror(value string) error {
	parsed, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return validationError("engines.mirror is invalid", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" && parsed.Scheme != "file" {
		return validationError(fmt.Sprintf("engines.mirror %q must use http, https, or file", value), nil)
	}
	if parsed.Scheme != "file" && parsed.Host == "" {
		return validationError(fmt.Sprintf("engines.mirror %q has no host", value), nil)
	}
	return nil
}

func validationError(message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, message, cause)
}

func internalError(message string, cause error) error {
	return faults.NewTypedError(faults.InternalError, message, cause)
}
