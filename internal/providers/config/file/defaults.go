package file

import (
	"runtime"
	"strings"

	"github.com/crmarques/prismafmt/config"
)

func applyDefaults(cfg *config.Config) {
	cfg.Engine.Kind = strings.ToLower(strings.TrimSpace(cfg.Engine.Kind))
	if cfg.Engine.Kind == "" {
		cfg.Engine.Kind = config.EngineKindBinary
	}
	if cfg.Engine.WASM.PoolSize == 0 {
		cfg.Engine.WASM.PoolSize = runtime.GOMAXPROCS(0)
	}
	cfg.Engine.WASM.ABI = strings.ToLower(strings.TrimSpace(cfg.Engine.WASM.ABI))
	if cfg.Engine.WASM.ABI == "" {
		cfg.Engine.WASM.ABI = config.ABIAuto
	}
	if strings.TrimSpace(cfg.Engine.Binary.Timeout) == "" {
		cfg.Engine.Binary.Timeout = config.DefaultBinaryTimeout.String()
	}

	if strings.TrimSpace(cfg.Engines.Version) == "" {
		cfg.Engines.Version = config.DefaultEnginesVersion
	}
	if strings.TrimSpace(cfg.Engines.CacheDir) == "" {
		cfg.Engines.CacheDir = config.DefaultEnginesCache
	}
	if strings.TrimSpace(cfg.Engines.Mirror) == "" {
		cfg.Engines.Mirror = config.DefaultEnginesMirror
	}
	cfg.Engines.Mirror = strings.TrimRight(strings.TrimSpace(cfg.Engines.Mirror), "/")

	if strings.TrimSpace(cfg.Server.Listen) == "" {
		cfg.Server.Listen = config.DefaultListen
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = config.DefaultMaxBodyBytes
	}

	if strings.TrimSpace(cfg.Telemetry.ServiceName) == "" {
		cfg.Telemetry.ServiceName = config.DefaultServiceName
	}

	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = config.DefaultLogLevel
	}
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = config.LogFormatConsole
	}
}
