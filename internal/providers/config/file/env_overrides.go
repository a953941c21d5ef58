package file

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/crmarques/prismafmt/config"
)

const overrideEnvPrefix = "PRISMA_FMT_"

var (
	configSetters = map[string]func(*config.Config, string) error{
		"engine.kind":                     setEngineKind,
		"engine.wasm.path":                setEngineWASMPath,
		"engine.wasm.pool_size":           setEngineWASMPoolSize,
		"engine.wasm.abi":                 setEngineWASMABI,
		"engine.binary.path":              setEngineBinaryPath,
		"engine.binary.timeout":           setEngineBinaryTimeout,
		"engines.version":                 setEnginesVersion,
		"engines.cache_dir":               setEnginesCacheDir,
		"engines.mirror":                  setEnginesMirror,
		"engines.binary_targets":          setEnginesBinaryTargets,
		"engines.oci_reference":           setEnginesOCIReference,
		"engines.fail_silent":             setEnginesFailSilent,
		"engines.ignore_missing_checksum": setEnginesIgnoreMissingChecksum,
		"server.listen":                   setServerListen,
		"server.max_body_bytes":           setServerMaxBodyBytes,
		"telemetry.otlp_endpoint":         setTelemetryOTLPEndpoint,
		"telemetry.insecure":              setTelemetryInsecure,
		"telemetry.service_name":          setTelemetryServiceName,
		"logging.level":                   setLoggingLevel,
		"logging.format":                  setLoggingFormat,
	}
	// PRISMA_FMT_CONFIG selects the file and PRISMA_FMT_BINARY is read as an
	// upstream variable, so neither is an override key.
	reservedEnvSuffixes = map[string]struct{}{
		"CONFIG": {},
		"BINARY": {},
	}
	upstreamEnvPaths = []struct {
		name string
		path string
	}{
		{name: config.BinaryPathEnvVar, path: "engine.binary.path"},
		{name: config.EnginesMirrorEnvVar, path: "engines.mirror"},
		{name: config.BinaryTargetsEnvVar, path: "engines.binary_targets"},
		{name: config.ChecksumIgnoreMissingEnvVar, path: "engines.ignore_missing_checksum"},
	}
	envSuffixToPath map[string]string
)

func init() {
	envSuffixToPath = make(map[string]string, len(configSetters))
	for path := range configSetters {
		envSuffixToPath[toEnvSuffix(path)] = path
	}
}

// OverrideKeys lists the dotted keys accepted by selection overrides.
func OverrideKeys() []string {
	keys := make([]string, 0, len(configSetters))
	for key := range configSetters {
		keys = append(keys, key)
	}
	return keys
}

func toEnvSuffix(path string) string {
	return strings.ToUpper(strings.ReplaceAll(path, ".", "_"))
}

func upstreamOverridesFromEnv() map[string]string {
	overrides := make(map[string]string)
	for _, item := range upstreamEnvPaths {
		value, ok := os.LookupEnv(item.name)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		overrides[item.path] = value
	}
	return overrides
}

func prefixedOverridesFromEnv() (map[string]string, error) {
	overrides := make(map[string]string)
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, overrideEnvPrefix) {
			continue
		}
		pair := strings.SplitN(env, "=", 2)
		key := strings.TrimPrefix(pair[0], overrideEnvPrefix)
		if key == "" {
			continue
		}
		if _, reserved := reservedEnvSuffixes[key]; reserved {
			continue
		}
		path, ok := envSuffixToPath[key]
		if !ok {
			return nil, unknownOverrideError(pair[0])
		}
		value := ""
		if len(pair) == 2 {
			value = pair[1]
		}
		overrides[path] = value
	}
	return overrides, nil
}

func applyOverrides(cfg *config.Config, overrides map[string]string) error {
	for path, value := range overrides {
		normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(path)), "-", "_")
		setter, ok := configSetters[normalized]
		if !ok {
			return unknownOverrideError(path)
		}
		if err := setter(cfg, value); err != nil {
			return validationError(fmt.Sprintf("failed to apply override %q", path), err)
		}
	}
	return nil
}

func unknownOverrideError(key string) error {
	return validationError(fmt.Sprintf("unknown override key %q", key), nil)
}

func parseBool(value string) (bool, error) {
	return strconv.ParseBool(strings.TrimSpace(value))
}

func parseList(value string) []string {
	items := strings.Split(value, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func setEngineKind(cfg *config.Config, value string) error {
	cfg.Engine.Kind = strings.ToLower(strings.TrimSpace(value))
	return nil
}

func setEngineWASMPath(cfg *config.Config, value string) error {
	cfg.Engine.WASM.Path = strings.TrimSpace(value)
	return nil
}

func setEngineWASMPoolSize(cfg *config.Config, value string) error {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return err
	}
	cfg.Engine.WASM.PoolSize = parsed
	return nil
}

func setEngineWASMABI(cfg *config.Config, value string) error {
	cfg.Engine.WASM.ABI = strings.ToLower(strings.TrimSpace(value))
	return nil
}

func setEngineBinaryPath(cfg *config.Config, value string) error {
	cfg.Engine.Binary.Path = strings.TrimSpace(value)
	return nil
}

func setEngineBinaryTimeout(cfg *config.Config, value string) error {
	cfg.Engine.Binary.Timeout = strings.TrimSpace(value)
	return nil
}

func setEnginesVersion(cfg *config.Config, value string) error {
	cfg.Engines.Version = strings.TrimSpace(value)
	return nil
}

func setEnginesCacheDir(cfg *config.Config, value string) error {
	cfg.Engines.CacheDir = strings.TrimSpace(value)
	return nil
}

func setEnginesMirror(cfg *config.Config, value string) error {
	cfg.Engines.Mirror = strings.TrimRight(strings.TrimSpace(value), "/")
	return nil
}

func setEnginesBinaryTargets(cfg *config.Config, value string) error {
	cfg.Engines.BinaryTargets = parseList(value)
	return nil
}

func setEnginesOCIReference(cfg *config.Config, value string) error {
	cfg.Engines.OCIReference = strings.TrimSpace(value)
	return nil
}

func setEnginesFailSilent(cfg *config.Config, value string) error {
	parsed, err := parseBool(value)
	if err != nil {
		return err
	}
	cfg.Engines.FailSilent = parsed
	return nil
}

func setEnginesIgnoreMissingChecksum(cfg *config.Config, value string) error {
	parsed, err := parseBool(value)
	if err != nil {
		return err
	}
	cfg.Engines.IgnoreMissingChecksum = parsed
	return nil
}

func setServerListen(cfg *config.Config, value string) error {
	cfg.Server.Listen = strings.TrimSpace(value)
	return nil
}

func setServerMaxBodyBytes(cfg *config.Config, value string) error {
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return err
	}
	cfg.Server.MaxBodyBytes = parsed
	return nil
}

func setTelemetryOTLPEndpoint(cfg *config.Config, value string) error {
	cfg.Telemetry.OTLPEndpoint = strings.TrimSpace(value)
	return nil
}

func setTelemetryInsecure(cfg *config.Config, value string) error {
	parsed, err := parseBool(value)
	if err != nil {
		return err
	}
	cfg.Telemetry.Insecure = parsed
	return nil
}

func setTelemetryServiceName(cfg *config.Config, value string) error {
	cfg.Telemetry.ServiceName = strings.TrimSpace(value)
	return nil
}

func setLoggingLevel(cfg *config.Config, value string) error {
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(value))
	return nil
}

func setLoggingFormat(cfg *config.Config, value string) error {
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(value))
	return nil
}
