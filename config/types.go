package config

import (
	"strings"
	"time"
)

type Selection struct {
	Path      string
	Overrides map[string]string
}

const (
	ConfigFileEnvVar  = "PRISMA_FMT_CONFIG"
	DefaultConfigPath = "~/.prisma-fmt/config.yaml"

	EngineKindWASM   = "wasm"
	EngineKindBinary = "binary"

	ABIAuto    = "auto"
	ABIBindgen = "bindgen"
	ABIPacked  = "packed"

	LogFormatJSON    = "json"
	LogFormatConsole = "console"

	DefaultListen         = "127.0.0.1:7420"
	DefaultMaxBodyBytes   = 4 << 20
	DefaultBinaryTimeout  = 30 * time.Second
	DefaultEnginesMirror  = "https://binaries.prisma.sh"
	DefaultEnginesVersion = "22b822189f46ef0dc5c5b503368d1bee01213980"
	DefaultEnginesCache   = "~/.cache/prisma-fmt/engines"
	DefaultServiceName    = "prisma-fmt"
	DefaultLogLevel       = "info"
)

// Variables read by the upstream tooling. They are honoured before the
// PRISMA_FMT_* overrides are applied.
const (
	BinaryPathEnvVar            = "PRISMA_FMT_BINARY"
	EnginesMirrorEnvVar         = "PRISMA_ENGINES_MIRROR"
	BinaryTargetsEnvVar         = "PRISMA_CLI_BINARY_TARGETS"
	ChecksumIgnoreMissingEnvVar = "PRISMA_ENGINES_CHECKSUM_IGNORE_MISSING"
)

type Config struct {
	Engine    Engine    `yaml:"engine"`
	Engines   Engines   `yaml:"engines,omitempty"`
	Server    Server    `yaml:"server,omitempty"`
	Telemetry Telemetry `yaml:"telemetry,omitempty"`
	Logging   Logging   `yaml:"logging,omitempty"`
}

type Engine struct {
	Kind   string       `yaml:"kind"`
	WASM   WASMEngine   `yaml:"wasm,omitempty"`
	Binary BinaryEngine `yaml:"binary,omitempty"`
}

type WASMEngine struct {
	Path     string `yaml:"path,omitempty"`
	PoolSize int    `yaml:"pool-size,omitempty"`
	ABI      string `yaml:"abi,omitempty"`
}

type BinaryEngine struct {
	Path    string `yaml:"path,omitempty"`
	Timeout string `yaml:"timeout,omitempty"`
}

// TimeoutDuration returns the per-call timeout, falling back to the default
// when the value is empty or invalid. Validation rejects invalid values first.
func (b BinaryEngine) TimeoutDuration() time.Duration {
	value := strings.TrimSpace(b.Timeout)
	if value == "" {
		return DefaultBinaryTimeout
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return DefaultBinaryTimeout
	}
	return parsed
}

type Engines struct {
	Version               string   `yaml:"version,omitempty"`
	CacheDir              string   `yaml:"cache-dir,omitempty"`
	Mirror                string   `yaml:"mirror,omitempty"`
	BinaryTargets         []string `yaml:"binary-targets,omitempty"`
	OCIReference          string   `yaml:"oci-reference,omitempty"`
	FailSilent            bool     `yaml:"fail-silent,omitempty"`
	IgnoreMissingChecksum bool     `yaml:"ignore-missing-checksum,omitempty"`
}

type Server struct {
	Listen       string `yaml:"listen,omitempty"`
	MaxBodyBytes int64  `yaml:"max-body-bytes,omitempty"`
}

type Telemetry struct {
	OTLPEndpoint string `yaml:"otlp-endpoint,omitempty"`
	Insecure     bool   `yaml:"insecure,omitempty"`
	ServiceName  string `yaml:"service-name,omitempty"`
}

func (t Telemetry) Enabled() bool {
	return strings.TrimSpace(t.OTLPEndpoint) != ""
}

type Logging struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}
