package engines

import (
	"fmt"
	"os"
	"strings"

	"github.com/crmarques/prismafmt/faults"
)

type EngineType string

const (
	QueryEngine         EngineType = "query-engine"
	LibQueryEngine      EngineType = "libquery-engine"
	MigrationEngine     EngineType = "migration-engine"
	IntrospectionEngine EngineType = "introspection-engine"
	PrismaFmt           EngineType = "prisma-fmt"
)

const QueryEngineTypeEnvVar = "PRISMA_CLI_QUERY_ENGINE_TYPE"

var engineTypes = []EngineType{
	QueryEngine,
	LibQueryEngine,
	MigrationEngine,
	IntrospectionEngine,
	PrismaFmt,
}

// Variables naming a prebuilt engine that replaces the download.
var customBinaryEnvVars = map[EngineType]string{
	QueryEngine:         "PRISMA_QUERY_ENGINE_BINARY",
	LibQueryEngine:      "PRISMA_QUERY_ENGINE_LIBRARY",
	MigrationEngine:     "PRISMA_MIGRATION_ENGINE_BINARY",
	IntrospectionEngine: "PRISMA_INTROSPECTION_ENGINE_BINARY",
	PrismaFmt:           "PRISMA_FMT_BINARY",
}

func EngineTypes() []EngineType {
	return append([]EngineType(nil), engineTypes...)
}

func ParseEngineType(value string) (EngineType, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, engine := range engineTypes {
		if string(engine) == normalized {
			return engine, nil
		}
	}
	return "", faults.NewTypedError(
		faults.ValidationError,
		fmt.Sprintf("unknown engine %q", strings.TrimSpace(value)),
		nil,
	)
}

// IsLibrary reports whether the engine ships as a Node-API library instead of
// an executable.
func (e EngineType) IsLibrary() bool {
	return e == LibQueryEngine
}

func (e EngineType) CustomBinaryEnvVar() string {
	return customBinaryEnvVars[e]
}

func (e EngineType) String() string {
	return string(e)
}

// CLIQueryEngineType honours PRISMA_CLI_QUERY_ENGINE_TYPE; anything other than
// "binary" or "library" selects the default library engine.
func CLIQueryEngineType() EngineType {
	switch strings.TrimSpace(os.Getenv(QueryEngineTypeEnvVar)) {
	case "binary":
		return QueryEngine
	case "library":
		return LibQueryEngine
	default:
		return LibQueryEngine
	}
}

// CLIEngines is the set installed alongside the CLI.
func CLIEngines() []EngineType {
	return []EngineType{CLIQueryEngineType(), MigrationEngine, IntrospectionEngine, PrismaFmt}
}
