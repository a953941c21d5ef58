package commandmeta

import (
	"strings"
)

type OutputPolicy uint8

const (
	OutputPolicyStructured OutputPolicy = iota
	OutputPolicyTextOnly
	OutputPolicyYAMLDefaultTextOrYAML
)

// EmitsExecutionStatusPath lists commands that change local state and report
// an [OK]/[ERROR] line on stderr.
func EmitsExecutionStatusPath(path string) bool {
	switch strings.TrimSpace(path) {
	case "prisma-fmt engines download",
		"prisma-fmt config init":
		return true
	default:
		return false
	}
}

func OutputPolicyForPath(path string) OutputPolicy {
	switch strings.TrimSpace(path) {
	case "prisma-fmt config show":
		return OutputPolicyYAMLDefaultTextOrYAML
	case "prisma-fmt serve",
		"prisma-fmt engines path":
		return OutputPolicyTextOnly
	default:
		return OutputPolicyStructured
	}
}
