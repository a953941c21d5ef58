package engines

import (
	"fmt"
	"strings"

	"github.com/crmarques/prismafmt/faults"
)

type Target string

const (
	TargetNative              Target = "native"
	TargetDarwin              Target = "darwin"
	TargetDarwinARM64         Target = "darwin-arm64"
	TargetDebianOpenSSL10     Target = "debian-openssl-1.0.x"
	TargetDebianOpenSSL11     Target = "debian-openssl-1.1.x"
	TargetLinuxARM64OpenSSL10 Target = "linux-arm64-openssl-1.0.x"
	TargetLinuxARM64OpenSSL11 Target = "linux-arm64-openssl-1.1.x"
	TargetRHELOpenSSL10       Target = "rhel-openssl-1.0.x"
	TargetRHELOpenSSL11       Target = "rhel-openssl-1.1.x"
	TargetWindows             Target = "windows"
	TargetLinuxMusl           Target = "linux-musl"
)

var knownTargets = []Target{
	TargetDarwin,
	TargetDarwinARM64,
	TargetDebianOpenSSL10,
	TargetDebianOpenSSL11,
	TargetLinuxARM64OpenSSL10,
	TargetLinuxARM64OpenSSL11,
	TargetRHELOpenSSL10,
	TargetRHELOpenSSL11,
	TargetWindows,
	TargetLinuxMusl,
}

// KnownTargets lists every published platform, without the native alias.
func KnownTargets() []Target {
	return append([]Target(nil), knownTargets...)
}

func (t Target) IsKnown() bool {
	for _, known := range knownTargets {
		if known == t {
			return true
		}
	}
	return false
}

func (t Target) IsWindows() bool {
	return t == TargetWindows
}

func (t Target) IsDarwin() bool {
	return t == TargetDarwin || t == TargetDarwinARM64
}

func (t Target) String() string {
	return string(t)
}

func ParseTargets(values []string) []Target {
	targets := make([]Target, 0, len(values))
	seen := make(map[Target]struct{}, len(values))
	for _, value := range values {
		target := Target(strings.TrimSpace(value))
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		targets = append(targets, target)
	}
	return targets
}

func unknownTargetError(target Target) error {
	return faults.NewTypedError(
		faults.ValidationError,
		fmt.Sprintf("unknown binary target %s and no custom binaries were provided", target),
		nil,
	)
}

// ValidateTarget accepts known targets and the native alias.
func ValidateTarget(target Target) error {
	if target == TargetNative || target.IsKnown() {
		return nil
	}
	return unknownTargetError(target)
}
