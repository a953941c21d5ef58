package engines

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/crmarques/prismafmt/faults"
)

var (
	commitHashPattern   = regexp.MustCompile(`^[0-9a-f]{40}$`)
	trailingHashPattern = regexp.MustCompile(`([0-9a-f]{40})$`)
)

// EnginesVersion is a published engines package version such as
// 3.12.0-37.22b822189f46ef0dc5c5b503368d1bee01213980.
type EnginesVersion struct {
	Prisma *semver.Version
	Hash   string
}

func IsCommitHash(value string) bool {
	return commitHashPattern.MatchString(strings.TrimSpace(value))
}

// ParseEnginesVersion splits a package version into the prisma release it
// targets and the engines commit hash it wraps.
func ParseEnginesVersion(value string) (EnginesVersion, error) {
	trimmed := strings.TrimSpace(value)
	parsed, err := semver.NewVersion(trimmed)
	if err != nil {
		return EnginesVersion{}, faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("engines version %q is not a semantic version", trimmed),
			err,
		)
	}

	prerelease := parsed.Prerelease()
	hash := trailingHashPattern.FindString(prerelease)
	if hash == "" {
		return EnginesVersion{}, faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("engines version %q does not carry a commit hash", trimmed),
			nil,
		)
	}

	return EnginesVersion{Prisma: parsed, Hash: hash}, nil
}

// ResolveHash accepts either a bare commit hash or a package version.
func ResolveHash(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if IsCommitHash(trimmed) {
		return trimmed, nil
	}
	parsed, err := ParseEnginesVersion(trimmed)
	if err != nil {
		return "", err
	}
	return parsed.Hash, nil
}
