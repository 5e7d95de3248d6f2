package core

import (
	"strings"

	"golang.org/x/mod/semver"
)

// ResolveIncludeVersion implements the pure comparison half of the
// dropped "versioned include" feature exercised by
// original_source/tests/unit/test_compile_run_includes_versions.h: an
// `include<"/std/io", version="1.2">` constraint resolves to the highest
// available release whose major.minor matches, while
// `version="1.2.0"` resolves to that exact release. The (external)
// include resolver is responsible for listing `available` by walking the
// include path on disk (§1); this function only picks the winner, so it
// belongs to the core even though file I/O does not.
func ResolveIncludeVersion(constraint string, available []string) (string, error) {
	if constraint == "" {
		return "", semErr("version constraint must not be empty")
	}
	exact := len(strings.Split(strings.TrimPrefix(constraint, "v"), ".")) >= 3
	want := toSemver(constraint)
	if !semver.IsValid(want) {
		return "", semErr("invalid version constraint: %q", constraint)
	}

	best := ""
	for _, candidate := range available {
		v := toSemver(candidate)
		if !semver.IsValid(v) {
			continue
		}
		if exact {
			if semver.Compare(v, want) == 0 {
				return candidate, nil
			}
			continue
		}
		if semver.MajorMinor(v) != semver.MajorMinor(want) {
			continue
		}
		if best == "" || semver.Compare(v, toSemver(best)) > 0 {
			best = candidate
		}
	}
	if best == "" {
		return "", semErr("no available version satisfies constraint %q", constraint)
	}
	return best, nil
}

// toSemver prefixes "v" and pads a bare "major.minor" constraint to a
// valid semver string ("1.2" -> "v1.2.0") so semver.IsValid/Compare
// accept it; exact three-component constraints pass through unchanged
// aside from the "v" prefix.
func toSemver(s string) string {
	s = strings.TrimPrefix(s, "v")
	parts := strings.Split(s, ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return "v" + strings.Join(parts[:3], ".")
}
