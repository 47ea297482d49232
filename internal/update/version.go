package update

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Version is a parsed semantic version.
type Version struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string
	Raw        string
}

// semverRegex matches versions with an optional v prefix and prerelease,
// e.g. v1.2.3, 1.2.3, v1.2.3-beta.1.
var semverRegex = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)(?:-([a-zA-Z0-9.-]+))?$`)

// ParseVersion parses a version string. Non-semver strings ("dev",
// "unknown", commit hashes) parse into a Version carrying only Raw;
// comparison then falls back to raw-string semantics.
func ParseVersion(s string) (*Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty version string")
	}

	v := &Version{Raw: s}
	matches := semverRegex.FindStringSubmatch(s)
	if matches == nil {
		return v, nil
	}

	var err error
	if v.Major, err = strconv.Atoi(matches[1]); err != nil {
		return nil, fmt.Errorf("invalid major version: %w", err)
	}
	if v.Minor, err = strconv.Atoi(matches[2]); err != nil {
		return nil, fmt.Errorf("invalid minor version: %w", err)
	}
	if v.Patch, err = strconv.Atoi(matches[3]); err != nil {
		return nil, fmt.Errorf("invalid patch version: %w", err)
	}
	v.Prerelease = matches[4]
	return v, nil
}

// IsDevBuild reports whether this is an explicit development build.
func (v *Version) IsDevBuild() bool {
	return v.Raw == "dev" || v.Raw == "unknown" ||
		strings.HasPrefix(v.Raw, "dev-") || strings.Contains(v.Raw, "-dirty")
}

// IsSemver reports whether the version parsed as semantic versioning.
func (v *Version) IsSemver() bool {
	return v.Major > 0 || v.Minor > 0 || v.Patch > 0 || v.Prerelease != ""
}

// Compare returns -1, 0, or 1 as v is older than, equal to, or newer than
// other. Dev builds sort before any release; two distinct non-semver
// versions compare as "older" so callers err toward updating.
func (v *Version) Compare(other *Version) int {
	switch {
	case v.IsDevBuild() && !other.IsDevBuild():
		return -1
	case !v.IsDevBuild() && other.IsDevBuild():
		return 1
	case v.IsDevBuild() && other.IsDevBuild():
		if v.Raw == other.Raw {
			return 0
		}
		return -1
	}

	if !v.IsSemver() || !other.IsSemver() {
		if v.Raw == other.Raw {
			return 0
		}
		if v.IsSemver() {
			return 1
		}
		return -1
	}

	if c := compareInt(v.Major, other.Major); c != 0 {
		return c
	}
	if c := compareInt(v.Minor, other.Minor); c != 0 {
		return c
	}
	if c := compareInt(v.Patch, other.Patch); c != 0 {
		return c
	}

	// A release outranks its own prereleases: 1.0.0 > 1.0.0-beta.
	switch {
	case v.Prerelease == "" && other.Prerelease != "":
		return 1
	case v.Prerelease != "" && other.Prerelease == "":
		return -1
	case v.Prerelease < other.Prerelease:
		return -1
	case v.Prerelease > other.Prerelease:
		return 1
	}
	return 0
}

// NeedsUpdate reports whether other is newer than v.
func (v *Version) NeedsUpdate(other *Version) bool {
	return v.Compare(other) < 0
}

// String returns the canonical version string with a v prefix.
func (v *Version) String() string {
	if !v.IsSemver() {
		return v.Raw
	}
	s := fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	return s
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
