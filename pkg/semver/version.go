// Package semver implements the version and requirement model used by the
// resolver: versions are non-negative integer triples with lexicographic
// ordering, and requirements are a closed set of variants (exact, caret,
// tilde, greater-or-equal, wildcard) over a base version.
package semver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stevedore-pm/stevedore/pkg/errors"
)

// Version is a semantic version triple. The zero value (0.0.0) is valid.
// Versions are ordered lexicographically by (Major, Minor, Patch).
type Version struct {
	Major int
	Minor int
	Patch int
}

// Parse parses a full "major.minor.patch" version string.
// All three components are required and must be non-negative integers.
func Parse(text string) (Version, error) {
	v, n, err := parseLoose(text)
	if err != nil {
		return Version{}, err
	}
	if n != 3 {
		return Version{}, &errors.InvalidRequirementError{
			Text:   text,
			Reason: "version must have exactly three components",
		}
	}
	return v, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// compile-time-constant versions.
func MustParse(text string) Version {
	v, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return v
}

// parseLoose parses a version with 1 to 3 dot-separated components,
// zero-filling the missing ones. Returns the component count so callers
// can reject partial versions where a full triple is required.
func parseLoose(text string) (Version, int, error) {
	if text == "" {
		return Version{}, 0, &errors.InvalidRequirementError{Text: text, Reason: "empty version"}
	}

	parts := strings.Split(text, ".")
	if len(parts) > 3 {
		return Version{}, 0, &errors.InvalidRequirementError{Text: text, Reason: "too many components"}
	}

	nums := [3]int{}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || (len(part) > 1 && part[0] == '0') {
			return Version{}, 0, &errors.InvalidRequirementError{
				Text:   text,
				Reason: fmt.Sprintf("non-numeric component %q", part),
			}
		}
		nums[i] = n
	}

	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, len(parts), nil
}

// String returns the canonical "major.minor.patch" form.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0, or +1 if v is less than, equal to, or greater
// than other, comparing components lexicographically.
func (v Version) Compare(other Version) int {
	if c := cmp(v.Major, other.Major); c != 0 {
		return c
	}
	if c := cmp(v.Minor, other.Minor); c != 0 {
		return c
	}
	return cmp(v.Patch, other.Patch)
}

// Less reports whether v orders strictly before other.
func (v Version) Less(other Version) bool { return v.Compare(other) < 0 }

func cmp(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// nextBreaking returns the smallest version considered incompatible with v
// under caret semantics: the leftmost nonzero component is incremented and
// everything to its right is zeroed. An all-zero version yields 0.0.1, so
// ^0.0.0 admits only 0.0.0 itself.
func (v Version) nextBreaking() Version {
	switch {
	case v.Major > 0:
		return Version{Major: v.Major + 1}
	case v.Minor > 0:
		return Version{Minor: v.Minor + 1}
	default:
		return Version{Patch: v.Patch + 1}
	}
}
