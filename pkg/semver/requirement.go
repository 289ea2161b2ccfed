package semver

import (
	"strings"

	"github.com/stevedore-pm/stevedore/pkg/errors"
)

// ReqKind identifies the variant of a version requirement.
type ReqKind int

const (
	// ReqExact matches exactly one version.
	ReqExact ReqKind = iota
	// ReqCaret matches versions compatible with the base under
	// leftmost-nonzero semantics ("^1.2.3" means >=1.2.3 <2.0.0).
	ReqCaret
	// ReqTilde matches patch-level updates ("~1.2.3" means >=1.2.3 <1.3.0).
	ReqTilde
	// ReqGreaterEq matches the base version and anything above it.
	ReqGreaterEq
	// ReqWildcard matches every version.
	ReqWildcard
)

// Requirement is a parsed, immutable predicate over versions.
// Use ParseRequirement to construct one; the zero value matches
// only version 0.0.0.
type Requirement struct {
	kind ReqKind
	base Version
	text string
}

// ParseRequirement parses requirement text into a Requirement.
//
// Supported forms, by prefix:
//
//	"*"        wildcard, matches everything
//	"^1.2.3"   caret, compatible range
//	"~1.2.3"   tilde, patch-level range
//	">=1.2.3"  greater-or-equal
//	"1.2.3"    exact match
//
// Versions inside a requirement may omit trailing components ("^1.0" is
// "^1.0.0"). Malformed input fails with an InvalidRequirementError.
func ParseRequirement(text string) (Requirement, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Requirement{}, &errors.InvalidRequirementError{Text: text, Reason: "empty requirement"}
	}

	if trimmed == "*" {
		return Requirement{kind: ReqWildcard, text: trimmed}, nil
	}

	kind := ReqExact
	rest := trimmed
	switch {
	case strings.HasPrefix(trimmed, "^"):
		kind, rest = ReqCaret, trimmed[1:]
	case strings.HasPrefix(trimmed, "~"):
		kind, rest = ReqTilde, trimmed[1:]
	case strings.HasPrefix(trimmed, ">="):
		kind, rest = ReqGreaterEq, strings.TrimSpace(trimmed[2:])
	}

	if rest == "" || !isDigit(rest[0]) {
		return Requirement{}, &errors.InvalidRequirementError{Text: text, Reason: "unknown prefix"}
	}

	base, _, err := parseLoose(rest)
	if err != nil {
		return Requirement{}, &errors.InvalidRequirementError{Text: text, Reason: "unparseable version"}
	}

	return Requirement{kind: kind, base: base, text: trimmed}, nil
}

// MustParseRequirement is like ParseRequirement but panics on error.
// Intended for tests and fixtures.
func MustParseRequirement(text string) Requirement {
	r, err := ParseRequirement(text)
	if err != nil {
		panic(err)
	}
	return r
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// Kind returns the requirement's variant.
func (r Requirement) Kind() ReqKind { return r.kind }

// Base returns the requirement's base version. Meaningless for wildcards.
func (r Requirement) Base() Version { return r.base }

// String returns the original requirement text.
func (r Requirement) String() string {
	if r.text == "" {
		return r.base.String()
	}
	return r.text
}

// Matches reports whether v satisfies the requirement. Pure and total.
func (r Requirement) Matches(v Version) bool {
	switch r.kind {
	case ReqWildcard:
		return true
	case ReqExact:
		return v.Compare(r.base) == 0
	case ReqCaret:
		return v.Compare(r.base) >= 0 && v.Less(r.base.nextBreaking())
	case ReqTilde:
		upper := Version{Major: r.base.Major, Minor: r.base.Minor + 1}
		return v.Compare(r.base) >= 0 && v.Less(upper)
	case ReqGreaterEq:
		return v.Compare(r.base) >= 0
	default:
		return false
	}
}
