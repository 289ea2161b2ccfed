// Package lockfile serializes a resolution result to its reproducible
// on-disk form (Package.lock) and back.
//
// The encoded form is TOML: a schema version tag plus one [[package]] block
// per resolved package, sorted by (name, version). Sorting, not discovery
// order, is what makes the byte output reproducible regardless of how the
// resolver's queue interleaved; decode therefore returns packages in the
// canonical sorted order.
package lockfile

import (
	"os"
	"slices"

	"github.com/BurntSushi/toml"

	"github.com/stevedore-pm/stevedore/pkg/errors"
	"github.com/stevedore-pm/stevedore/pkg/resolver"
	"github.com/stevedore-pm/stevedore/pkg/semver"
)

// SchemaVersion tags the lockfile layout. Decode rejects anything else.
const SchemaVersion = "1.0"

// DefaultPath is the lockfile location relative to the project root.
const DefaultPath = "Package.lock"

// file is the raw TOML form of a lockfile.
type file struct {
	Version  string        `toml:"version"`
	Packages []packageFile `toml:"package"`
}

// packageFile is one [[package]] block. Dependencies is a pointer so decode
// can tell a missing field apart from an explicitly empty list: both are
// required to round-trip, only the latter is valid.
type packageFile struct {
	Name         string    `toml:"name"`
	Version      string    `toml:"version"`
	Dependencies *[]string `toml:"dependencies"`
	Checksum     string    `toml:"checksum"`
}

// Encode renders the result as lockfile TOML, sorted by (name, version).
// Identical results always produce byte-identical output.
func Encode(result *resolver.Result) ([]byte, error) {
	packages := make([]packageFile, 0, len(result.Packages))
	for _, pkg := range result.Packages {
		deps := pkg.Dependencies
		if deps == nil {
			deps = []string{}
		}
		packages = append(packages, packageFile{
			Name:         pkg.Name,
			Version:      pkg.Version.String(),
			Dependencies: &deps,
			Checksum:     pkg.Checksum,
		})
	}

	slices.SortFunc(packages, func(a, b packageFile) int {
		if a.Name != b.Name {
			if a.Name < b.Name {
				return -1
			}
			return 1
		}
		va, _ := semver.Parse(a.Version)
		vb, _ := semver.Parse(b.Version)
		return va.Compare(vb)
	})

	data, err := toml.Marshal(file{Version: SchemaVersion, Packages: packages})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encoding lockfile")
	}
	return data, nil
}

// Decode parses lockfile TOML back into a resolution result, validating the
// schema version and every required field. Fails with CorruptLockfile on a
// missing or mismatched field or unreadable structure.
func Decode(data []byte) (*resolver.Result, error) {
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, &errors.CorruptLockfileError{Reason: "unreadable structure", Cause: err}
	}
	if f.Version == "" {
		return nil, &errors.CorruptLockfileError{Reason: "missing schema version"}
	}
	if f.Version != SchemaVersion {
		return nil, &errors.CorruptLockfileError{
			Reason: "unsupported schema version " + f.Version,
		}
	}

	result := &resolver.Result{Packages: make([]resolver.ResolvedPackage, 0, len(f.Packages))}
	for _, pkg := range f.Packages {
		if pkg.Name == "" {
			return nil, &errors.CorruptLockfileError{Reason: "package entry without a name"}
		}
		version, err := semver.Parse(pkg.Version)
		if err != nil {
			return nil, &errors.CorruptLockfileError{
				Reason: "package " + pkg.Name + " has an invalid version",
				Cause:  err,
			}
		}
		if pkg.Checksum == "" {
			return nil, &errors.CorruptLockfileError{Reason: "package " + pkg.Name + " is missing its checksum"}
		}
		if pkg.Dependencies == nil {
			return nil, &errors.CorruptLockfileError{Reason: "package " + pkg.Name + " is missing its dependencies list"}
		}
		result.Packages = append(result.Packages, resolver.ResolvedPackage{
			Name:         pkg.Name,
			Version:      version,
			Dependencies: *pkg.Dependencies,
			Checksum:     pkg.Checksum,
		})
	}
	return result, nil
}

// Write atomically replaces the lockfile at path with the encoded result.
// The temp-file-and-rename dance means a failed write never leaves a
// partial lockfile behind.
func Write(result *resolver.Result, path string) error {
	data, err := Encode(result)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "writing lockfile %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(errors.ErrCodeInternal, err, "writing lockfile %s", path)
	}
	return nil
}

// Load reads and decodes the lockfile at path.
func Load(path string) (*resolver.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "reading lockfile %s", path)
	}
	return Decode(data)
}

// Exists reports whether a lockfile is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Verify reports whether the lockfile at path pins exactly the packages of
// a fresh resolution: same count, and for each package the same name,
// version, and record checksum. Checksums catch registry drift for a
// pinned (name, version) without re-running resolution. A missing lockfile
// verifies false; a corrupt one returns the decode error.
func Verify(result *resolver.Result, path string) (bool, error) {
	if !Exists(path) {
		return false, nil
	}
	locked, err := Load(path)
	if err != nil {
		return false, err
	}
	if locked.Len() != result.Len() {
		return false, nil
	}
	for _, pkg := range result.Packages {
		pinned, ok := locked.Find(pkg.Name)
		if !ok || pinned.Version != pkg.Version || pinned.Checksum != pkg.Checksum {
			return false, nil
		}
	}
	return true, nil
}
