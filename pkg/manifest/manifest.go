// Package manifest defines the package records consumed by the resolver:
// the project manifest (Package.toml) and the per-version registry records.
// Both are TOML on disk; requirements are parsed eagerly at load time so
// malformed requirement text fails before resolution starts.
package manifest

import (
	"fmt"
	"os"
	"slices"

	"github.com/BurntSushi/toml"

	"github.com/stevedore-pm/stevedore/pkg/errors"
	"github.com/stevedore-pm/stevedore/pkg/semver"
)

// DefaultPath is the manifest location relative to the project root.
const DefaultPath = "Package.toml"

// PackageInfo identifies a package: name, version, and authorship metadata.
type PackageInfo struct {
	Name        string
	Version     semver.Version
	Authors     []string
	Description string // optional
}

// Manifest is a project's declaration: its identity and its direct
// dependency requirements.
type Manifest struct {
	Package      PackageInfo
	Dependencies map[string]semver.Requirement
}

// Record is one (name, version) entry in a registry: the same shape as a
// manifest, flattened. A registry may hold many Records per name.
type Record struct {
	Name         string
	Version      semver.Version
	Authors      []string
	Description  string
	Dependencies map[string]semver.Requirement
}

// manifestFile is the raw TOML form of a Manifest.
type manifestFile struct {
	Package      packageFile       `toml:"package"`
	Dependencies map[string]string `toml:"dependencies,omitempty"`
}

type packageFile struct {
	Name        string   `toml:"name"`
	Version     string   `toml:"version"`
	Authors     []string `toml:"authors"`
	Description string   `toml:"description,omitempty"`
}

// recordFile is the raw TOML form of a registry Record.
type recordFile struct {
	Name         string            `toml:"name"`
	Version      string            `toml:"version"`
	Authors      []string          `toml:"authors"`
	Description  string            `toml:"description,omitempty"`
	Dependencies map[string]string `toml:"dependencies,omitempty"`
}

// Parse decodes manifest TOML. Requirement strings are parsed immediately;
// the first malformed one fails the whole manifest.
func Parse(data []byte) (*Manifest, error) {
	var file manifestFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "unreadable manifest")
	}
	if file.Package.Name == "" {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "manifest is missing package.name")
	}

	version, err := semver.Parse(file.Package.Version)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "manifest package.version")
	}

	deps, err := parseRequirements(file.Dependencies)
	if err != nil {
		return nil, err
	}

	return &Manifest{
		Package: PackageInfo{
			Name:        file.Package.Name,
			Version:     version,
			Authors:     file.Package.Authors,
			Description: file.Package.Description,
		},
		Dependencies: deps,
	}, nil
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "reading manifest %s", path)
	}
	return Parse(data)
}

// Encode renders the manifest as TOML.
func (m *Manifest) Encode() ([]byte, error) {
	file := manifestFile{
		Package: packageFile{
			Name:        m.Package.Name,
			Version:     m.Package.Version.String(),
			Authors:     m.Package.Authors,
			Description: m.Package.Description,
		},
		Dependencies: requirementTexts(m.Dependencies),
	}
	return toml.Marshal(file)
}

// Save writes the manifest to path as TOML.
func (m *Manifest) Save(path string) error {
	data, err := m.Encode()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encoding manifest")
	}
	return os.WriteFile(path, data, 0644)
}

// Scaffold builds a fresh manifest for a new package, used by "init".
func Scaffold(name string) *Manifest {
	return &Manifest{
		Package: PackageInfo{
			Name:        name,
			Version:     semver.Version{Minor: 1},
			Authors:     []string{"Your Name <you@example.com>"},
			Description: "A new package",
		},
		Dependencies: map[string]semver.Requirement{},
	}
}

// ParseRecord decodes a registry record from TOML.
func ParseRecord(data []byte) (*Record, error) {
	var file recordFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "unreadable registry record")
	}
	if file.Name == "" {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "registry record is missing name")
	}

	version, err := semver.Parse(file.Version)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "registry record %s version", file.Name)
	}

	deps, err := parseRequirements(file.Dependencies)
	if err != nil {
		return nil, err
	}

	return &Record{
		Name:         file.Name,
		Version:      version,
		Authors:      file.Authors,
		Description:  file.Description,
		Dependencies: deps,
	}, nil
}

// LoadRecord reads and parses a registry record file.
func LoadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "reading registry record %s", path)
	}
	return ParseRecord(data)
}

// DependencyNames returns the record's direct dependency names in sorted
// order. TOML tables are unordered, so sorting keeps every downstream
// sequence (queue seeding, lockfiles, checksums) deterministic.
func (r *Record) DependencyNames() []string {
	names := make([]string, 0, len(r.Dependencies))
	for name := range r.Dependencies {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func parseRequirements(raw map[string]string) (map[string]semver.Requirement, error) {
	deps := make(map[string]semver.Requirement, len(raw))
	for name, text := range raw {
		req, err := semver.ParseRequirement(text)
		if err != nil {
			return nil, fmt.Errorf("dependency %s: %w", name, err)
		}
		deps[name] = req
	}
	return deps, nil
}

func requirementTexts(deps map[string]semver.Requirement) map[string]string {
	raw := make(map[string]string, len(deps))
	for name, req := range deps {
		raw[name] = req.String()
	}
	return raw
}
