// Package registry provides an in-memory index of available package records.
//
// An Index is an immutable snapshot built once per resolve call and passed
// by reference into the resolver; there is no ambient process-wide registry
// state. Loading records from disk is a collaborator concern layered on top
// of the index via LoadDir.
package registry

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/stevedore-pm/stevedore/pkg/errors"
	"github.com/stevedore-pm/stevedore/pkg/manifest"
	"github.com/stevedore-pm/stevedore/pkg/semver"
)

// Index maps package names to their available records, one per version.
// Records for each name are kept sorted newest-first so the lookup policy
// (latest compatible version) is a linear scan that stops at the first hit.
//
// Index is read-only after construction and safe for concurrent readers.
type Index struct {
	packages map[string][]*manifest.Record
}

// NewIndex builds an index from a set of records. Records sharing a name
// are grouped and sorted by version descending. Duplicate (name, version)
// pairs keep the last record seen.
func NewIndex(records []*manifest.Record) *Index {
	idx := &Index{packages: make(map[string][]*manifest.Record)}
	for _, rec := range records {
		versions := idx.packages[rec.Name]
		replaced := false
		for i, existing := range versions {
			if existing.Version == rec.Version {
				versions[i] = rec
				replaced = true
				break
			}
		}
		if !replaced {
			versions = append(versions, rec)
		}
		idx.packages[rec.Name] = versions
	}

	for _, versions := range idx.packages {
		slices.SortFunc(versions, func(a, b *manifest.Record) int {
			return b.Version.Compare(a.Version)
		})
	}
	return idx
}

// LoadDir reads every .toml file in dir as a registry record and builds an
// index from them. A missing directory yields an empty index, matching the
// behavior of a registry that simply has no packages yet.
func LoadDir(dir string) (*Index, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return NewIndex(nil), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "reading registry directory %s", dir)
	}

	var records []*manifest.Record
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".toml" {
			continue
		}
		rec, err := manifest.LoadRecord(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return NewIndex(records), nil
}

// Lookup returns the record with the maximum version of name satisfying the
// requirement (latest-compatible policy). Fails with PackageNotFound when
// no record for name exists or none satisfies the requirement.
func (idx *Index) Lookup(name string, req semver.Requirement) (*manifest.Record, error) {
	versions, ok := idx.packages[name]
	if !ok {
		return nil, &errors.PackageNotFoundError{Name: name}
	}
	for _, rec := range versions {
		if req.Matches(rec.Version) {
			return rec, nil
		}
	}
	return nil, &errors.PackageNotFoundError{Name: name, Requirement: req.String()}
}

// Names returns all package names in the index, sorted.
func (idx *Index) Names() []string {
	names := make([]string, 0, len(idx.packages))
	for name := range idx.packages {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Versions returns the available versions for name, newest first.
// Returns nil for unknown names.
func (idx *Index) Versions(name string) []semver.Version {
	records := idx.packages[name]
	versions := make([]semver.Version, 0, len(records))
	for _, rec := range records {
		versions = append(versions, rec.Version)
	}
	return versions
}

// Search returns the latest record of every package whose name or
// description contains the query, case-insensitively. Results are sorted
// by name.
func (idx *Index) Search(query string) []*manifest.Record {
	q := strings.ToLower(query)
	var results []*manifest.Record
	for _, name := range idx.Names() {
		latest := idx.packages[name][0]
		if strings.Contains(strings.ToLower(name), q) ||
			strings.Contains(strings.ToLower(latest.Description), q) {
			results = append(results, latest)
		}
	}
	return results
}

// Info returns the latest record for name, regardless of requirements.
// Fails with PackageNotFound for unknown names.
func (idx *Index) Info(name string) (*manifest.Record, error) {
	versions, ok := idx.packages[name]
	if !ok || len(versions) == 0 {
		return nil, &errors.PackageNotFoundError{Name: name}
	}
	return versions[0], nil
}

// Len returns the number of distinct package names in the index.
func (idx *Index) Len() int { return len(idx.packages) }
