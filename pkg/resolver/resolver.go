// Package resolver computes the transitive dependency closure of a manifest
// against a registry snapshot.
//
// Resolution is breadth-first, synchronous, and deterministic: direct
// dependencies are seeded in sorted name order and each record's own
// dependencies are enqueued sorted, so a fixed (manifest, registry) pair
// always discovers packages in the same order. Each Resolve call owns its
// local state; concurrent calls over separate registry snapshots need no
// coordination.
package resolver

import (
	"fmt"

	"github.com/stevedore-pm/stevedore/pkg/depgraph"
	"github.com/stevedore-pm/stevedore/pkg/errors"
	"github.com/stevedore-pm/stevedore/pkg/manifest"
	"github.com/stevedore-pm/stevedore/pkg/registry"
	"github.com/stevedore-pm/stevedore/pkg/semver"
)

// ResolvedPackage is one package pinned by a resolution: a single version
// per name, its direct dependency names in sorted order, and the checksum
// of the registry record it was built from.
type ResolvedPackage struct {
	Name         string
	Version      semver.Version
	Dependencies []string
	Checksum     string
}

// Label returns the display identity used in dependency trees,
// e.g. "serde v1.0.195".
func (p ResolvedPackage) Label() string {
	return fmt.Sprintf("%s v%s", p.Name, p.Version)
}

// Result is a complete resolution: packages in BFS discovery order, at most
// one per name, closed under dependencies, and acyclic.
type Result struct {
	Packages []ResolvedPackage
}

// Len returns the number of resolved packages.
func (r *Result) Len() int { return len(r.Packages) }

// Find returns the resolved package with the given name, if present.
func (r *Result) Find(name string) (ResolvedPackage, bool) {
	for _, pkg := range r.Packages {
		if pkg.Name == name {
			return pkg, true
		}
	}
	return ResolvedPackage{}, false
}

// request is one queued resolution demand: a package name, the requirement
// it must satisfy, and the requester (for conflict diagnostics).
type request struct {
	name   string
	req    semver.Requirement
	parent string
}

// Resolve computes the dependency closure of the manifest against the
// registry snapshot.
//
// The first discovered version for a name is binding: a later request for
// the same name succeeds silently if the chosen version satisfies it, and
// fails with VersionConflict otherwise. There is no backtracking and no
// constraint intersection. Missing packages fail with PackageNotFound, and
// a dependency cycle fails with CircularDependency before any result is
// returned. On any error the resolution aborts atomically.
func Resolve(m *manifest.Manifest, idx *registry.Index) (*Result, error) {
	visited := make(map[string]semver.Version)
	requesters := make(map[string][]string)

	var queue []request
	root := &manifest.Record{
		Name:         m.Package.Name,
		Version:      m.Package.Version,
		Dependencies: m.Dependencies,
	}
	for _, name := range root.DependencyNames() {
		queue = append(queue, request{name: name, req: m.Dependencies[name], parent: m.Package.Name})
	}

	var packages []ResolvedPackage
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		requesters[next.name] = append(requesters[next.name], next.parent)

		if chosen, seen := visited[next.name]; seen {
			if next.req.Matches(chosen) {
				// Dedup: the edge is already recorded on the requester's
				// dependency list; nothing new to fetch.
				continue
			}
			return nil, &errors.VersionConflictError{
				Name:        next.name,
				Requirement: next.req.String(),
				Chosen:      chosen.String(),
				Parents:     requesters[next.name],
			}
		}

		rec, err := idx.Lookup(next.name, next.req)
		if err != nil {
			return nil, err
		}

		visited[next.name] = rec.Version
		depNames := rec.DependencyNames()
		packages = append(packages, ResolvedPackage{
			Name:         rec.Name,
			Version:      rec.Version,
			Dependencies: depNames,
			Checksum:     rec.Checksum(),
		})

		for _, depName := range depNames {
			queue = append(queue, request{name: depName, req: rec.Dependencies[depName], parent: rec.Name})
		}
	}

	result := &Result{Packages: packages}
	if cycle, found := nameGraph(result).DetectCycle(); found {
		return nil, &errors.CircularDependencyError{Cycle: cycle}
	}
	return result, nil
}

// nameGraph builds a graph keyed by bare package names, used for cycle
// detection (cycle reports read "a -> b -> a", without version noise).
func nameGraph(result *Result) *depgraph.Graph {
	g := depgraph.New()
	for _, pkg := range result.Packages {
		_ = g.AddNode(pkg.Name)
	}
	for _, pkg := range result.Packages {
		for _, dep := range pkg.Dependencies {
			if g.HasNode(dep) {
				_ = g.AddEdge(pkg.Name, dep)
			}
		}
	}
	return g
}

// BuildGraph builds the display graph of a resolution, with nodes labeled
// "name vX.Y.Z". Edges point from each package to the dependencies that are
// themselves part of the resolution.
func BuildGraph(packages []ResolvedPackage) *depgraph.Graph {
	labels := make(map[string]string, len(packages))
	for _, pkg := range packages {
		labels[pkg.Name] = pkg.Label()
	}

	g := depgraph.New()
	for _, pkg := range packages {
		_ = g.AddNode(labels[pkg.Name])
	}
	for _, pkg := range packages {
		for _, dep := range pkg.Dependencies {
			if label, ok := labels[dep]; ok {
				_ = g.AddEdge(labels[pkg.Name], label)
			}
		}
	}
	return g
}
