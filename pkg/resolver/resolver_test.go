package resolver

import (
	stderrors "errors"
	"slices"
	"strings"
	"testing"

	"github.com/stevedore-pm/stevedore/pkg/errors"
	"github.com/stevedore-pm/stevedore/pkg/manifest"
	"github.com/stevedore-pm/stevedore/pkg/registry"
	"github.com/stevedore-pm/stevedore/pkg/semver"
)

func record(name, version string, deps map[string]string) *manifest.Record {
	parsed := make(map[string]semver.Requirement, len(deps))
	for depName, text := range deps {
		parsed[depName] = semver.MustParseRequirement(text)
	}
	return &manifest.Record{
		Name:         name,
		Version:      semver.MustParse(version),
		Dependencies: parsed,
	}
}

func testManifest(deps map[string]string) *manifest.Manifest {
	parsed := make(map[string]semver.Requirement, len(deps))
	for name, text := range deps {
		parsed[name] = semver.MustParseRequirement(text)
	}
	return &manifest.Manifest{
		Package: manifest.PackageInfo{
			Name:    "my-app",
			Version: semver.MustParse("0.1.0"),
		},
		Dependencies: parsed,
	}
}

func TestResolveEmptyManifest(t *testing.T) {
	result, err := Resolve(testManifest(nil), registry.NewIndex(nil))
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if result.Len() != 0 {
		t.Errorf("Len() = %d, want empty result", result.Len())
	}
}

// Concrete scenario from the requirements: serde and tokio resolve to the
// registry's latest 1.x versions with no edges between them.
func TestResolveSerdeTokio(t *testing.T) {
	idx := registry.NewIndex([]*manifest.Record{
		record("serde", "1.0.195", nil),
		record("tokio", "1.35.1", nil),
	})
	m := testManifest(map[string]string{"serde": "^1.0", "tokio": "^1.0"})

	result, err := Resolve(m, idx)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if result.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", result.Len())
	}

	serde, ok := result.Find("serde")
	if !ok || serde.Version.String() != "1.0.195" {
		t.Errorf("serde = %+v, want 1.0.195", serde)
	}
	tokio, ok := result.Find("tokio")
	if !ok || tokio.Version.String() != "1.35.1" {
		t.Errorf("tokio = %+v, want 1.35.1", tokio)
	}

	g := BuildGraph(result.Packages)
	if g.EdgeCount() != 0 {
		t.Errorf("EdgeCount() = %d, want no edges between serde and tokio", g.EdgeCount())
	}
	tree := g.RenderTree()
	lines := strings.Split(strings.TrimRight(tree, "\n"), "\n")
	if len(lines) != 2 {
		t.Errorf("tree should have two top-level entries, got:\n%s", tree)
	}
}

func TestResolveTransitive(t *testing.T) {
	idx := registry.NewIndex([]*manifest.Record{
		record("web", "2.0.0", map[string]string{"http": "^1.0", "json": "~1.2"}),
		record("http", "1.4.0", map[string]string{"sockets": "*"}),
		record("json", "1.2.7", nil),
		record("sockets", "0.9.1", nil),
	})
	m := testManifest(map[string]string{"web": "^2.0"})

	result, err := Resolve(m, idx)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if result.Len() != 4 {
		t.Fatalf("Len() = %d, want full closure of 4", result.Len())
	}

	// BFS discovery order: direct deps first, then deeper levels.
	var names []string
	for _, pkg := range result.Packages {
		names = append(names, pkg.Name)
	}
	want := []string{"web", "http", "json", "sockets"}
	if !slices.Equal(names, want) {
		t.Errorf("discovery order = %v, want %v", names, want)
	}

	// Closure completeness: every referenced dependency is resolved.
	for _, pkg := range result.Packages {
		for _, dep := range pkg.Dependencies {
			if _, ok := result.Find(dep); !ok {
				t.Errorf("dependency %s of %s missing from result", dep, pkg.Name)
			}
		}
	}
}

func TestResolveDiamondDeduplicates(t *testing.T) {
	idx := registry.NewIndex([]*manifest.Record{
		record("a", "1.0.0", map[string]string{"shared": "^1.0"}),
		record("b", "1.0.0", map[string]string{"shared": "^1.0"}),
		record("shared", "1.2.0", nil),
	})
	m := testManifest(map[string]string{"a": "*", "b": "*"})

	result, err := Resolve(m, idx)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if result.Len() != 3 {
		t.Errorf("Len() = %d, want 3 (shared resolved once)", result.Len())
	}
}

func TestResolvePicksLatestCompatible(t *testing.T) {
	idx := registry.NewIndex([]*manifest.Record{
		record("serde", "1.0.100", nil),
		record("serde", "1.0.195", nil),
		record("serde", "2.0.0", nil),
	})
	m := testManifest(map[string]string{"serde": "^1.0"})

	result, err := Resolve(m, idx)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	pkg, _ := result.Find("serde")
	if pkg.Version.String() != "1.0.195" {
		t.Errorf("serde = %s, want latest compatible 1.0.195", pkg.Version)
	}
}

func TestResolvePackageNotFound(t *testing.T) {
	m := testManifest(map[string]string{"ghost": "^1.0"})
	_, err := Resolve(m, registry.NewIndex(nil))
	if err == nil {
		t.Fatal("Resolve() should fail for unknown package")
	}
	if !errors.Is(err, errors.ErrCodePackageNotFound) {
		t.Errorf("error code = %s, want PACKAGE_NOT_FOUND", errors.GetCode(err))
	}
}

func TestResolveVersionConflict(t *testing.T) {
	// a needs serde ^1.0, b needs serde ^2.0; serde 1.0.195 is bound first.
	idx := registry.NewIndex([]*manifest.Record{
		record("a", "1.0.0", map[string]string{"serde": "^1.0"}),
		record("b", "1.0.0", map[string]string{"serde": "^2.0"}),
		record("serde", "1.0.195", nil),
		record("serde", "2.0.1", nil),
	})
	m := testManifest(map[string]string{"a": "*", "b": "*"})

	_, err := Resolve(m, idx)
	if err == nil {
		t.Fatal("Resolve() should fail on incompatible requirements")
	}
	if !errors.Is(err, errors.ErrCodeVersionConflict) {
		t.Fatalf("error code = %s, want VERSION_CONFLICT", errors.GetCode(err))
	}

	var conflict *errors.VersionConflictError
	if !stderrors.As(err, &conflict) {
		t.Fatalf("error is %T, want *VersionConflictError", err)
	}
	if conflict.Name != "serde" || conflict.Chosen != "1.0.195" || conflict.Requirement != "^2.0" {
		t.Errorf("conflict = %+v, want serde 1.0.195 vs ^2.0", conflict)
	}
	if !slices.Contains(conflict.Parents, "b") {
		t.Errorf("conflict.Parents = %v, should name requester b", conflict.Parents)
	}
}

func TestResolveCompatibleRerequestSucceeds(t *testing.T) {
	// a needs serde ^1.0, b needs serde ~1.0; the bound 1.0.195 satisfies both.
	idx := registry.NewIndex([]*manifest.Record{
		record("a", "1.0.0", map[string]string{"serde": "^1.0"}),
		record("b", "1.0.0", map[string]string{"serde": "~1.0"}),
		record("serde", "1.0.195", nil),
	})
	m := testManifest(map[string]string{"a": "*", "b": "*"})

	result, err := Resolve(m, idx)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if result.Len() != 3 {
		t.Errorf("Len() = %d, want 3", result.Len())
	}
}

func TestResolveCircularDependency(t *testing.T) {
	idx := registry.NewIndex([]*manifest.Record{
		record("a", "1.0.0", map[string]string{"b": "^1.0"}),
		record("b", "1.0.0", map[string]string{"a": "^1.0"}),
	})
	m := testManifest(map[string]string{"a": "^1.0"})

	_, err := Resolve(m, idx)
	if err == nil {
		t.Fatal("Resolve() should fail on a circular dependency")
	}
	if !errors.Is(err, errors.ErrCodeCircularDependency) {
		t.Fatalf("error code = %s, want CIRCULAR_DEPENDENCY", errors.GetCode(err))
	}

	var circular *errors.CircularDependencyError
	if !stderrors.As(err, &circular) {
		t.Fatalf("error is %T, want *CircularDependencyError", err)
	}
	if !slices.Equal(circular.Cycle, []string{"a", "b", "a"}) {
		t.Errorf("Cycle = %v, want [a b a]", circular.Cycle)
	}
}

func TestResolveDeterministic(t *testing.T) {
	idx := registry.NewIndex([]*manifest.Record{
		record("web", "2.0.0", map[string]string{"http": "^1.0", "json": "^1.0", "auth": "^1.0"}),
		record("http", "1.4.0", nil),
		record("json", "1.2.7", nil),
		record("auth", "1.0.3", map[string]string{"http": "^1.0"}),
	})
	m := testManifest(map[string]string{"web": "^2.0", "json": "*"})

	first, err := Resolve(m, idx)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	for range 10 {
		again, err := Resolve(m, idx)
		if err != nil {
			t.Fatalf("Resolve() error: %v", err)
		}
		if !slices.EqualFunc(first.Packages, again.Packages, func(a, b ResolvedPackage) bool {
			return a.Name == b.Name && a.Version == b.Version && a.Checksum == b.Checksum &&
				slices.Equal(a.Dependencies, b.Dependencies)
		}) {
			t.Fatal("Resolve() is not deterministic across runs")
		}
	}
}

func TestResolvedPackageChecksum(t *testing.T) {
	rec := record("serde", "1.0.195", nil)
	idx := registry.NewIndex([]*manifest.Record{rec})
	m := testManifest(map[string]string{"serde": "^1.0"})

	result, err := Resolve(m, idx)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	pkg, _ := result.Find("serde")
	if pkg.Checksum != rec.Checksum() {
		t.Error("resolved checksum should equal the registry record's checksum")
	}
}

func TestBuildGraphLabels(t *testing.T) {
	packages := []ResolvedPackage{
		{Name: "app", Version: semver.MustParse("1.0.0"), Dependencies: []string{"lib"}},
		{Name: "lib", Version: semver.MustParse("2.1.0")},
	}
	g := BuildGraph(packages)
	if !g.HasNode("app v1.0.0") || !g.HasNode("lib v2.1.0") {
		t.Errorf("graph nodes = %v, want labeled name vX.Y.Z", g.Nodes())
	}
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, want 1", g.EdgeCount())
	}
}
