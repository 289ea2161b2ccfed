package registry

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stevedore-pm/stevedore/pkg/errors"
	"github.com/stevedore-pm/stevedore/pkg/manifest"
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

func TestLookupPicksLatestCompatible(t *testing.T) {
	idx := NewIndex([]*manifest.Record{
		record("serde", "1.0.100", nil),
		record("serde", "1.0.195", nil),
		record("serde", "2.0.0", nil),
		record("serde", "0.9.0", nil),
	})

	rec, err := idx.Lookup("serde", semver.MustParseRequirement("^1.0"))
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if rec.Version.String() != "1.0.195" {
		t.Errorf("Lookup(^1.0) = %s, want 1.0.195 (latest compatible)", rec.Version)
	}

	rec, err = idx.Lookup("serde", semver.MustParseRequirement("*"))
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if rec.Version.String() != "2.0.0" {
		t.Errorf("Lookup(*) = %s, want 2.0.0", rec.Version)
	}
}

func TestLookupUnknownName(t *testing.T) {
	idx := NewIndex(nil)
	_, err := idx.Lookup("ghost", semver.MustParseRequirement("*"))
	if err == nil {
		t.Fatal("Lookup() should fail for unknown package")
	}
	if !errors.Is(err, errors.ErrCodePackageNotFound) {
		t.Errorf("error code = %s, want PACKAGE_NOT_FOUND", errors.GetCode(err))
	}
}

func TestLookupNoSatisfyingVersion(t *testing.T) {
	idx := NewIndex([]*manifest.Record{record("serde", "1.0.195", nil)})
	_, err := idx.Lookup("serde", semver.MustParseRequirement("^2.0"))
	if err == nil {
		t.Fatal("Lookup() should fail when no version satisfies")
	}
	if !errors.Is(err, errors.ErrCodePackageNotFound) {
		t.Errorf("error code = %s, want PACKAGE_NOT_FOUND", errors.GetCode(err))
	}
}

func TestNewIndexDeduplicatesVersions(t *testing.T) {
	idx := NewIndex([]*manifest.Record{
		record("serde", "1.0.0", nil),
		record("serde", "1.0.0", map[string]string{"later": "*"}),
	})

	if got := idx.Versions("serde"); len(got) != 1 {
		t.Fatalf("Versions() = %v, want one entry per (name, version)", got)
	}
	rec, err := idx.Lookup("serde", semver.MustParseRequirement("1.0.0"))
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if _, ok := rec.Dependencies["later"]; !ok {
		t.Error("duplicate (name, version) should keep the last record seen")
	}
}

func TestNamesSorted(t *testing.T) {
	idx := NewIndex([]*manifest.Record{
		record("tokio", "1.35.1", nil),
		record("anyhow", "1.0.79", nil),
		record("serde", "1.0.195", nil),
	})
	if got := idx.Names(); !slices.Equal(got, []string{"anyhow", "serde", "tokio"}) {
		t.Errorf("Names() = %v, want sorted", got)
	}
}

func TestVersionsNewestFirst(t *testing.T) {
	idx := NewIndex([]*manifest.Record{
		record("serde", "1.0.100", nil),
		record("serde", "2.0.0", nil),
		record("serde", "1.0.195", nil),
	})
	got := idx.Versions("serde")
	want := []string{"2.0.0", "1.0.195", "1.0.100"}
	for i, v := range got {
		if v.String() != want[i] {
			t.Fatalf("Versions() = %v, want %v", got, want)
		}
	}
}

func TestSearch(t *testing.T) {
	serde := record("serde", "1.0.195", nil)
	serde.Description = "Serialization framework"
	tokio := record("tokio", "1.35.1", nil)
	tokio.Description = "Async runtime"
	idx := NewIndex([]*manifest.Record{serde, tokio})

	if got := idx.Search("SERDE"); len(got) != 1 || got[0].Name != "serde" {
		t.Errorf("Search(SERDE) = %v, want serde by name", got)
	}
	if got := idx.Search("runtime"); len(got) != 1 || got[0].Name != "tokio" {
		t.Errorf("Search(runtime) = %v, want tokio by description", got)
	}
	if got := idx.Search("nothing-matches"); len(got) != 0 {
		t.Errorf("Search(nothing-matches) = %v, want empty", got)
	}
}

func TestInfoReturnsLatest(t *testing.T) {
	idx := NewIndex([]*manifest.Record{
		record("serde", "1.0.100", nil),
		record("serde", "1.0.195", nil),
	})
	rec, err := idx.Info("serde")
	if err != nil {
		t.Fatalf("Info() error: %v", err)
	}
	if rec.Version.String() != "1.0.195" {
		t.Errorf("Info() version = %s, want latest 1.0.195", rec.Version)
	}

	if _, err := idx.Info("ghost"); !errors.Is(err, errors.ErrCodePackageNotFound) {
		t.Errorf("Info(ghost) code = %s, want PACKAGE_NOT_FOUND", errors.GetCode(err))
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeRecord := func(file, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	writeRecord("serde.toml", "name = \"serde\"\nversion = \"1.0.195\"\nauthors = []\n")
	writeRecord("tokio.toml", "name = \"tokio\"\nversion = \"1.35.1\"\nauthors = []\n")
	writeRecord("notes.txt", "not a record")

	idx, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error: %v", err)
	}
	if idx.Len() != 2 {
		t.Errorf("Len() = %d, want 2 (non-toml files ignored)", idx.Len())
	}
}

func TestLoadDirMissing(t *testing.T) {
	idx, err := LoadDir(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("LoadDir() on missing dir error: %v", err)
	}
	if idx.Len() != 0 {
		t.Errorf("Len() = %d, want empty index", idx.Len())
	}
}

func TestLoadDirMalformedRecord(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.toml"), []byte("version = \"oops"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDir(dir); err == nil {
		t.Error("LoadDir() should fail on malformed record")
	}
}
