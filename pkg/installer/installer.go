// Package installer materializes a resolution result on disk.
//
// Each resolved package gets its own directory under the target (default
// pkg_modules/) holding a VERSION file, a generated README.md, and a
// Package.toml pinned to the installed versions of its dependencies.
// Installation is a simulation of fetching real archives: the layout is the
// contract, the contents are placeholders.
package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stevedore-pm/stevedore/pkg/errors"
	"github.com/stevedore-pm/stevedore/pkg/resolver"
)

// DefaultTargetDir is where packages are installed relative to the project
// root.
const DefaultTargetDir = "pkg_modules"

// Install writes every package of the result into its own directory under
// targetDir. An already-installed package is removed and rewritten, so a
// re-install always reflects the current resolution.
func Install(result *resolver.Result, targetDir string) error {
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "creating target directory %s", targetDir)
	}
	for _, pkg := range result.Packages {
		if err := installPackage(pkg, targetDir); err != nil {
			return err
		}
	}
	return nil
}

func installPackage(pkg resolver.ResolvedPackage, targetDir string) error {
	dir := filepath.Join(targetDir, pkg.Name)
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "clearing %s", dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "creating %s", dir)
	}

	files := map[string]string{
		"VERSION":      pkg.Version.String(),
		"README.md":    readme(pkg),
		"Package.toml": pinnedManifest(pkg),
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "writing %s", path)
		}
	}
	return nil
}

func readme(pkg resolver.ResolvedPackage) string {
	deps := "No dependencies"
	if len(pkg.Dependencies) > 0 {
		var b strings.Builder
		for i, dep := range pkg.Dependencies {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "- %s", dep)
		}
		deps = b.String()
	}
	return fmt.Sprintf("# %s v%s\n\nThis is a simulated package installation.\n\n## Dependencies\n\n%s\n\nInstalled by: stevedore\n",
		pkg.Name, pkg.Version, deps)
}

func pinnedManifest(pkg resolver.ResolvedPackage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[package]\nname = %q\nversion = %q\n\n[dependencies]\n", pkg.Name, pkg.Version.String())
	for _, dep := range pkg.Dependencies {
		fmt.Fprintf(&b, "%s = \"*\"\n", dep)
	}
	return b.String()
}

// Verify reports whether every package of the result is installed under
// targetDir at its resolved version. A missing target directory, a missing
// package, or a VERSION mismatch all report false.
func Verify(result *resolver.Result, targetDir string) (bool, error) {
	if _, err := os.Stat(targetDir); os.IsNotExist(err) {
		return false, nil
	}
	for _, pkg := range result.Packages {
		path := filepath.Join(targetDir, pkg.Name, "VERSION")
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return false, nil
		}
		if err != nil {
			return false, errors.Wrap(errors.ErrCodeInternal, err, "reading %s", path)
		}
		if strings.TrimSpace(string(data)) != pkg.Version.String() {
			return false, nil
		}
	}
	return true, nil
}
