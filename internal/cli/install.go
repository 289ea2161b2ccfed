package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stevedore-pm/stevedore/pkg/errors"
	"github.com/stevedore-pm/stevedore/pkg/installer"
	"github.com/stevedore-pm/stevedore/pkg/lockfile"
	"github.com/stevedore-pm/stevedore/pkg/resolver"
)

// newInstallCmd creates the install command: resolve the manifest against
// the registry, pin the result in the lockfile, and install the packages.
func newInstallCmd(opts *rootOpts) *cobra.Command {
	targetDir := installer.DefaultTargetDir

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Resolve dependencies and install them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, opts, targetDir, false)
		},
	}
	cmd.Flags().StringVar(&targetDir, "target", targetDir, "installation directory")
	return cmd
}

// newUpdateCmd creates the update command: re-resolve to the latest
// compatible versions and rewrite the lockfile, ignoring existing pins.
func newUpdateCmd(opts *rootOpts) *cobra.Command {
	targetDir := installer.DefaultTargetDir

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update dependencies to the latest compatible versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, opts, targetDir, true)
		},
	}
	cmd.Flags().StringVar(&targetDir, "target", targetDir, "installation directory")
	return cmd
}

func runInstall(cmd *cobra.Command, opts *rootOpts, targetDir string, update bool) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	m, err := opts.loadManifest()
	if err != nil {
		return err
	}
	idx, err := opts.loadRegistry()
	if err != nil {
		return err
	}
	logger.Debugf("loaded %d packages from %s", idx.Len(), opts.registryPath)

	sp := newSpinner(ctx, "Resolving dependencies...")
	sp.Start()
	prog := newProgress(logger)
	result, err := resolver.Resolve(m, idx)
	sp.Stop()
	if err != nil {
		printError("%s", errors.UserMessage(err))
		return err
	}
	prog.done(resolvedMsg(result))

	if err := writeLockfile(result, opts.lockfilePath, update); err != nil {
		return err
	}

	if err := installer.Install(result, targetDir); err != nil {
		return err
	}
	for _, pkg := range result.Packages {
		printDetail("%s v%s", pkg.Name, pkg.Version)
	}
	printSuccess("Installed %d packages into %s", result.Len(), targetDir)
	return nil
}

// writeLockfile pins the result at path. In install mode an up-to-date
// lockfile is left untouched; a corrupt or stale one is rewritten with a
// warning. In update mode the lockfile is always rewritten.
func writeLockfile(result *resolver.Result, path string, update bool) error {
	if !update && lockfile.Exists(path) {
		ok, err := lockfile.Verify(result, path)
		if err != nil {
			printWarning("Lockfile %s is corrupt, regenerating", path)
		} else if ok {
			printDetail("lockfile %s is up to date", path)
			return nil
		} else {
			printWarning("Lockfile %s is out of date, regenerating", path)
		}
	}
	if err := lockfile.Write(result, path); err != nil {
		return err
	}
	printDetail("wrote lockfile %s", path)
	return nil
}

func resolvedMsg(result *resolver.Result) string {
	if result.Len() == 1 {
		return "Resolved 1 package"
	}
	return fmt.Sprintf("Resolved %d packages", result.Len())
}
