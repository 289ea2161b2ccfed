package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/stevedore-pm/stevedore/pkg/buildinfo"
	"github.com/stevedore-pm/stevedore/pkg/lockfile"
	"github.com/stevedore-pm/stevedore/pkg/manifest"
	"github.com/stevedore-pm/stevedore/pkg/registry"
)

// rootOpts holds the persistent flags shared by every command: where the
// manifest, lockfile, and registry live.
type rootOpts struct {
	manifestPath string
	lockfilePath string
	registryPath string
}

// loadManifest reads the project manifest from the configured path.
func (o *rootOpts) loadManifest() (*manifest.Manifest, error) {
	return manifest.Load(o.manifestPath)
}

// loadRegistry builds a registry index from the configured directory.
func (o *rootOpts) loadRegistry() (*registry.Index, error) {
	return registry.LoadDir(o.registryPath)
}

// Execute runs the stevedore CLI and returns an error if any command fails.
//
// The function sets up the root command with all subcommands (init, install,
// update, tree, registry), configures logging based on the --verbose flag,
// and executes the command tree.
//
// Logging:
//   - Default: info level (logs to stderr)
//   - With --verbose (-v): debug level
//
// The logger is attached to the context and accessible to all commands via
// loggerFromContext.
func Execute(ctx context.Context) error {
	var verbose bool
	opts := rootOpts{
		manifestPath: manifest.DefaultPath,
		lockfilePath: lockfile.DefaultPath,
		registryPath: "registry-data",
	}

	root := &cobra.Command{
		Use:          "stevedore",
		Short:        "Stevedore resolves and installs package dependencies",
		Long:         `Stevedore is a package manager that resolves dependency requirements against a local registry, pins the result in a reproducible lockfile, and installs the packages.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&opts.manifestPath, "manifest", opts.manifestPath, "path to the package manifest")
	root.PersistentFlags().StringVar(&opts.lockfilePath, "lockfile", opts.lockfilePath, "path to the lockfile")
	root.PersistentFlags().StringVar(&opts.registryPath, "registry", opts.registryPath, "path to the registry directory")

	root.AddCommand(newInitCmd())
	root.AddCommand(newInstallCmd(&opts))
	root.AddCommand(newUpdateCmd(&opts))
	root.AddCommand(newTreeCmd(&opts))
	root.AddCommand(newRegistryCmd(&opts))

	return root.ExecuteContext(ctx)
}
