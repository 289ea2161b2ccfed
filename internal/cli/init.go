package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stevedore-pm/stevedore/pkg/manifest"
)

// newInitCmd creates the init command, which scaffolds a fresh Package.toml
// in the current directory. The package name defaults to the directory name.
func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [name]",
		Short: "Create a new package manifest",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			if name == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				name = filepath.Base(wd)
			}

			if _, err := os.Stat(manifest.DefaultPath); err == nil {
				return fmt.Errorf("%s already exists", manifest.DefaultPath)
			}

			m := manifest.Scaffold(name)
			if err := m.Save(manifest.DefaultPath); err != nil {
				return err
			}

			printSuccess("Created %s for %s", manifest.DefaultPath, StyleHighlight.Render(name))
			printNextStep("Add dependencies, then run", "stevedore install")
			return nil
		},
	}
}
