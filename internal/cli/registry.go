package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stevedore-pm/stevedore/pkg/errors"
	"github.com/stevedore-pm/stevedore/pkg/manifest"
	"github.com/stevedore-pm/stevedore/pkg/semver"
)

// newRegistryCmd creates the registry command group for querying the local
// registry: list, search, and info.
func newRegistryCmd(opts *rootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Query the local package registry",
	}
	cmd.AddCommand(newRegistryListCmd(opts))
	cmd.AddCommand(newRegistrySearchCmd(opts))
	cmd.AddCommand(newRegistryInfoCmd(opts))
	return cmd
}

func newRegistryListCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all packages in the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := opts.loadRegistry()
			if err != nil {
				return err
			}
			for _, name := range idx.Names() {
				versions := idx.Versions(name)
				latest := versions[0]
				extra := ""
				if len(versions) > 1 {
					extra = StyleDim.Render(fmt.Sprintf(" (+%d older)", len(versions)-1))
				}
				fmt.Println(StyleValue.Render(name) + " " + StyleHighlight.Render("v"+latest.String()) + extra)
			}
			printDetail("%d packages", idx.Len())
			return nil
		},
	}
}

func newRegistrySearchCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search packages by name or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := opts.loadRegistry()
			if err != nil {
				return err
			}
			results := idx.Search(args[0])
			if len(results) == 0 {
				printInfo("No packages match %q", args[0])
				return nil
			}
			for _, rec := range results {
				line := StyleValue.Render(rec.Name) + " " + StyleHighlight.Render("v"+rec.Version.String())
				if rec.Description != "" {
					line += " " + StyleDim.Render(rec.Description)
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func newRegistryInfoCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "info <name>",
		Short: "Show details for a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := opts.loadRegistry()
			if err != nil {
				return err
			}
			rec, err := idx.Info(args[0])
			if err != nil {
				printError("%s", errors.UserMessage(err))
				return err
			}
			printRecord(rec, idx.Versions(rec.Name))
			return nil
		},
	}
}

func printRecord(rec *manifest.Record, versions []semver.Version) {
	fmt.Println(StyleTitle.Render(rec.Name))
	printKeyValue("version", rec.Version.String())
	if rec.Description != "" {
		printKeyValue("description", rec.Description)
	}
	for i, author := range rec.Authors {
		key := ""
		if i == 0 {
			key = "authors"
		}
		printKeyValue(key, author)
	}
	if len(versions) > 1 {
		var all string
		for i, v := range versions {
			if i > 0 {
				all += ", "
			}
			all += v.String()
		}
		printKeyValue("versions", all)
	}
	deps := rec.DependencyNames()
	if len(deps) == 0 {
		printKeyValue("dependencies", StyleDim.Render("none"))
		return
	}
	for i, dep := range deps {
		key := ""
		if i == 0 {
			key = "dependencies"
		}
		printKeyValue(key, fmt.Sprintf("%s %s", dep, rec.Dependencies[dep]))
	}
}
