package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stevedore-pm/stevedore/pkg/depgraph"
	"github.com/stevedore-pm/stevedore/pkg/errors"
	"github.com/stevedore-pm/stevedore/pkg/lockfile"
	"github.com/stevedore-pm/stevedore/pkg/manifest"
	"github.com/stevedore-pm/stevedore/pkg/render"
	"github.com/stevedore-pm/stevedore/pkg/resolver"
)

// newTreeCmd creates the tree command, which resolves the manifest and
// prints the dependency tree. Besides the default text rendering it can
// emit Graphviz DOT or a rendered SVG.
func newTreeCmd(opts *rootOpts) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the resolved dependency tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.loadManifest()
			if err != nil {
				return err
			}

			result, err := loadResolution(cmd, opts, m)
			if err != nil {
				printError("%s", errors.UserMessage(err))
				return err
			}

			g := resolver.BuildGraph(result.Packages)
			switch format {
			case "text":
				fmt.Print(textTree(m, result, g))
				return nil
			case "dot":
				return emit(output, []byte(render.ToDOT(g)))
			case "svg":
				svg, err := render.RenderSVG(cmd.Context(), render.ToDOT(g))
				if err != nil {
					return err
				}
				return emit(output, svg)
			default:
				return fmt.Errorf("unknown format %q (want text, dot, or svg)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format: text, dot, or svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	return cmd
}

// textTree renders the default text output: the project title, the indented
// dependency tree, and a package count. An empty resolution gets a styled
// "No dependencies" line instead of a bare title.
func textTree(m *manifest.Manifest, result *resolver.Result, g *depgraph.Graph) string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render(m.Package.Name+" v"+m.Package.Version.String()) + "\n")
	if result.Len() == 0 {
		b.WriteString("  " + StyleDim.Render("No dependencies") + "\n")
		return b.String()
	}
	b.WriteString(g.RenderTree())
	b.WriteString("  " + StyleDim.Render(fmt.Sprintf("%d packages", result.Len())) + "\n")
	return b.String()
}

// loadResolution returns the pinned resolution from the lockfile when one is
// present, falling back to a fresh resolve against the registry. A corrupt
// lockfile is reported and ignored.
func loadResolution(cmd *cobra.Command, opts *rootOpts, m *manifest.Manifest) (*resolver.Result, error) {
	logger := loggerFromContext(cmd.Context())
	if lockfile.Exists(opts.lockfilePath) {
		result, err := lockfile.Load(opts.lockfilePath)
		if err == nil {
			logger.Debugf("using lockfile %s", opts.lockfilePath)
			return result, nil
		}
		printWarning("Lockfile %s is corrupt, resolving from scratch", opts.lockfilePath)
	}

	idx, err := opts.loadRegistry()
	if err != nil {
		return nil, err
	}
	return resolver.Resolve(m, idx)
}

// emit writes data to the output file, or stdout when no file is given.
func emit(output string, data []byte) error {
	if output == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return err
	}
	printFile(output)
	return nil
}
