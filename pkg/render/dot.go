// Package render converts dependency graphs to Graphviz DOT and to SVG.
package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"

	"github.com/stevedore-pm/stevedore/pkg/depgraph"
)

// ToDOT converts a dependency graph to Graphviz DOT format. Nodes are
// emitted in insertion order and edges per source node, so equal graphs
// produce identical output.
func ToDOT(g *depgraph.Graph) string {
	var buf bytes.Buffer
	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, id := range g.Nodes() {
		fmt.Fprintf(&buf, "  %q;\n", id)
	}

	buf.WriteString("\n")
	for _, id := range g.Nodes() {
		for _, child := range g.Children(id) {
			fmt.Fprintf(&buf, "  %q -> %q;\n", id, child)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
