// Package depgraph provides the directed graph over package identities used
// by the resolver. It owns cycle detection and dependency tree rendering.
//
// Nodes are identified by opaque strings (the resolver uses "name vX.Y.Z"
// labels). Insertion order is preserved so traversals, cycle reports, and
// rendered trees are deterministic for a fixed construction sequence.
package depgraph

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is
	// empty. All nodes must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with the
	// same ID already exists in the graph. Node IDs must be unique.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the From node
	// does not exist in the graph.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the To node
	// does not exist in the graph.
	ErrUnknownTargetNode = errors.New("unknown target node")
)

// Graph is a directed graph over string node IDs.
//
// The zero value is not usable - use New to create a valid instance.
// Graph is not safe for concurrent use without external synchronization.
type Graph struct {
	nodes    map[string]bool
	order    []string            // node IDs in insertion order
	outgoing map[string][]string // nodeID -> children IDs
	incoming map[string][]string // nodeID -> parent IDs
	edges    int
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]bool),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
}

// AddNode adds a node to the graph.
// Returns ErrInvalidNodeID if the ID is empty, or ErrDuplicateNodeID if a
// node with the same ID already exists.
func (g *Graph) AddNode(id string) error {
	if id == "" {
		return ErrInvalidNodeID
	}
	if g.nodes[id] {
		return ErrDuplicateNodeID
	}
	g.nodes[id] = true
	g.order = append(g.order, id)
	return nil
}

// AddEdge adds a directed edge between two existing nodes.
// Returns ErrUnknownSourceNode or ErrUnknownTargetNode if either endpoint
// is missing. Parallel edges between the same nodes are allowed.
func (g *Graph) AddEdge(from, to string) error {
	if !g.nodes[from] {
		return ErrUnknownSourceNode
	}
	if !g.nodes[to] {
		return ErrUnknownTargetNode
	}
	g.outgoing[from] = append(g.outgoing[from], to)
	g.incoming[to] = append(g.incoming[to], from)
	g.edges++
	return nil
}

// HasNode reports whether a node with the given ID exists.
func (g *Graph) HasNode(id string) bool { return g.nodes[id] }

// Nodes returns all node IDs in insertion order.
func (g *Graph) Nodes() []string { return slices.Clone(g.order) }

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int { return g.edges }

// Children returns the IDs this node has edges to (its dependencies).
// The returned slice should not be modified.
func (g *Graph) Children(id string) []string { return g.outgoing[id] }

// Parents returns the IDs that have edges to this node (its dependents).
// The returned slice should not be modified.
func (g *Graph) Parents(id string) []string { return g.incoming[id] }

// Roots returns nodes with no incoming edges, in insertion order.
// These are the top-level entries of a dependency tree.
func (g *Graph) Roots() []string {
	var roots []string
	for _, id := range g.order {
		if len(g.incoming[id]) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// Traversal colors for cycle detection.
const (
	white = iota // unvisited
	gray         // in progress
	black        // done
)

// frame is one entry of the explicit DFS stack: a node and the index of the
// next child to visit.
type frame struct {
	id   string
	next int
}

// DetectCycle searches the graph for a directed cycle.
//
// It runs an iterative depth-first traversal with white/gray/black marking
// over an explicit stack, so adversarially deep graphs cannot overflow the
// call stack. On success it returns the cycle path with the entry node
// repeated at the end (e.g. [a b a]) and true; otherwise nil and false.
//
// Runs in O(N+E) time.
func (g *Graph) DetectCycle() ([]string, bool) {
	color := make(map[string]int, len(g.nodes))

	for _, start := range g.order {
		if color[start] != white {
			continue
		}

		stack := []frame{{id: start}}
		path := []string{start}
		color[start] = gray

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := g.outgoing[top.id]

			if top.next < len(children) {
				child := children[top.next]
				top.next++

				switch color[child] {
				case white:
					color[child] = gray
					stack = append(stack, frame{id: child})
					path = append(path, child)
				case gray:
					// Back edge: the cycle is the path suffix starting at child.
					i := slices.Index(path, child)
					cycle := append(slices.Clone(path[i:]), child)
					return cycle, true
				}
				continue
			}

			color[top.id] = black
			stack = stack[:len(stack)-1]
			path = path[:len(path)-1]
		}
	}

	return nil, false
}

// RenderTree renders the graph as an indented dependency tree.
//
// Roots (nodes without parents) are printed first, then their dependencies
// depth-first with two spaces of indentation per level. A node that was
// already fully expanded earlier in the traversal is printed once more as a
// leaf suffixed " (*)" instead of being re-expanded, so printing terminates
// even on duplicate-heavy graphs.
func (g *Graph) RenderTree() string {
	var b strings.Builder
	visited := make(map[string]bool)
	for _, root := range g.Roots() {
		g.renderNode(&b, root, 0, visited)
	}
	return b.String()
}

func (g *Graph) renderNode(b *strings.Builder, id string, depth int, visited map[string]bool) {
	indent := strings.Repeat("  ", depth)
	if visited[id] {
		fmt.Fprintf(b, "%s├─ %s (*)\n", indent, id)
		return
	}
	visited[id] = true

	fmt.Fprintf(b, "%s├─ %s\n", indent, id)
	for _, child := range g.outgoing[id] {
		g.renderNode(b, child, depth+1, visited)
	}
}
