package depgraph

import (
	"fmt"
	"sort"
)

// Node carries the ordering inputs for one graph member. Seq is the
// insertion order assigned by AddNode and is what comparators use to keep
// the overall order stable.
type Node struct {
	ID       string
	Priority int
	Seq      int
}

// node is the internal representation linking a Node to its neighbors.
type node struct {
	Node
	deps       map[string]*node
	dependents map[string]*node
}

// Graph is a directed dependency graph with a pluggable tie-break
// comparator. less reports whether a should be placed before b when both
// are eligible.
type Graph struct {
	less  func(a, b Node) bool
	nodes map[string]*node
	seq   int
}

// New creates an empty Graph ordered by the given comparator.
func New(less func(a, b Node) bool) *Graph {
	return &Graph{
		less:  less,
		nodes: make(map[string]*node),
	}
}

// AddNode adds a new node with the given ID and priority. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string, priority int) {
	if _, ok := g.nodes[id]; ok {
		return
	}

	g.nodes[id] = &node{
		Node:       Node{ID: id, Priority: priority, Seq: g.seq},
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
	g.seq++
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// This signifies that `toID` has a dependency on `fromID`. An error is
// returned if either node does not exist or if the edge would create a
// self-reference.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	toNode.deps[fromID] = fromNode
	fromNode.dependents[toID] = toNode

	return nil
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Order linearizes the graph. A node becomes eligible once all of its
// dependencies are placed; among eligible nodes the smallest by the
// comparator is placed next. When the frontier empties while nodes remain,
// the graph contains a cycle: with breakCycles true the smallest remaining
// node is released and ordering resumes, with breakCycles false ordering
// stops and the members of one discovered cycle are returned, listed along
// the dependency direction starting from the earliest-inserted participant.
func (g *Graph) Order(breakCycles bool) (order []string, cycle []string) {
	placed := make(map[string]bool, len(g.nodes))
	order = make([]string, 0, len(g.nodes))

	for len(order) < len(g.nodes) {
		next := g.selectNext(placed)
		if next == nil {
			stuck := g.extractCycle(placed)
			if !breakCycles {
				return order, stuck
			}
			// Release the best member of the discovered cycle to break the
			// deadlock; nodes merely downstream of it keep waiting.
			next = g.selectAmong(stuck)
		}
		placed[next.ID] = true
		order = append(order, next.ID)
	}

	return order, nil
}

// selectNext returns the unplaced node with all dependencies placed that the
// comparator prefers, or nil when no node is eligible.
func (g *Graph) selectNext(placed map[string]bool) *node {
	var best *node
	for _, n := range g.nodes {
		if placed[n.ID] {
			continue
		}
		if !g.depsPlaced(n, placed) {
			continue
		}
		if best == nil || g.less(n.Node, best.Node) {
			best = n
		}
	}
	return best
}

// selectAmong returns the comparator's preferred node out of the given IDs.
func (g *Graph) selectAmong(ids []string) *node {
	var best *node
	for _, id := range ids {
		n, ok := g.nodes[id]
		if !ok {
			continue
		}
		if best == nil || g.less(n.Node, best.Node) {
			best = n
		}
	}
	return best
}

func (g *Graph) depsPlaced(n *node, placed map[string]bool) bool {
	for depID := range n.deps {
		if !placed[depID] {
			return false
		}
	}
	return true
}

// extractCycle walks unplaced dependencies from the earliest-inserted stuck
// node until a node repeats, and returns the loop it closed.
func (g *Graph) extractCycle(placed map[string]bool) []string {
	var start *node
	for _, n := range g.nodes {
		if placed[n.ID] {
			continue
		}
		if start == nil || n.Seq < start.Seq {
			start = n
		}
	}
	if start == nil {
		return nil
	}

	index := make(map[string]int)
	var path []*node
	cur := start
	for {
		if at, seen := index[cur.ID]; seen {
			cycle := make([]string, 0, len(path)-at)
			for _, n := range path[at:] {
				cycle = append(cycle, n.ID)
			}
			return cycle
		}
		index[cur.ID] = len(path)
		path = append(path, cur)

		// Every stuck node has at least one unplaced dependency; follow the
		// earliest-inserted one to keep the reported cycle deterministic.
		var next *node
		for _, dep := range cur.deps {
			if placed[dep.ID] {
				continue
			}
			if next == nil || dep.Seq < next.Seq {
				next = dep
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
}

// IDs returns all node IDs sorted lexically. Intended for logging and tests.
func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
