package graph

import (
	"fmt"
	"sort"

	"loom/internal/entity"
)

// Node is one unit of the dependency graph: an entity or one of its
// derived artifacts.
type Node struct {
	ID          string      `json:"id"`
	Kind        entity.Kind `json:"kind"`
	Entity      string      `json:"entity"`
	Fingerprint string      `json:"fingerprint"`
	DependsOn   []string    `json:"depends_on,omitempty"`
	OutputPath  string      `json:"output_path,omitempty"`
	Generator   string      `json:"generator,omitempty"`
}

// Generated reports whether this node produces an output file. Entity
// nodes exist for structure and fingerprint derivation only.
func (n *Node) Generated() bool {
	return n.Kind != entity.KindEntity
}

// NodeID derives the stable node id for a kind/entity pair.
func NodeID(kind entity.Kind, entityName string) string {
	return fmt.Sprintf("%s:%s", kind, entityName)
}

// Graph is the set of nodes built for one cycle, plus a records index for
// generator invocation during apply.
type Graph struct {
	nodes   map[string]*Node
	records map[string]entity.Record
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Record returns the entity record a node was built from.
func (g *Graph) Record(entityName string) (entity.Record, bool) {
	r, ok := g.records[entityName]
	return r, ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// SortedIDs returns all node ids in lexicographic order. This is the
// stable ordering every downstream consumer (planner, snapshot) uses.
func (g *Graph) SortedIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Nodes returns all nodes in id order.
func (g *Graph) Nodes() []*Node {
	ids := g.SortedIDs()
	nodes := make([]*Node, len(ids))
	for i, id := range ids {
		nodes[i] = g.nodes[id]
	}
	return nodes
}
