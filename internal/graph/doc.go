// Package graph constructs the dependency graph of derivable artifacts.
//
// Each cycle builds the graph from scratch: one entity node per record plus
// one artifact node per enabled kind, with edges entity -> artifact. Nodes
// are never reused across cycles; only fingerprints persist (in the state
// manifest).
//
// Invariants:
//   - every artifact node depends on exactly one entity node
//   - entity nodes have no dependencies
//   - the graph is acyclic by construction (no artifact -> artifact edges)
//   - node ids are unique within a cycle
package graph
