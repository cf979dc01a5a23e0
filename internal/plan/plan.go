// Package plan diffs a freshly built graph against the persisted state to
// produce the ordered, minimal set of reconciliation steps.
package plan

import (
	"sort"

	"loom/internal/entity"
	"loom/internal/graph"
	"loom/internal/state"
)

// Action is the reconciliation operation for one node.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionNoop   Action = "noop"
)

// Step is one reconciliation operation. Node is nil for delete steps: the
// node no longer exists in the fresh graph, so the step carries the prior
// manifest entry instead.
type Step struct {
	ID     string
	Kind   entity.Kind
	Action Action
	Path   string
	Reason string
	Node   *graph.Node
	Prior  *state.Entry
}

// Summary tallies actions across a plan.
type Summary struct {
	Create int `json:"create"`
	Update int `json:"update"`
	Delete int `json:"delete"`
	Noop   int `json:"noop"`
}

// Changed reports whether applying the plan would touch the filesystem.
func (s Summary) Changed() bool {
	return s.Create+s.Update+s.Delete > 0
}

// Plan is the ordered set of steps for one cycle. Steps are transient,
// produced fresh every cycle.
type Plan struct {
	Steps   []Step
	Summary Summary
}

// Changed reports whether the plan contains any non-noop step.
func (p *Plan) Changed() bool { return p.Summary.Changed() }

// Options controls planning behavior.
type Options struct {
	// IncludeUnchanged keeps noop steps in the step list. Used by bootstrap
	// and doctor so a clean first cycle reports "clean" with a per-node
	// breakdown rather than an empty plan.
	IncludeUnchanged bool
}

// Diff compares the fresh graph's fingerprints against the prior state.
//
// Only generated (artifact) nodes are planned: entity nodes are never
// written to disk and carry no manifest entry. Steps are ordered by node id
// (lexicographic), which is stable and deterministic across runs; delete
// steps for ids absent from the graph are interleaved in the same order.
func Diff(g *graph.Graph, prior *state.State, opts Options) *Plan {
	p := &Plan{}

	seen := make(map[string]bool, g.Len())
	for _, id := range g.SortedIDs() {
		node, _ := g.Node(id)
		if !node.Generated() {
			continue
		}
		seen[id] = true

		entry, ok := prior.Nodes[id]
		switch {
		case !ok:
			p.Summary.Create++
			p.Steps = append(p.Steps, Step{
				ID: id, Kind: node.Kind, Action: ActionCreate,
				Path: node.OutputPath, Reason: "not in manifest", Node: node,
			})
		case entry.Fingerprint != node.Fingerprint:
			p.Summary.Update++
			e := entry
			p.Steps = append(p.Steps, Step{
				ID: id, Kind: node.Kind, Action: ActionUpdate,
				Path: node.OutputPath, Reason: "fingerprint changed", Node: node, Prior: &e,
			})
		default:
			p.Summary.Noop++
			if opts.IncludeUnchanged {
				e := entry
				p.Steps = append(p.Steps, Step{
					ID: id, Kind: node.Kind, Action: ActionNoop,
					Path: node.OutputPath, Reason: "unchanged", Node: node, Prior: &e,
				})
			}
		}
	}

	for _, id := range prior.SortedIDs() {
		if seen[id] {
			continue
		}
		entry := prior.Nodes[id]
		p.Summary.Delete++
		p.Steps = append(p.Steps, Step{
			ID: id, Kind: kindOf(id), Action: ActionDelete,
			Path: entry.OutputPath, Reason: "no longer in graph", Prior: &entry,
		})
	}

	sort.SliceStable(p.Steps, func(i, j int) bool { return p.Steps[i].ID < p.Steps[j].ID })
	return p
}

// kindOf recovers the kind prefix from a node id like "doc:User".
func kindOf(id string) entity.Kind {
	for i := 0; i < len(id); i++ {
		if id[i] == ':' {
			return entity.Kind(id[:i])
		}
	}
	return ""
}
