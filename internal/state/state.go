package state

import (
	"sort"
	"time"
)

// FormatVersion is the manifest document format version.
const FormatVersion = 1

// Entry records what the last successful cycle knew about one node.
type Entry struct {
	Fingerprint string    `json:"fingerprint"`
	OutputPath  string    `json:"output_path"`
	WrittenAt   time.Time `json:"written_at,omitzero"`
}

// State is the durable snapshot diffed against each freshly built graph.
type State struct {
	Version int              `json:"version"`
	Nodes   map[string]Entry `json:"nodes"`
}

// Empty returns the default state used when no prior snapshot exists.
func Empty() *State {
	return &State{Version: FormatVersion, Nodes: make(map[string]Entry)}
}

// Clone returns a deep copy. The applier mutates a clone so a failed cycle
// never corrupts the prior state in memory.
func (s *State) Clone() *State {
	c := &State{Version: s.Version, Nodes: make(map[string]Entry, len(s.Nodes))}
	for id, e := range s.Nodes {
		c.Nodes[id] = e
	}
	return c
}

// SortedIDs returns the manifest keys in lexicographic order.
func (s *State) SortedIDs() []string {
	ids := make([]string, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
