package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"loom/internal/graph"
)

const (
	manifestFile = "manifest.json"
	snapshotFile = "graph.json"
)

// Snapshot is the persisted form of the full graph.
type Snapshot struct {
	Version int           `json:"version"`
	Nodes   []*graph.Node `json:"nodes"`
}

// Store reads and writes the state documents under one directory.
// The directory is owned exclusively by the single active cycle.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created lazily
// on first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the state directory path.
func (s *Store) Dir() string { return s.dir }

// Load reads the manifest, returning the empty state on first run.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, manifestFile))
	if os.IsNotExist(err) {
		return Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	st := &State{}
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if st.Version > FormatVersion {
		return nil, fmt.Errorf("manifest format version %d not supported (newer than engine)", st.Version)
	}
	if st.Nodes == nil {
		st.Nodes = make(map[string]Entry)
	}
	return st, nil
}

// LoadSnapshot reads the persisted graph snapshot. Returns an empty
// snapshot on first run.
func (s *Store) LoadSnapshot() (*Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, snapshotFile))
	if os.IsNotExist(err) {
		return &Snapshot{Version: FormatVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read graph snapshot: %w", err)
	}

	snap := &Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("parse graph snapshot: %w", err)
	}
	return snap, nil
}

// Save atomically persists the manifest and the graph snapshot.
//
// Both documents are written temp-then-rename so a crash mid-save never
// leaves a torn file. The manifest is renamed last: tooling that reads the
// snapshot after a crash may see an older graph, but the manifest (the
// correctness signal) is always internally consistent.
func (s *Store) Save(st *State, g *graph.Graph) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	snap := &Snapshot{Version: FormatVersion, Nodes: g.Nodes()}
	snapData, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal graph snapshot: %w", err)
	}
	if err := writeAtomic(filepath.Join(s.dir, snapshotFile), append(snapData, '\n')); err != nil {
		return err
	}

	manifestData, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return writeAtomic(filepath.Join(s.dir, manifestFile), append(manifestData, '\n'))
}

// writeAtomic writes data to path via a temp file in the same directory
// followed by rename.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
