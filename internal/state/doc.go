// Package state persists the engine's durable snapshot between cycles.
//
// Two documents live in the state directory:
//   - manifest.json: node id -> {fingerprint, output_path, written_at},
//     covering generated artifact nodes only
//   - graph.json: the full graph as built in the most recent successful
//     cycle, for structural introspection by external tooling
//
// Both serialize with sorted keys so version-control diffs stay minimal.
// Writes are atomic at the file level (write-temp-then-rename): a crash
// never leaves a half-written manifest. The caller persists state only
// after an entire apply completes, so on-disk artifacts may run ahead of
// the manifest after a hard kill, but never behind it.
package state
