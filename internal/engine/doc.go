// Package engine orchestrates one full cycle: Load -> Build -> Plan ->
// Apply.
//
// Scheduling model: a single logical worker per cycle. One cycle runs to
// completion before the next may start; the watcher only ever schedules
// cycles, it never touches the output directory. There is no process-wide
// engine instance: all state is passed into and returned from each cycle
// invocation, so multiple runners can be tested in isolation within the
// same process.
//
// State is persisted only after the entire step list has completed. A hard
// kill mid-apply leaves some files ahead of the manifest; the next cycle
// re-derives a consistent plan from scratch (crash recovery by
// re-derivation, not transactional rollback).
package engine
