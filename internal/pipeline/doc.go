// Package pipeline implements the in-memory provenance graph for a
// multi-stage processing pipeline: data artifacts (nodes) connected to the
// jobs (processes) that consume and produce them.
//
// The graph stores both collections in flat arenas addressed by positional
// integer handles rather than pointers. Handles are stable between
// structural deletions only; DeleteProcess is the single operation allowed
// to invalidate them, and it repairs every stored handle in one compaction
// pass.
//
// Nodes and processes are never created directly. All registration goes
// through AddNode, AddProcess, AddInputEdge and AddOutputEdge, which
// deduplicate nodes by name and keep the forward (Inputs/Outputs) and
// backward (ConsumedBy/ProducedBy) references symmetric.
//
// The package performs no locking. A single writer is assumed; the host
// application serializes access and guards the persisted file with its own
// advisory lock around the read-modify-write cycle.
package pipeline
