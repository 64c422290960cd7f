// Package flow implements a directed-acyclic-graph propagation engine:
// value-carrying nodes connected by user-supplied transforms, updated in
// two disciplined phases so that observers anywhere in the graph always
// see a globally consistent snapshot.
//
// Producers push new values into root nodes (state or sensor). A commit
// drives every affected node through phase 1 (send-down: values flow from
// roots to leaves, recomputing along the way) before driving phase 2
// (notify: observers fire over the now-settled graph). Diamond-shaped
// graphs — two paths from one ancestor re-converging at a descendant —
// are coalesced by CommitTopological's rank-based topological traversal so
// the merge point recomputes exactly once per commit; Commit's depth-first
// form does not coalesce them.
//
// The package assumes a single logical executor per graph: there is no
// internal locking, and commit/send-down/notify must not be re-entered
// from within an observer callback on the same graph.
package flow
