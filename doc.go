// Package pcte implements a Perfect Collaborative Text Editing core: a
// replicated data type for a plain-text sequence of code points that lets
// many independent replicas edit concurrently and later reconcile to a
// single agreed-upon text without loss of edits.
//
// A Replica bundles four subsystems: a node arena (handle-typed storage for
// character and tree nodes), a dual tree (parallel left-origin and
// right-origin trees encoding the partial order between character
// positions), a causal history (a content-addressed DAG of operations), and
// a synchroniser (set-difference of two histories, replayed idempotently).
// Any two replicas that have observed the same set of operations converge
// to byte-identical text — strong eventual consistency.
//
// The package targets single-character operations. Multi-character edits
// are expressed as batches of single-character Insert/Delete calls; there is
// no undo/redo, cursor tracking, access control, or network transport here —
// those are the responsibility of the embedding program.
package pcte
