package pcte

import "errors"

// ErrIndexOutOfRange is returned when a caller supplies an index outside the
// window a local Insert or Delete allows. The caller is presumed to have a
// stale view of the document; re-querying Text() and retrying is the
// expected recovery.
var ErrIndexOutOfRange = errors.New("pcte: index out of range")

// ErrCausalityViolation is returned when a remote operation references
// character ids the local replica hasn't seen yet, or a batch's entries
// aren't in topological (parents-before-children) order. A synchroniser
// encountering this should buffer the offending entry and request the
// missing ancestors from the peer.
var ErrCausalityViolation = errors.New("pcte: causality violation")

// ErrIdentityCollision is returned when two distinct operations would claim
// the same (replica id, counter) identity: locally, when the configured
// Clock hands back a counter value already present in this replica's own
// history; remotely, when ApplyBatch or Synchronize is asked to integrate an
// entry whose id is already known but whose operation differs from the one
// already recorded under that id. It indicates a misbehaving replica
// identifier allocator or clock, or a malformed batch.
var ErrIdentityCollision = errors.New("pcte: identity collision")
