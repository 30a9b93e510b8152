package pcte

import "fmt"

// CharID is the globally unique identity of a character node: the replica
// that created it, and that replica's local counter value at creation time.
// Counters increase strictly within one replica; no ordering is implied or
// required across different replicas' counters.
type CharID struct {
	ReplicaID string `json:"replica_id"`
	Counter   uint64 `json:"counter"`
}

// rootID names the single sentinel character node that is the parent, in
// both trees, of every top-level insertion. It exists from replica creation
// and is never deleted.
var rootID = CharID{ReplicaID: "", Counter: 0}

func (id CharID) String() string {
	return fmt.Sprintf("%s:%d", id.ReplicaID, id.Counter)
}

// less is the total, replica-independent tie-break order used as the
// secondary/tertiary sort key during traversal: lexicographic by replica id,
// then numeric by counter. See spec.md §9's open question about restating
// this for non-string replica ids — this module keeps ReplicaID a string,
// so plain string comparison is the contract.
func (id CharID) less(other CharID) bool {
	if id.ReplicaID != other.ReplicaID {
		return id.ReplicaID < other.ReplicaID
	}
	return id.Counter < other.Counter
}
