package pcte

import uuid "github.com/hashicorp/go-uuid"

// ReplicaIDAllocator generates replica identifiers for callers who don't
// want to manage their own allocation scheme. spec.md §1 assumes a replica
// identifier allocator as an external primitive; this is this module's
// default implementation of it, grounded on caravan-go-immutable-radix's
// use of the same hashicorp/go-uuid package to mint test identifiers.
//
// The generated ids are collision-resistant but are plain strings, so they
// slot directly into CharID.ReplicaID without any adaptation.
type ReplicaIDAllocator struct{}

// NewReplicaID returns a fresh, collision-resistant replica id.
func (ReplicaIDAllocator) NewReplicaID() (string, error) {
	return uuid.GenerateUUID()
}
