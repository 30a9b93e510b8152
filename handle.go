package pcte

// Handle is an opaque, phantom-typed index into an Arena[T]. Two handles
// compare equal only if they index the same arena slot of the same entity
// kind; a Handle[charNode] and a Handle[treeNode] are different types, so
// the compiler rejects mixing them up the way a raw int index would allow.
type Handle[T any] struct {
	idx int
}

func invalidHandle[T any]() Handle[T] {
	return Handle[T]{idx: -1}
}

// Arena is an append-only, handle-indexed store for a single entity kind.
// Entries are never removed: handle identity is stable for the lifetime of
// the Arena, which is what lets the dual tree and history DAG reference
// each other by handle instead of by pointer, sidestepping aliasing and
// borrow-checking concerns entirely.
type Arena[T any] struct {
	items []T
}

// Push appends value and returns the handle under which it's now stored.
func (a *Arena[T]) Push(value T) Handle[T] {
	h := Handle[T]{idx: len(a.items)}
	a.items = append(a.items, value)
	return h
}

// Get returns a pointer to the value at h, for in-place mutation.
func (a *Arena[T]) Get(h Handle[T]) *T {
	return &a.items[h.idx]
}

// Len returns the number of entries ever pushed.
func (a *Arena[T]) Len() int {
	return len(a.items)
}
