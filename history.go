package pcte

import "sort"

// Op is an operation record carried by a history Entry. Implementations are
// InsertOp and DeleteOp.
type Op interface {
	// requiredIDs returns the character ids that must already be known on a
	// replica before this operation can be applied there.
	requiredIDs() []CharID
}

// InsertOp records the creation of one character node at a specific place in
// the dual tree, named by its left and right origins.
type InsertOp struct {
	ID        CharID
	Character rune
	Left      CharID
	Right     CharID
}

func (o InsertOp) requiredIDs() []CharID { return []CharID{o.Left, o.Right} }

// DeleteOp records the tombstoning of an existing character, named by
// Target. Applying the same DeleteOp twice is a no-op (idempotent).
type DeleteOp struct {
	Target CharID
}

func (o DeleteOp) requiredIDs() []CharID { return []CharID{o.Target} }

// Entry is one immutable node of the causal history DAG: an operation
// together with the set of entries that were the emitting replica's
// frontier immediately before it. Entries, once created, are never mutated.
//
// Entry.ID is the entry's own identity, distinct from any character id an
// InsertOp happens to share it with. Deletes mint a fresh id from the same
// per-replica counter Inserts use, rather than reusing their target's id —
// otherwise two replicas independently deleting the same character would
// collide into a single history entry and the post-synchronize heads-equal
// invariant (spec.md §8, invariant 5) would not hold.
type Entry struct {
	ID      CharID
	Value   Op
	Parents []CharID

	// vc is the vector-clock accelerator spec.md §4.3 permits: the
	// componentwise-max of all ancestor ids' (replica -> counter) pairs,
	// including this entry's own. It lets DiffTo skip whole dominated
	// subtrees without walking them.
	vc map[string]uint64
}

// History is the causal history DAG of one replica: heads (the current
// frontier — entries with no known descendant) and all (every entry ever
// learned, keyed by id).
type History struct {
	heads map[CharID]*Entry
	all   map[CharID]*Entry
	order []CharID
}

func newHistory() *History {
	return &History{
		heads: make(map[CharID]*Entry),
		all:   make(map[CharID]*Entry),
	}
}

// HeadIDs returns the current frontier's entry ids. Two replicas that have
// synchronized converge to equal sets here (spec.md §8, invariant 5).
func (h *History) HeadIDs() []CharID {
	ids := make([]CharID, 0, len(h.heads))
	for id := range h.heads {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].less(ids[j]) })
	return ids
}

// Len reports how many entries are known in total.
func (h *History) Len() int { return len(h.all) }

// Get returns the entry known under id, if any.
func (h *History) Get(id CharID) (*Entry, bool) {
	e, ok := h.all[id]
	return e, ok
}

// AddLocal appends a new entry for a locally-originated operation. The
// current heads become its parents; the new entry becomes the sole head.
func (h *History) AddLocal(id CharID, value Op) *Entry {
	parents := h.HeadIDs()

	vc := make(map[string]uint64, len(parents)+1)
	for _, pid := range parents {
		mergeVC(vc, h.all[pid].vc)
	}
	bumpVC(vc, id)

	e := &Entry{ID: id, Value: value, Parents: parents, vc: vc}
	h.all[id] = e
	h.order = append(h.order, id)
	h.heads = map[CharID]*Entry{id: e}
	return e
}

// AddRemote integrates an entry learned from a peer. It is idempotent:
// adding an already-known id is a no-op. parents must already be known
// (ErrCausalityViolation otherwise) — the synchroniser is responsible for
// presenting entries in topological order.
func (h *History) AddRemote(id CharID, value Op, parents []CharID) (*Entry, error) {
	if e, exists := h.all[id]; exists {
		return e, nil
	}

	vc := make(map[string]uint64, len(parents)+1)
	for _, pid := range parents {
		pe, ok := h.all[pid]
		if !ok {
			return nil, ErrCausalityViolation
		}
		mergeVC(vc, pe.vc)
	}
	bumpVC(vc, id)

	e := &Entry{ID: id, Value: value, Parents: parents, vc: vc}
	for _, pid := range parents {
		delete(h.heads, pid)
	}
	h.heads[id] = e
	h.all[id] = e
	h.order = append(h.order, id)
	return e, nil
}

// DiffTo returns the entries known to h but not to other, in topological
// (parents-before-children) order — the correct replay order for the
// receiving side. Entries already subsumed by other's frontier (per the
// exact `all` membership check, accelerated by vector-clock domination so
// whole dominated subtrees are skipped without walking them) are omitted.
func (h *History) DiffTo(other *History) []*Entry {
	otherVC := make(map[string]uint64)
	for _, he := range other.heads {
		mergeVC(otherVC, he.vc)
	}
	return h.diffAgainst(other.all, otherVC)
}

// diffSinceFrontier is the wire-friendly counterpart of DiffTo: it knows
// only a frontier descriptor (a set of entry ids the peer claims as heads),
// not the peer's full history. Ids h also recognizes contribute to the
// vector-clock accelerator; unrecognized ids contribute nothing, which is
// conservative (it can only widen the result, never wrongly narrow it) —
// the receiving peer's AddRemote is idempotent, so a wider batch than
// strictly necessary is still correct, just not maximally compact.
func (h *History) diffSinceFrontier(frontier []CharID) []*Entry {
	otherVC := make(map[string]uint64)
	for _, id := range frontier {
		if e, ok := h.all[id]; ok {
			mergeVC(otherVC, e.vc)
		}
	}
	return h.diffAgainst(nil, otherVC)
}

func (h *History) diffAgainst(otherKnown map[CharID]*Entry, otherVC map[string]uint64) []*Entry {
	visited := make(map[CharID]bool, len(h.all))
	var result []*Entry

	var visit func(id CharID)
	visit = func(id CharID) {
		if visited[id] {
			return
		}
		visited[id] = true

		e, ok := h.all[id]
		if !ok {
			return
		}
		if otherKnown != nil {
			if _, known := otherKnown[id]; known {
				return
			}
		}
		if dominates(otherVC, e.vc) {
			return
		}
		for _, pid := range e.Parents {
			visit(pid)
		}
		result = append(result, e)
	}

	for _, id := range h.HeadIDs() {
		visit(id)
	}
	return result
}

// HistoryDiag is a read-only structural snapshot of a History, for tests
// (and diagnostics) that want to assert convergence beyond Text() equality —
// equal head sets, equal total entry counts, ancestor membership between two
// specific entries. original_source's RcHashable wrapper (see SPEC_FULL.md §4)
// compared entries by pointer identity for exactly this kind of structural
// check; HistoryDiag is the Go-native replacement, built on handle/map
// lookups rather than a reference-counted identity wrapper.
type HistoryDiag struct {
	Heads []CharID
	Count int

	h *History
}

// Diag takes a structural snapshot of h.
func (h *History) Diag() HistoryDiag {
	return HistoryDiag{Heads: h.HeadIDs(), Count: h.Len(), h: h}
}

// IsAncestor reports whether ancestor is id itself or a causal ancestor of
// id, using the same vector-clock accelerator DiffTo relies on.
func (d HistoryDiag) IsAncestor(ancestor, id CharID) bool {
	if ancestor == id {
		return true
	}
	e, ok := d.h.Get(id)
	if !ok {
		return false
	}
	return e.vc[ancestor.ReplicaID] >= ancestor.Counter
}

// ConvergedWith reports whether d and other are structurally equal: the same
// total entry count and the same set of heads. Two replicas that have fully
// synchronized converge here (spec.md §8, invariant 5) — a stronger check
// than comparing Text() alone, since it also rules out entry-count drift
// that happens to linearise to the same string.
func (d HistoryDiag) ConvergedWith(other HistoryDiag) bool {
	if d.Count != other.Count || len(d.Heads) != len(other.Heads) {
		return false
	}
	seen := make(map[CharID]bool, len(d.Heads))
	for _, id := range d.Heads {
		seen[id] = true
	}
	for _, id := range other.Heads {
		if !seen[id] {
			return false
		}
	}
	return true
}

func mergeVC(dst, src map[string]uint64) {
	for rep, ctr := range src {
		if ctr > dst[rep] {
			dst[rep] = ctr
		}
	}
}

func bumpVC(dst map[string]uint64, id CharID) {
	if id.Counter > dst[id.ReplicaID] {
		dst[id.ReplicaID] = id.Counter
	}
}

// dominates reports whether vc dominates other: every component of other is
// <= the corresponding component of vc. A zero/missing component in vc
// counts as 0.
func dominates(vc, other map[string]uint64) bool {
	for rep, ctr := range other {
		if vc[rep] < ctr {
			return false
		}
	}
	return true
}
