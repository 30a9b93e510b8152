package pcte

import (
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"
)

// Replica is one participant's self-contained, in-memory instance of the
// CRDT. It bundles the node arena, the dual tree, and the causal history,
// and is the sole public entry point into this package.
//
// A Replica is conceptually a convergent, mergeable value in the same sense
// gocrdt's CRDT interface describes (Value()/Merge()) — Text() stands in for
// Value(), Synchronize stands in for Merge() — but the literal interface
// isn't implemented here, since this CRDT's merge is two-sided
// (Synchronize mutates both participants) rather than gocrdt's one-sided
// Merge(other).
//
// External callers must serialise their own calls into a given Replica;
// Replica does not suspend and performs no I/O, so the internal mutex below
// exists only to catch accidental concurrent misuse, not to support it.
type Replica struct {
	mu sync.Mutex

	id      string
	clock   Clock
	tree    *dualTree
	history *History
	length  int

	log *slog.Logger
}

// New creates a fresh, empty replica identified by replicaID, which must be
// unique across the whole system (spec.md assumes a replica identifier
// allocator as an external primitive — see ReplicaIDAllocator for a default
// one).
func New(replicaID string, opts ...Option) *Replica {
	r := &Replica{
		id:      replicaID,
		clock:   newAtomicClock(),
		tree:    newDualTree(),
		history: newHistory(),
		log:     discardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewWithAllocatedID creates a fresh replica with an id minted by
// ReplicaIDAllocator, for callers who don't want to manage ids themselves.
func NewWithAllocatedID(opts ...Option) (*Replica, error) {
	id, err := (ReplicaIDAllocator{}).NewReplicaID()
	if err != nil {
		return nil, err
	}
	return New(id, opts...), nil
}

// ReplicaID returns this replica's identifier.
func (r *Replica) ReplicaID() string {
	return r.id
}

// Insert places ch at index in the visible text. index must satisfy
// 0 <= index <= len(Text()) (in runes); ErrIndexOutOfRange otherwise.
func (r *Replica) Insert(index int, ch rune) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(index, ch)
}

func (r *Replica) insertLocked(index int, ch rune) error {
	if index < 0 || index > r.length {
		return ErrIndexOutOfRange
	}

	id := CharID{ReplicaID: r.id, Counter: r.clock.Next()}
	if _, known := r.history.Get(id); known {
		return ErrIdentityCollision
	}

	rightParent := r.tree.rightRoot
	if leftHandle, found := r.tree.locateByIndex(index); found {
		charHandle := r.tree.treeNodes.Get(leftHandle).char
		if h, _, ok := r.tree.locateCharInSubtree(r.tree.rightRoot, charHandle); ok {
			rightParent = h
		}
	}

	var leftParent Handle[treeNode]
	if index == 0 {
		leftParent = r.tree.leftRoot
	} else {
		h, found := r.tree.locateByIndex(index - 1)
		if !found {
			return ErrIndexOutOfRange
		}
		leftParent = h
	}

	charHandle := r.tree.chars.Push(charNode{id: id, character: ch, present: true})
	leftTreeHandle := r.tree.treeNodes.Push(treeNode{char: charHandle})
	rightTreeHandle := r.tree.treeNodes.Push(treeNode{char: charHandle})
	r.tree.appendChild(leftParent, leftTreeHandle)
	r.tree.appendChild(rightParent, rightTreeHandle)
	r.tree.idToNode[id] = idPosition{left: leftTreeHandle, right: rightTreeHandle}

	leftOriginID := r.tree.chars.Get(r.tree.treeNodes.Get(leftParent).char).id
	rightOriginID := r.tree.chars.Get(r.tree.treeNodes.Get(rightParent).char).id

	r.history.AddLocal(id, InsertOp{
		ID:        id,
		Character: ch,
		Left:      leftOriginID,
		Right:     rightOriginID,
	})
	r.length++

	r.log.Info("insert", "replica", r.id, "index", index, "id", id.String())
	return nil
}

// Delete removes the character at index from the visible text (tombstones
// it; the underlying node is retained forever). index must satisfy
// 0 <= index < len(Text()); ErrIndexOutOfRange otherwise.
func (r *Replica) Delete(index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteLocked(index)
}

func (r *Replica) deleteLocked(index int) error {
	if index < 0 || index >= r.length {
		return ErrIndexOutOfRange
	}

	leftHandle, found := r.tree.locateByIndex(index)
	if !found {
		return ErrIndexOutOfRange
	}
	charHandle := r.tree.treeNodes.Get(leftHandle).char
	cn := r.tree.chars.Get(charHandle)
	targetID := cn.id

	id := CharID{ReplicaID: r.id, Counter: r.clock.Next()}
	if _, known := r.history.Get(id); known {
		return ErrIdentityCollision
	}

	if cn.present {
		cn.present = false
		r.length--
	}

	r.history.AddLocal(id, DeleteOp{Target: targetID})

	r.log.Info("delete", "replica", r.id, "index", index, "target", targetID.String())
	return nil
}

// Text returns the current linearisation of the document.
func (r *Replica) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tree.linearise()
}

// HistoryDiag returns a structural snapshot of this replica's causal
// history, for tests that want to assert convergence beyond Text() equality
// (see HistoryDiag.ConvergedWith).
func (r *Replica) HistoryDiag() HistoryDiag {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.Diag()
}

// Frontier returns this replica's current history heads, for building a
// frontier descriptor to send a peer ahead of requesting PendingFor.
func (r *Replica) Frontier() []CharID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.HeadIDs()
}

// PendingFor returns the operations this replica has that a peer described
// by otherFrontier (that peer's Frontier()) has not seen, as a serialisable
// Batch. See History.diffSinceFrontier for the conservative behaviour when
// otherFrontier names entries this replica has never heard of.
func (r *Replica) PendingFor(otherFrontier []CharID) Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return entriesToBatch(r.history.diffSinceFrontier(otherFrontier))
}

// ApplyBatch applies a batch produced by a peer's PendingFor. Entries must
// be in topological order; out-of-order or dangling-reference batches fail
// with ErrCausalityViolation, and the replica is left unchanged by any
// entry that fails (earlier entries in the same batch that already
// succeeded remain applied — apply the batch to a freshly synced replica,
// or treat a causality failure as "request more history from the peer",
// per spec.md §7).
func (r *Replica) ApplyBatch(batch Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, we := range batch {
		op, err := wireToOp(we.Op, we.ID)
		if err != nil {
			return err
		}
		if err := r.applyRemoteEntry(we.ID, op, we.ParentIDs); err != nil {
			return err
		}
	}
	return nil
}

// Synchronize exchanges the set-differences of r's and other's histories
// and replays each side's missing operations through its dual tree. After
// it returns, r.Text() == other.Text() and their history heads are equal as
// sets (spec.md §8, invariant 5).
func (r *Replica) Synchronize(other *Replica) error {
	first, second := r, other
	if other != r && other.id < r.id {
		first, second = other, r
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	if second != first {
		second.mu.Lock()
		defer second.mu.Unlock()
	}

	toSelf := other.history.DiffTo(r.history)
	toOther := r.history.DiffTo(other.history)

	r.log.Debug("synchronize", "to_self", len(toSelf), "to_other", len(toOther))

	for _, e := range toSelf {
		if err := r.applyRemoteEntry(e.ID, e.Value, e.Parents); err != nil {
			return err
		}
	}
	for _, e := range toOther {
		if err := other.applyRemoteEntry(e.ID, e.Value, e.Parents); err != nil {
			return err
		}
	}
	r.log.Info("synchronize", "replica", r.id, "peer", other.id)
	return nil
}

// applyRemoteEntry applies one foreign history entry: a no-op if id is
// already known and carries the same operation (spec.md §8 invariant 2);
// ErrIdentityCollision if id is already known but carries a *different*
// operation (two distinct entries claiming the same (replica id, counter) —
// a malformed batch or a misbehaving id allocator, never a condition the
// core itself produces). Otherwise validates causality, mutates the dual
// tree, and commits the entry to history. Callers must hold r.mu.
func (r *Replica) applyRemoteEntry(id CharID, value Op, parents []CharID) error {
	if existing, known := r.history.Get(id); known {
		if existing.Value == value {
			return nil
		}
		return ErrIdentityCollision
	}
	for _, pid := range parents {
		if _, ok := r.history.Get(pid); !ok {
			return ErrCausalityViolation
		}
	}
	for _, req := range value.requiredIDs() {
		if _, _, ok := r.tree.locateByID(req); !ok {
			return ErrCausalityViolation
		}
	}

	switch op := value.(type) {
	case InsertOp:
		r.insertRemote(op)
	case DeleteOp:
		r.deleteRemote(op)
	default:
		return ErrCausalityViolation
	}

	_, err := r.history.AddRemote(id, value, parents)
	return err
}

func (r *Replica) insertRemote(op InsertOp) {
	leftPos, _, _ := r.tree.locateByID(op.Left)
	_, rightPos, _ := r.tree.locateByID(op.Right)

	charHandle := r.tree.chars.Push(charNode{id: op.ID, character: op.Character, present: true})
	leftTreeHandle := r.tree.treeNodes.Push(treeNode{char: charHandle})
	rightTreeHandle := r.tree.treeNodes.Push(treeNode{char: charHandle})
	r.tree.appendChild(leftPos, leftTreeHandle)
	r.tree.appendChild(rightPos, rightTreeHandle)
	r.tree.idToNode[op.ID] = idPosition{left: leftTreeHandle, right: rightTreeHandle}
	r.length++
}

func (r *Replica) deleteRemote(op DeleteOp) {
	left, _, ok := r.tree.locateByID(op.Target)
	if !ok {
		return
	}
	charHandle := r.tree.treeNodes.Get(left).char
	cn := r.tree.chars.Get(charHandle)
	if cn.present {
		cn.present = false
		r.length--
	}
}

// SelfCheck recomputes a handful of structural invariants from scratch and
// compares them to the replica's incrementally maintained state. It stands
// in for original_source/src/pcte.rs's
// `#[cfg(debug_assertions)] debug_assert_eq!(self.text(), text, ...)` checks
// — cheap enough to call from tests, deliberately not wired into the hot
// path of Insert/Delete.
func (r *Replica) SelfCheck() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	present := 0
	for i := 0; i < r.tree.chars.Len(); i++ {
		if r.tree.chars.Get(Handle[charNode]{idx: i}).present {
			present++
		}
	}
	if present != r.length {
		return fmt.Errorf("pcte: tracked length %d does not match %d present character nodes", r.length, present)
	}

	if n := utf8.RuneCountInString(r.tree.linearise()); n != r.length {
		return fmt.Errorf("pcte: linearised length %d does not match tracked length %d", n, r.length)
	}

	for id, pos := range r.tree.idToNode {
		leftChar := r.tree.treeNodes.Get(pos.left).char
		rightChar := r.tree.treeNodes.Get(pos.right).char
		if leftChar != rightChar {
			return fmt.Errorf("pcte: double placement violated for %s", id)
		}
	}
	return nil
}
