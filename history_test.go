package pcte

import (
	"reflect"
	"sort"
	"testing"
)

func idsEqual(t *testing.T, got, want []CharID) {
	t.Helper()
	sortIDs := func(ids []CharID) {
		sort.Slice(ids, func(i, j int) bool { return ids[i].less(ids[j]) })
	}
	sortIDs(got)
	sortIDs(want)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestHistoryAddLocalChainsThroughPriorHead(t *testing.T) {
	h := newHistory()
	id1 := CharID{ReplicaID: "a", Counter: 1}
	id2 := CharID{ReplicaID: "a", Counter: 2}

	e1 := h.AddLocal(id1, InsertOp{ID: id1, Character: 'h'})
	if len(e1.Parents) != 0 {
		t.Fatalf("first entry should have no parents, got %v", e1.Parents)
	}
	idsEqual(t, h.HeadIDs(), []CharID{id1})

	e2 := h.AddLocal(id2, InsertOp{ID: id2, Character: 'i'})
	idsEqual(t, e2.Parents, []CharID{id1})
	idsEqual(t, h.HeadIDs(), []CharID{id2})
}

func TestHistoryAddRemoteIsIdempotent(t *testing.T) {
	h := newHistory()
	id := CharID{ReplicaID: "a", Counter: 1}

	e1, err := h.AddRemote(id, InsertOp{ID: id, Character: 'x'}, nil)
	if err != nil {
		t.Fatalf("AddRemote: %v", err)
	}
	e2, err := h.AddRemote(id, InsertOp{ID: id, Character: 'x'}, nil)
	if err != nil {
		t.Fatalf("AddRemote (repeat): %v", err)
	}
	if e1 != e2 {
		t.Errorf("applying the same entry twice should return the same *Entry, got distinct pointers")
	}
	if h.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after idempotent re-apply", h.Len())
	}
}

func TestHistoryAddRemoteRejectsUnknownParents(t *testing.T) {
	h := newHistory()
	id := CharID{ReplicaID: "a", Counter: 1}
	missingParent := CharID{ReplicaID: "a", Counter: 0}

	_, err := h.AddRemote(id, InsertOp{ID: id, Character: 'x'}, []CharID{missingParent})
	if err != ErrCausalityViolation {
		t.Errorf("AddRemote with unknown parent: got %v, want ErrCausalityViolation", err)
	}
}

func TestHistoryDiffToReturnsOnlyMissingEntriesInTopoOrder(t *testing.T) {
	a := newHistory()
	id1 := CharID{ReplicaID: "a", Counter: 1}
	id2 := CharID{ReplicaID: "a", Counter: 2}
	id3 := CharID{ReplicaID: "a", Counter: 3}
	a.AddLocal(id1, InsertOp{ID: id1, Character: 'x'})
	a.AddLocal(id2, InsertOp{ID: id2, Character: 'y'})
	a.AddLocal(id3, InsertOp{ID: id3, Character: 'z'})

	b := newHistory()
	e1, _ := a.Get(id1)
	b.AddRemote(e1.ID, e1.Value, e1.Parents)

	diff := a.DiffTo(b)
	if len(diff) != 2 {
		t.Fatalf("DiffTo len = %d, want 2", len(diff))
	}
	if diff[0].ID != id2 || diff[1].ID != id3 {
		t.Errorf("DiffTo order = [%v, %v], want [%v, %v] (parents before children)", diff[0].ID, diff[1].ID, id2, id3)
	}
}

func TestHistoryDiffToEmptyWhenFullySynced(t *testing.T) {
	a := newHistory()
	id1 := CharID{ReplicaID: "a", Counter: 1}
	a.AddLocal(id1, InsertOp{ID: id1, Character: 'x'})

	b := newHistory()
	e1, _ := a.Get(id1)
	b.AddRemote(e1.ID, e1.Value, e1.Parents)

	if diff := a.DiffTo(b); len(diff) != 0 {
		t.Errorf("DiffTo between fully synced histories = %v, want empty", diff)
	}
}

func TestHistoryDiagConvergedWithDetectsDrift(t *testing.T) {
	a := newHistory()
	id1 := CharID{ReplicaID: "a", Counter: 1}
	id2 := CharID{ReplicaID: "a", Counter: 2}
	a.AddLocal(id1, InsertOp{ID: id1, Character: 'x'})

	b := newHistory()
	e1, _ := a.Get(id1)
	b.AddRemote(e1.ID, e1.Value, e1.Parents)

	if !a.Diag().ConvergedWith(b.Diag()) {
		t.Errorf("ConvergedWith should report convergence once b has replayed everything a has")
	}

	a.AddLocal(id2, InsertOp{ID: id2, Character: 'y'})
	if a.Diag().ConvergedWith(b.Diag()) {
		t.Errorf("ConvergedWith should report drift once a has an entry b hasn't replayed")
	}
}

func TestHistoryDiagIsAncestor(t *testing.T) {
	h := newHistory()
	id1 := CharID{ReplicaID: "a", Counter: 1}
	id2 := CharID{ReplicaID: "a", Counter: 2}
	h.AddLocal(id1, InsertOp{ID: id1, Character: 'x'})
	h.AddLocal(id2, InsertOp{ID: id2, Character: 'y'})

	diag := h.Diag()
	if !diag.IsAncestor(id1, id2) {
		t.Errorf("IsAncestor(id1, id2) = false, want true (id1 chains before id2 via AddLocal)")
	}
	if diag.IsAncestor(id2, id1) {
		t.Errorf("IsAncestor(id2, id1) = true, want false (id2 postdates id1)")
	}
	if !diag.IsAncestor(id1, id1) {
		t.Errorf("IsAncestor(id1, id1) = false, want true (non-strict ancestry includes self)")
	}
}

func TestHistoryDiffSinceFrontierIsConservativeForUnknownIDs(t *testing.T) {
	a := newHistory()
	id1 := CharID{ReplicaID: "a", Counter: 1}
	a.AddLocal(id1, InsertOp{ID: id1, Character: 'x'})

	// A frontier naming ids 'a' has never heard of contributes nothing to
	// the vector-clock accelerator, so diffSinceFrontier must conservatively
	// include everything rather than silently dropping entries.
	diff := a.diffSinceFrontier([]CharID{{ReplicaID: "ghost", Counter: 99}})
	if len(diff) != 1 || diff[0].ID != id1 {
		t.Errorf("diffSinceFrontier with unknown frontier = %v, want [%v]", diff, id1)
	}
}
