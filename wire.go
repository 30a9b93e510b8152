package pcte

// Batch is an ordered list of wire entries, suitable for serialising over
// any reliable channel. Entries must appear in topological order (parents
// before children); ApplyBatch rejects a batch that violates this via
// ErrCausalityViolation. The concrete encoding isn't prescribed — WireEntry
// carries `json` struct tags as the least-surprising default, but nothing
// here depends on encoding/json specifically.
type Batch []WireEntry

// WireEntry is one history entry in wire form: its own id, the ids of the
// entries that were its emitter's frontier at creation time, and the
// operation it carries.
type WireEntry struct {
	ID        CharID  `json:"id"`
	ParentIDs []CharID `json:"parents_ids"`
	Op        WireOp  `json:"op"`
}

// WireOp is the tagged-union wire form of Op: exactly one of the Insert or
// Delete shapes is populated, selected by Kind.
type WireOp struct {
	Kind string `json:"kind"` // "insert" or "delete"

	// Insert fields.
	Character rune    `json:"character,omitempty"`
	Left      *CharID `json:"left,omitempty"`
	Right     *CharID `json:"right,omitempty"`

	// Delete fields.
	Target *CharID `json:"target,omitempty"`
}

const (
	wireKindInsert = "insert"
	wireKindDelete = "delete"
)

func entryToWire(e *Entry) WireEntry {
	we := WireEntry{ID: e.ID, ParentIDs: e.Parents}
	switch op := e.Value.(type) {
	case InsertOp:
		left, right := op.Left, op.Right
		we.Op = WireOp{Kind: wireKindInsert, Character: op.Character, Left: &left, Right: &right}
	case DeleteOp:
		target := op.Target
		we.Op = WireOp{Kind: wireKindDelete, Target: &target}
	}
	return we
}

func wireToOp(w WireOp, id CharID) (Op, error) {
	switch w.Kind {
	case wireKindInsert:
		if w.Left == nil || w.Right == nil {
			return nil, ErrCausalityViolation
		}
		return InsertOp{ID: id, Character: w.Character, Left: *w.Left, Right: *w.Right}, nil
	case wireKindDelete:
		if w.Target == nil {
			return nil, ErrCausalityViolation
		}
		return DeleteOp{Target: *w.Target}, nil
	default:
		return nil, ErrCausalityViolation
	}
}

func entriesToBatch(entries []*Entry) Batch {
	batch := make(Batch, 0, len(entries))
	for _, e := range entries {
		batch = append(batch, entryToWire(e))
	}
	return batch
}
