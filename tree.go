package pcte

import (
	"sort"
	"strings"
)

// dualTree is the pair of parallel left-origin / right-origin trees over one
// shared set of character nodes, plus the arenas that own every node. The
// left-origin tree answers "whose left neighbour are you?", the right-origin
// tree answers "whose right neighbour are you?"; a consistent traversal of
// both yields the total order the document's visible text is read off of.
type dualTree struct {
	chars     Arena[charNode]
	treeNodes Arena[treeNode]
	idToNode  map[CharID]idPosition
	leftRoot  Handle[treeNode]
	rightRoot Handle[treeNode]
}

type idPosition struct {
	left, right Handle[treeNode]
}

func newDualTree() *dualTree {
	t := &dualTree{
		idToNode: make(map[CharID]idPosition),
	}
	rootChar := t.chars.Push(charNode{id: rootID, present: false})
	t.leftRoot = t.treeNodes.Push(treeNode{char: rootChar})
	t.rightRoot = t.treeNodes.Push(treeNode{char: rootChar})
	t.idToNode[rootID] = idPosition{left: t.leftRoot, right: t.rightRoot}
	return t
}

// appendChild physically appends child to parent's child list. It never
// reorders or removes existing children; ordering among siblings is a
// traversal-time computation, not a storage-time one.
func (t *dualTree) appendChild(parent, child Handle[treeNode]) {
	tn := t.treeNodes.Get(parent)
	tn.children = append(tn.children, child)
}

// sortedChildren returns parent's children ordered by the Fugue-style tie
// break: negated pre-order index of the child's character in the
// right-origin tree (so characters that sort later in the right-origin
// traversal bind earlier here), then replica id, then counter.
func (t *dualTree) sortedChildren(parent Handle[treeNode]) []Handle[treeNode] {
	src := t.treeNodes.Get(parent).children
	children := make([]Handle[treeNode], len(src))
	copy(children, src)

	type key struct {
		rightIndex int
		id         CharID
	}
	keys := make([]key, len(children))
	for i, c := range children {
		charHandle := t.treeNodes.Get(c).char
		id := t.chars.Get(charHandle).id
		idx, _ := t.subtreeIndexInRightTree(id)
		keys[i] = key{rightIndex: idx, id: id}
	}

	sort.SliceStable(children, func(i, j int) bool {
		if keys[i].rightIndex != keys[j].rightIndex {
			return keys[i].rightIndex > keys[j].rightIndex
		}
		return keys[i].id.less(keys[j].id)
	})
	return children
}

// locateCharInSubtree finds char's tree-node position within the subtree
// rooted at this, including tombstoned characters, returning the pre-order
// index of that position. Mirrors the original's
// node_last_node_and_index_including_deleted_of_node: children sharing a
// position must report the same index, so direct children are checked
// before recursing.
func (t *dualTree) locateCharInSubtree(this Handle[treeNode], char Handle[charNode]) (Handle[treeNode], int, bool) {
	return t.locateCharInSubtreeAt(this, char, 0)
}

func (t *dualTree) locateCharInSubtreeAt(this Handle[treeNode], char Handle[charNode], index int) (Handle[treeNode], int, bool) {
	tn := t.treeNodes.Get(this)
	if tn.char == char {
		return this, index, true
	}
	index++
	for _, child := range tn.children {
		if t.treeNodes.Get(child).char == char {
			return child, index, true
		}
	}
	for _, child := range tn.children {
		if h, idx, ok := t.locateCharInSubtreeAt(child, char, index); ok {
			return h, idx, true
		} else {
			index = idx
		}
	}
	return invalidHandle[treeNode](), index, false
}

// locateByIndex returns the left-tree tree node of the index-th
// non-tombstoned character in the current left-origin linearisation. ok is
// false when index equals the number of visible characters (the insertion
// position just past the end of the document).
func (t *dualTree) locateByIndex(index int) (Handle[treeNode], bool) {
	h, _, ok := t.nodeAtIndex(t.leftRoot, index)
	return h, ok
}

func (t *dualTree) nodeAtIndex(node Handle[treeNode], index int) (Handle[treeNode], int, bool) {
	tn := t.treeNodes.Get(node)
	cn := t.chars.Get(tn.char)
	if cn.present {
		if index == 0 {
			return node, 0, true
		}
		index--
	}
	for _, child := range t.sortedChildren(node) {
		if h, idx, ok := t.nodeAtIndex(child, index); ok {
			return h, 0, true
		} else {
			index = idx
		}
	}
	return invalidHandle[treeNode](), index, false
}

// locateByID returns the left- and right-tree positions of the character
// identified by id, in O(1) via the identity map.
func (t *dualTree) locateByID(id CharID) (left, right Handle[treeNode], ok bool) {
	pos, ok := t.idToNode[id]
	return pos.left, pos.right, ok
}

// linearise performs the full depth-first pre-order traversal of the
// left-origin tree, emitting one rune per non-tombstoned character.
func (t *dualTree) linearise() string {
	var sb strings.Builder
	t.lineariseInto(t.leftRoot, &sb)
	return sb.String()
}

func (t *dualTree) lineariseInto(h Handle[treeNode], sb *strings.Builder) {
	tn := t.treeNodes.Get(h)
	cn := t.chars.Get(tn.char)
	if cn.present {
		sb.WriteRune(cn.character)
	}
	for _, child := range t.sortedChildren(h) {
		t.lineariseInto(child, sb)
	}
}

// subtreeIndexInRightTree returns the pre-order index (including tombstones)
// of id's position in the right-origin tree.
func (t *dualTree) subtreeIndexInRightTree(id CharID) (int, bool) {
	_, right, ok := t.locateByID(id)
	if !ok {
		return 0, false
	}
	charHandle := t.treeNodes.Get(right).char
	_, idx, found := t.locateCharInSubtree(t.rightRoot, charHandle)
	return idx, found
}
