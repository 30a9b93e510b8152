package pcte

// charNode is the immutable identity of one character in the document.
// Character is either a printable rune or tombstoned (present=false); once
// tombstoned a charNode never becomes printable again, and it is never
// removed from the arena — concurrent inserts whose origin is a deleted
// character still need to find it.
type charNode struct {
	id        CharID
	character rune
	present   bool
}

// treeNode is one position of a character node within one of the two trees.
// It references its character node and its children by handle, never by
// pointer, and is only ever mutated by appending to children.
type treeNode struct {
	char     Handle[charNode]
	children []Handle[treeNode]
}
