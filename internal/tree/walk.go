package tree

import "iter"

// Visit is one step of a depth-first pre-order traversal.
//
// Last holds, for every level from 1 to Depth, whether the ancestor at that
// level (the node itself at index Depth-1) is the last child of its parent.
// It is empty for the root. Each Visit owns its own Last slice.
type Visit struct {
	Node  *Node
	Depth int
	Last  []bool
}

// IsLast reports whether the visited node is the last of its siblings.
// The root counts as last.
func (v Visit) IsLast() bool {
	if len(v.Last) == 0 {
		return true
	}
	return v.Last[len(v.Last)-1]
}

// Walk returns a lazy pre-order traversal rooted at the document's root.
// Children are visited in stored order. The sequence can be ranged over any
// number of times and never mutates the document.
func (d *Document) Walk() iter.Seq[Visit] {
	return func(yield func(Visit) bool) {
		if d == nil || d.Root == nil {
			return
		}
		walk(d.Root, 0, nil, yield)
	}
}

func walk(n *Node, depth int, last []bool, yield func(Visit) bool) bool {
	if !yield(Visit{Node: n, Depth: depth, Last: last}) {
		return false
	}
	for i, child := range n.Children {
		// Full slice expression forces a fresh backing array per child.
		childLast := append(last[:len(last):len(last)], i == len(n.Children)-1)
		if !walk(child, depth+1, childLast, yield) {
			return false
		}
	}
	return true
}

// idSet collects every node id in the document.
func (d *Document) idSet() map[string]bool {
	ids := make(map[string]bool)
	for v := range d.Walk() {
		ids[v.Node.ID] = true
	}
	return ids
}

// IDs returns every node id in traversal order.
func (d *Document) IDs() []string {
	var ids []string
	for v := range d.Walk() {
		ids = append(ids, v.Node.ID)
	}
	return ids
}

// Len returns the number of nodes in the document, root included.
func (d *Document) Len() int {
	n := 0
	for range d.Walk() {
		n++
	}
	return n
}

// countNodes returns the size of the subtree rooted at n.
func countNodes(n *Node) int {
	total := 1
	for _, c := range n.Children {
		total += countNodes(c)
	}
	return total
}
