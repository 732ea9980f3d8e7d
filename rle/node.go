package rle

// node is a single node of the tree: either an internal node (children
// non-nil) or a leaf (items non-nil). A single tagged-union type keeps the
// arena simple, at the cost of each node wasting the fields of the kind
// it isn't; MAX_CHILDREN is small enough (tens of entries) that this is
// immaterial.
type node[T Item[T]] struct {
	leaf   bool
	parent *node[T]

	// Internal-node fields.
	children []*node[T]

	// Leaf fields. Leaves form a doubly-linked list in document order.
	items      []T
	prev, next *node[T]

	// Cached aggregate over children (internal) or items (leaf). Equal to
	// the exact aggregate of the subtree at all times outside an active
	// mutation.
	skel, vis int
}

// Leaf is an opaque handle to a leaf currently holding some item. Cursor
// maps and other external bookkeeping store these as stable identities:
// a Leaf pointer is never reallocated out from under its holder, though
// its contents (and even whether it's still attached to the tree) can
// change as the tree is mutated, which is why callers are expected to
// re-resolve an ID through a notifier rather than dereference stale
// offsets.
type Leaf[T Item[T]] = node[T]

// NumItems returns the number of items currently stored in the leaf.
func (n *Leaf[T]) NumItems() int { return len(n.items) }

// ItemAt returns the item at index i in the leaf.
func (n *Leaf[T]) ItemAt(i int) T { return n.items[i] }

// Next returns the next leaf in document order, or nil at the tail.
func (n *Leaf[T]) Next() *Leaf[T] { return n.next }

// Prev returns the previous leaf in document order, or nil at the head.
func (n *Leaf[T]) Prev() *Leaf[T] { return n.prev }

func (n *node[T]) length(dim Dimension) int {
	if dim == ByVisible {
		return n.vis
	}
	return n.skel
}

func recomputeSelf[T Item[T]](n *node[T]) {
	var skel, vis int
	if n.leaf {
		for _, it := range n.items {
			skel += it.Len()
			vis += it.VisibleLen()
		}
	} else {
		for _, c := range n.children {
			skel += c.skel
			vis += c.vis
		}
	}
	n.skel, n.vis = skel, vis
}

func indexOfChild[T Item[T]](parent, child *node[T]) int {
	for i, c := range parent.children {
		if c == child {
			return i
		}
	}
	panic("rle: child not found in parent")
}
