package yata

import "github.com/mbrt/yatatree/rle"

// CheckConsistency verifies the data-model invariants from §8 that are
// observable through the public Tracker API: leaf fanout bounds, no
// un-merged mergeable neighbours, and cursor-map/tree agreement. It
// panics with an *InvariantError on the first violation found; a clean
// tracker returns normally. Version-vector monotonicity and the B-tree's
// internal cache invariant are enforced structurally by construction (VV
// only ever advances; every mutating rle call recomputes caches up to the
// root) and aren't re-derived here.
func (t *Tracker) CheckConsistency() {
	for leaf := t.tree.FirstLeaf(); leaf != nil; leaf = leaf.Next() {
		n := leaf.NumItems()
		isSoleLeaf := leaf.Prev() == nil && leaf.Next() == nil
		if !isSoleLeaf && (n < t.cfg.rle.MinChildren || n > t.cfg.rle.MaxChildren) {
			invariantViolation("leaf-fanout", "leaf has %d items, want [%d,%d]", n, t.cfg.rle.MinChildren, t.cfg.rle.MaxChildren)
		}
		for i := 0; i+1 < n; i++ {
			if leaf.ItemAt(i).CanMergeWith(leaf.ItemAt(i + 1)) {
				invariantViolation("no-adjacent-mergeable", "items %d and %d in a leaf are mergeable but weren't merged", i, i+1)
			}
		}
		if next := leaf.Next(); next != nil && n > 0 && next.NumItems() > 0 {
			if leaf.ItemAt(n-1).CanMergeWith(next.ItemAt(0)) {
				invariantViolation("no-adjacent-mergeable", "last item of a leaf is mergeable with the first item of its successor")
			}
		}
		for i := 0; i < n; i++ {
			t.checkCursorResolves(leaf, i)
		}
	}
}

func (t *Tracker) checkCursorResolves(leaf *rle.Leaf[YSpan], i int) {
	it := leaf.ItemAt(i)
	c, ok := t.resolveID(it.ID)
	if !ok {
		invariantViolation("cursor-map-resolves", "id %s not resolvable via the cursor map", it.ID)
	}
	if c.Leaf != leaf || c.ItemIndex != i {
		invariantViolation("cursor-map-resolves", "id %s resolves to a stale leaf/item position", it.ID)
	}
}
