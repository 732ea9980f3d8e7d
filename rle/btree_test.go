package rle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// run is a minimal Item used to exercise the tree independent of any CRDT
// status semantics: n copies of one rune value, optionally hidden
// from the visible projection.
type run struct {
	value  rune
	n      int
	hidden bool
}

func (r run) Len() int { return r.n }

func (r run) VisibleLen() int {
	if r.hidden {
		return 0
	}
	return r.n
}

func (r run) CanMergeWith(other run) bool {
	return r.value == other.value && r.hidden == other.hidden
}

func (r run) MergeWith(other run) run {
	return run{value: r.value, n: r.n + other.n, hidden: r.hidden}
}

func (r run) Slice(from, to int) run {
	return run{value: r.value, n: to - from, hidden: r.hidden}
}

func textOf(t *testing.T, tr *Tree[run]) string {
	t.Helper()
	var out []rune
	for leaf := tr.FirstLeaf(); leaf != nil; leaf = leaf.Next() {
		for i := 0; i < leaf.NumItems(); i++ {
			it := leaf.ItemAt(i)
			if it.hidden {
				continue
			}
			for j := 0; j < it.n; j++ {
				out = append(out, it.value)
			}
		}
	}
	return string(out)
}

func small() Config {
	return Config{MaxChildren: 4, MinChildren: 2}
}

func TestInsertAppend(t *testing.T) {
	tr := New[run](small(), nil)
	for i, c := range "hello" {
		tr.InsertAt(BySkeleton, i, run{value: c, n: 1})
	}
	require.Equal(t, "hello", textOf(t, tr))
	require.Equal(t, 5, tr.Len(BySkeleton))
}

func TestInsertMergesAdjacentRuns(t *testing.T) {
	tr := New[run](small(), nil)
	tr.InsertAt(BySkeleton, 0, run{value: 'a', n: 3})
	tr.InsertAt(BySkeleton, 3, run{value: 'a', n: 2})
	require.Equal(t, 1, tr.FirstLeaf().NumItems())
	require.Equal(t, 5, tr.Len(BySkeleton))
}

func TestInsertDirtyCutSplitsItem(t *testing.T) {
	tr := New[run](small(), nil)
	tr.InsertAt(BySkeleton, 0, run{value: 'a', n: 5})
	tr.InsertAt(BySkeleton, 2, run{value: 'b', n: 1})
	var out []rune
	leaf := tr.FirstLeaf()
	for i := 0; i < leaf.NumItems(); i++ {
		it := leaf.ItemAt(i)
		for j := 0; j < it.n; j++ {
			out = append(out, it.value)
		}
	}
	require.Equal(t, "aabaa", string(out))
}

func TestInsertCausesLeafSplit(t *testing.T) {
	tr := New[run](small(), nil)
	for i, c := range "abcdefghij" {
		tr.InsertAt(BySkeleton, i, run{value: c, n: 1})
	}
	require.Equal(t, "abcdefghij", textOf(t, tr))
	require.NotNil(t, tr.FirstLeaf().Next(), "expected at least one split")
}

func TestDeleteRangeWithinSingleItem(t *testing.T) {
	tr := New[run](small(), nil)
	tr.InsertAt(BySkeleton, 0, run{value: 'a', n: 5})
	tr.DeleteRange(BySkeleton, 1, 3)
	require.Equal(t, "aaa", textOf(t, tr))
}

func TestDeleteRangeAcrossManyItemsTriggersRebalance(t *testing.T) {
	tr := New[run](small(), nil)
	for i, c := range "abcdefghijklmnop" {
		tr.InsertAt(BySkeleton, i, run{value: c, n: 1})
	}
	tr.DeleteRange(BySkeleton, 3, 13)
	require.Equal(t, "abcnop", textOf(t, tr))
	require.Equal(t, 6, tr.Len(BySkeleton))
}

func TestUpdateRangeHidesWithoutRemoving(t *testing.T) {
	tr := New[run](small(), nil)
	for i, c := range "hello world" {
		tr.InsertAt(BySkeleton, i, run{value: c, n: 1})
	}
	tr.UpdateRange(BySkeleton, 5, 11, func(r run) run {
		r.hidden = true
		return r
	})
	require.Equal(t, "hello", textOf(t, tr))
	require.Equal(t, 11, tr.Len(BySkeleton))
	require.Equal(t, 5, tr.Len(ByVisible))
}

func TestLocateAtDocumentEnd(t *testing.T) {
	tr := New[run](small(), nil)
	tr.InsertAt(BySkeleton, 0, run{value: 'a', n: 3})
	c := tr.Locate(BySkeleton, 3)
	require.True(t, c.AtEnd())
}

func TestNotifierFiresOnSplitAndMerge(t *testing.T) {
	seen := map[rune]*Leaf[run]{}
	tr := New[run](small(), func(it run, leaf *Leaf[run]) {
		seen[it.value] = leaf
	})
	for i, c := range "abcdefgh" {
		tr.InsertAt(BySkeleton, i, run{value: c, n: 1})
	}
	for _, c := range "abcdefgh" {
		require.Contains(t, seen, c)
	}
}

func TestCursorShiftCrossesLeafBoundary(t *testing.T) {
	tr := New[run](small(), nil)
	for i, c := range "abcdefgh" {
		tr.InsertAt(BySkeleton, i, run{value: c, n: 1})
	}
	c := tr.Locate(BySkeleton, 0)
	c = c.Shift(BySkeleton, 7)
	require.Equal(t, "h", string(c.Leaf.ItemAt(c.ItemIndex).value))
}
