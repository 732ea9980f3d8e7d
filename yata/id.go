package yata

import "fmt"

// ID identifies a single logical character: the client that created it and
// that client's monotonic counter at the time. A client owns a contiguous
// half-open counter range for every span it creates, so an ID also names a
// position inside a run.
type ID struct {
	Client  uint64
	Counter uint32
}

// String renders an ID as "C<client>@<counter>".
func (id ID) String() string {
	return fmt.Sprintf("C%d@%d", id.Client, id.Counter)
}

// Compare returns the relative order between IDs: -1 if id sorts before
// other, +1 if after, 0 if equal. IDs are ordered first by client, then by
// counter.
func (id ID) Compare(other ID) int {
	// Ascending according to client.
	if id.Client < other.Client {
		return -1
	}
	if id.Client > other.Client {
		return +1
	}
	// Ascending according to counter.
	if id.Counter < other.Counter {
		return -1
	}
	if id.Counter > other.Counter {
		return +1
	}
	return 0
}

// Next returns the ID immediately following id in the same client's range.
func (id ID) Next() ID {
	return ID{Client: id.Client, Counter: id.Counter + 1}
}

// Add returns the ID n positions after id in the same client's range.
func (id ID) Add(n uint32) ID {
	return ID{Client: id.Client, Counter: id.Counter + n}
}

// equalID reports whether two nullable anchors name the same position:
// both nil, or both non-nil and equal.
func equalID(a, b *ID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
