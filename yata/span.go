package yata

import "github.com/mbrt/yatatree/rle"

// Status is the tri-state visibility record of a span. A span is visible
// iff it is applied and its delete/undo counters balance.
type Status struct {
	// Unapplied marks a span integrated into the skeleton but not yet
	// counted as inserted text (reserved for future partial-apply flows;
	// the current tracker never leaves a span in this state).
	Unapplied   bool
	DeleteTimes uint16
	UndoTimes   uint16
}

// Visible reports whether a span with this status contributes to the
// document's visible text.
func (s Status) Visible() bool {
	return !s.Unapplied && s.DeleteTimes == s.UndoTimes
}

// YSpan is a contiguous run of characters created by a single client,
// carrying the origin anchors YATA needs to place it in the total order.
// A YSpan is the unit the RLE tree stores and merges.
type YSpan struct {
	ID ID
	// OriginLeft and OriginRight are the neighbouring IDs recorded at
	// insertion time, nil meaning "start/end of document".
	OriginLeft, OriginRight *ID
	Content                 []rune
	Status                  Status
}

var _ rle.Item[YSpan] = YSpan{}

// Len returns the span's length, counted whether or not it is visible.
func (s YSpan) Len() int { return len(s.Content) }

// VisibleLen returns the span's length if visible, 0 if tombstoned.
func (s YSpan) VisibleLen() int {
	if s.Status.Visible() {
		return len(s.Content)
	}
	return 0
}

// lastID returns the ID of the span's last character.
func (s YSpan) lastID() ID {
	return s.ID.Add(uint32(len(s.Content) - 1))
}

// CanMergeWith reports whether other immediately continues the receiver
// in identifier space, sharing origin_right and status, with other's
// origin_left naming the receiver's last character.
func (s YSpan) CanMergeWith(other YSpan) bool {
	if len(s.Content) == 0 || len(other.Content) == 0 {
		return false
	}
	if s.ID.Client != other.ID.Client {
		return false
	}
	if other.ID.Counter != s.ID.Counter+uint32(len(s.Content)) {
		return false
	}
	if s.Status != other.Status {
		return false
	}
	if !equalID(s.OriginRight, other.OriginRight) {
		return false
	}
	last := s.lastID()
	return equalID(other.OriginLeft, &last)
}

// MergeWith appends other's content to the receiver, keeping the
// receiver's own id and anchors (the merged run is still addressed by its
// first character).
func (s YSpan) MergeWith(other YSpan) YSpan {
	content := make([]rune, 0, len(s.Content)+len(other.Content))
	content = append(content, s.Content...)
	content = append(content, other.Content...)
	return YSpan{
		ID:          s.ID,
		OriginLeft:  s.OriginLeft,
		OriginRight: s.OriginRight,
		Content:     content,
		Status:      s.Status,
	}
}

// Slice returns the sub-range [from, to) of s. The left boundary (from
// == 0) keeps the original origin_left; any interior cut synthesises an
// origin_left naming the character immediately to its left within s. The
// origin_right is always carried over unchanged, which is what lets a cut
// span re-merge with a neighbour that shares it.
func (s YSpan) Slice(from, to int) YSpan {
	id := s.ID.Add(uint32(from))
	var originLeft *ID
	if from == 0 {
		originLeft = s.OriginLeft
	} else {
		l := s.ID.Add(uint32(from - 1))
		originLeft = &l
	}
	content := make([]rune, to-from)
	copy(content, s.Content[from:to])
	return YSpan{
		ID:          id,
		OriginLeft:  originLeft,
		OriginRight: s.OriginRight,
		Content:     content,
		Status:      s.Status,
	}
}
