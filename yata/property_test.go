package yata

import (
	"testing"

	"pgregory.net/rapid"
)

// Model a Tracker as a slice of chars, subject to insertions and deletions
// at random positions via InsertCharAt and DeleteCharAt.
//
// We don't model concurrent replicas here because rapid drives one
// sequence of calls against one tracker: cross-replica convergence is
// covered by the example-based tests instead.
type stateMachine struct {
	tr    *Tracker
	chars []rune
}

func (m *stateMachine) Init(t *rapid.T) {
	m.tr = NewTracker(1, WithConsistencyChecks(true))
}

func (m *stateMachine) InsertCharAt(t *rapid.T) {
	ch := rapid.Rune().Draw(t, "ch").(rune)
	i := rapid.IntRange(0, len(m.chars)).Draw(t, "i").(int)

	if err := m.tr.Insert(i, string(ch)); err != nil {
		t.Fatal("(*stateMachine).InsertCharAt:", err)
	}

	m.chars = append(m.chars[:i], append([]rune{ch}, m.chars[i:]...)...)
}

func (m *stateMachine) DeleteCharAt(t *rapid.T) {
	if len(m.chars) == 0 {
		t.Skip("empty string")
	}
	i := rapid.IntRange(0, len(m.chars)-1).Draw(t, "i").(int)

	if err := m.tr.Delete(i, 1); err != nil {
		t.Fatal("(*stateMachine).DeleteCharAt:", err)
	}

	copy(m.chars[i:], m.chars[i+1:])
	m.chars = m.chars[:len(m.chars)-1]
}

func (m *stateMachine) Check(t *rapid.T) {
	got := m.tr.Text()
	want := string(m.chars)
	if got != want {
		t.Fatalf("content mismatch: want %q but got %q", want, got)
	}
	m.tr.CheckConsistency()
	t.Log("content:", got)
}

func TestTrackerProperty(t *testing.T) {
	rapid.Check(t, rapid.Run(&stateMachine{}))
}

// TestIntegrateConvergesAndIdempotentProperty applies random inserts to
// one replica, then checks that delivering its export frame to a second,
// empty replica (and redelivering the same frame) leaves both with the
// same text: the round-trip and idempotence laws.
func TestIntegrateConvergesAndIdempotentProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := NewTracker(1, WithConsistencyChecks(true))
		b := NewTracker(2, WithConsistencyChecks(true))

		edits := rapid.IntRange(1, 8).Draw(t, "edits").(int)
		for i := 0; i < edits; i++ {
			pos := rapid.IntRange(0, len([]rune(a.Text()))).Draw(t, "pos").(int)
			ch := rapid.SampledFrom([]rune("xyz")).Draw(t, "ch").(rune)
			if err := a.Insert(pos, string(ch)); err != nil {
				t.Fatal(err)
			}
		}

		frame := a.Export(b.Version())
		if err := b.Integrate(frame); err != nil {
			t.Fatal(err)
		}
		if err := b.Integrate(frame); err != nil { // redelivery: idempotent.
			t.Fatal(err)
		}

		if a.Text() != b.Text() {
			t.Fatalf("diverged: a=%q b=%q", a.Text(), b.Text())
		}
		b.CheckConsistency()
	})
}
