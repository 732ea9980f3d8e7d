package textdiff_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/mbrt/yatatree/textdiff"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   []textdiff.Operation
	}{
		{
			s1: "a", s2: "a",
			want: []textdiff.Operation{{Op: textdiff.Keep, Char: 'a'}},
		},
		{
			s1: "", s2: "a",
			want: []textdiff.Operation{{Op: textdiff.Insert, Char: 'a'}},
		},
		{
			s1: "a", s2: "",
			want: []textdiff.Operation{{Op: textdiff.Delete, Char: 'a'}},
		},
		{
			s1: "ac", s2: "abc",
			want: []textdiff.Operation{
				{Op: textdiff.Keep, Char: 'a'},
				{Op: textdiff.Insert, Char: 'b'},
				{Op: textdiff.Keep, Char: 'c'},
			},
		},
		{
			s1: "abc", s2: "ac",
			want: []textdiff.Operation{
				{Op: textdiff.Keep, Char: 'a'},
				{Op: textdiff.Delete, Char: 'b'},
				{Op: textdiff.Keep, Char: 'c'},
			},
		},
		{
			s1: "abcd", s2: "xabdy",
			want: []textdiff.Operation{
				{Op: textdiff.Insert, Char: 'x'},
				{Op: textdiff.Keep, Char: 'a'},
				{Op: textdiff.Keep, Char: 'b'},
				{Op: textdiff.Delete, Char: 'c'},
				{Op: textdiff.Keep, Char: 'd'},
				{Op: textdiff.Insert, Char: 'y'},
			},
		},
	}
	ignoreDist := cmpopts.IgnoreFields(textdiff.Operation{}, "Dist")
	for _, test := range tests {
		got, err := textdiff.Diff(test.s1, test.s2)
		if err != nil {
			t.Fatalf("textdiff.Diff(%q, %q): %v", test.s1, test.s2, err)
		}
		if msg := cmp.Diff(test.want, got, ignoreDist); msg != "" {
			t.Errorf("textdiff.Diff(%q, %q): (-want, +got)\n%s", test.s1, test.s2, msg)
		}
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		s1, s2 string
		want   int
	}{
		{"", "a", 1},
		{"a", "a", 0},
		{"ac", "abc", 1},
		{"abcd", "xabdy", 3},
	}
	for _, test := range tests {
		got, err := textdiff.Distance(test.s1, test.s2)
		if err != nil {
			t.Fatalf("textdiff.Distance(%q, %q): %v", test.s1, test.s2, err)
		}
		if got != test.want {
			t.Errorf("textdiff.Distance(%q, %q): want %d, got %d", test.s1, test.s2, test.want, got)
		}
	}
}

func TestDiffInvalidUTF8(t *testing.T) {
	_, err := textdiff.Diff("\xff", "a")
	if err == nil {
		t.Fatal("want error for invalid utf8 input")
	}
}

func TestExplainMentionsEachStep(t *testing.T) {
	script, err := textdiff.Diff("ac", "abc")
	if err != nil {
		t.Fatal(err)
	}
	got := textdiff.Explain(script)
	want := "keep 'a'\ninsert 'b'\nkeep 'c'\n"
	if got != want {
		t.Errorf("Explain() = %q, want %q", got, want)
	}
}
