package crdt

import "testing"

// TestComputeDiffRoundTrip checks that applying a computed diff always
// reproduces the target string exactly - the core round-trip property
// scenario 6 exercises.
func TestComputeDiffRoundTrip(t *testing.T) {

	cases := []struct{ old, new string }{
		{"", ""},
		{"", "hello"},
		{"hello", ""},
		{"hello world", "hello there world"},
		{"kitten", "sitting"},
		{"abcdef", "abcdef"},
		{"abc", "cba"},
		{"the quick brown fox", "the slow brown fox jumps"},
	}

	for i, c := range cases {
		d := computeDiff([]rune(c.old), []rune(c.new))
		got := string(applyDiff([]rune(c.old), d))
		if got != c.new {
			t.Fatalf("[crdt.TestComputeDiffRoundTrip] case %d: applying diff(%q -> %q) produced %q", i, c.old, c.new, got)
		}
	}
}

// TestComputeDiffCoalescesHunks checks the builder merges adjacent
// same-kind edits into a single Hunk instead of one per rune.
func TestComputeDiffCoalescesHunks(t *testing.T) {

	d := computeDiff([]rune("aaaa"), []rune(""))
	if len(d) != 1 || d[0].Kind != Delete || d[0].N != 4 {
		t.Fatalf("[crdt.TestComputeDiffCoalescesHunks] expected a single coalesced delete hunk of length 4, got %+v", d)
	}
}

// TestApplyDiffClampsOutOfRangeHunks checks that a malformed diff -
// one whose Retain/Delete lengths exceed what remains in the source -
// is clamped rather than causing a panic or out-of-range access.
func TestApplyDiffClampsOutOfRangeHunks(t *testing.T) {

	malformed := Diff{
		{Kind: Retain, N: 1000},
		{Kind: Insert, Text: "!"},
	}

	got := applyDiff([]rune("abc"), malformed)
	if string(got) != "abc!" {
		t.Fatalf("[crdt.TestApplyDiffClampsOutOfRangeHunks] expected clamped retain to keep the whole source plus the insert, got %q", string(got))
	}

	overDelete := Diff{{Kind: Delete, N: 1000}, {Kind: Insert, Text: "x"}}
	got = applyDiff([]rune("abc"), overDelete)
	if string(got) != "x" {
		t.Fatalf("[crdt.TestApplyDiffClampsOutOfRangeHunks] expected clamped delete to consume only what remains, got %q", string(got))
	}
}

// TestApplyDiffNegativeRetainClamped checks a negative hunk length -
// never produced by computeDiff but possible on a hand-built or
// corrupted wire diff - cannot drive pos backwards.
func TestApplyDiffNegativeRetainClamped(t *testing.T) {

	d := Diff{{Kind: Retain, N: -5}, {Kind: Insert, Text: "z"}}
	got := applyDiff([]rune("abc"), d)
	if string(got) != "z" {
		t.Fatalf("[crdt.TestApplyDiffNegativeRetainClamped] expected negative retain clamped to zero, got %q", string(got))
	}
}
