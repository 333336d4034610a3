package crdt

// Text is a string buffer that exchanges diffs instead of full
// snapshots: Diff computes a minimal edit script from the current
// value to a target value, and Update applies a (possibly remotely
// generated) script to the current value.
//
// Text is NOT a true CRDT under arbitrary concurrency, unlike Register,
// Set, and List: a diff computed against one replica's state can be
// applied verbatim to another replica whose state has since diverged,
// and the result is whatever applyDiff produces - best-effort, not
// guaranteed convergent. This mirrors the caveat the teacher's own
// crdt package doc comment raises about needing external
// synchronization; here the caveat is structural instead, and is
// exactly the reason the Design Notes flag Text as a future candidate
// for a proper sequence CRDT (RGA, Logoot-text) behind this same
// interface.
type Text struct {
	value string
}

// NewText returns a Text seeded with the empty string. opts is accepted
// for signature symmetry with the other three constructors; Text has no
// tags and so nothing in Options currently affects it.
func NewText(opts Options) *Text {
	return &Text{}
}

// String returns the current value.
func (t *Text) String() string {
	return t.value
}

// Diff returns a deterministic, near-minimal edit script transforming
// the current value into sPrime. It does not mutate t - call Update
// with the result (locally, or after shipping it to a peer) to apply
// it.
func (t *Text) Diff(sPrime string) Diff {
	return computeDiff([]rune(t.value), []rune(sPrime))
}

// Update applies d to the current value and returns the result. A diff
// whose Retain/Delete lengths no longer sum to the current value's
// length - because it was generated against a different, divergent
// state - is clamped rather than rejected: Update never panics or
// returns an error on a malformed diff.
func (t *Text) Update(d Diff) string {
	t.value = string(applyDiff([]rune(t.value), d))
	return t.value
}

// TextSnapshot is the lossless serialization of a Text's state.
type TextSnapshot struct {
	Value string
}

// Dump returns a complete, independent snapshot of t.
func (t *Text) Dump() TextSnapshot {
	return TextSnapshot{Value: t.value}
}

// Load replaces t's entire state with snap.
func (t *Text) Load(snap TextSnapshot) {
	t.value = snap.Value
}
