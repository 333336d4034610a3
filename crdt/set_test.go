package crdt

import "testing"

// TestSetAddObserves covers the OR-Set add half: a value with one live
// tag is present and reports that tag.
func TestSetAddObserves(t *testing.T) {

	s := NewSet(Options{})
	s.Add("t1", "apple")

	if !s.Has("apple") {
		t.Fatalf("[crdt.TestSetAddObserves] expected apple to be present after Add")
	}
	if tags := s.Tags("apple"); len(tags) != 1 || tags[0] != "t1" {
		t.Fatalf("[crdt.TestSetAddObserves] expected tags(apple) == [t1], got %v", tags)
	}
}

// TestSetConcurrentAddRemove is scenario 3: a concurrent Add(t2, x) and
// Remove([t1], x) - where t1 is some earlier add-tag the remover
// observed but t2 is not - must converge to x still present, tagged
// only with t2. This is the defining OR-Set guarantee: a remove only
// kills the tags it has actually seen.
func TestSetConcurrentAddRemove(t *testing.T) {

	replicaA := NewSet(Options{})
	replicaA.Add("t1", "x")
	replicaA.Add("t2", "x")
	replicaA.Remove([]Tag{"t1"}, "x")

	replicaB := NewSet(Options{})
	replicaB.Add("t1", "x")
	replicaB.Remove([]Tag{"t1"}, "x")
	replicaB.Add("t2", "x")

	for name, r := range map[string]*Set{"A": replicaA, "B": replicaB} {
		if !r.Has("x") {
			t.Fatalf("[crdt.TestSetConcurrentAddRemove] replica %s: expected x to survive the concurrent remove", name)
		}
		if tags := r.Tags("x"); len(tags) != 1 || tags[0] != "t2" {
			t.Fatalf("[crdt.TestSetConcurrentAddRemove] replica %s: expected tags(x) == [t2], got %v", name, tags)
		}
	}
}

// TestSetRemoveAllTagsDeletesValue covers the other half of scenario
// 3: once every live tag for a value has been killed, the value itself
// disappears from the set.
func TestSetRemoveAllTagsDeletesValue(t *testing.T) {

	s := NewSet(Options{})
	s.Add("t1", "x")
	s.Add("t2", "x")
	s.Remove([]Tag{"t1", "t2"}, "x")

	if s.Has("x") {
		t.Fatalf("[crdt.TestSetRemoveAllTagsDeletesValue] expected x to be gone once every live tag is killed")
	}
	if count := s.Count(); count != 0 {
		t.Fatalf("[crdt.TestSetRemoveAllTagsDeletesValue] expected Count() == 0, got %d", count)
	}
}

// TestSetTombstoneBlocksStaleAdd is scenario 4: an Add delivered after
// its tag has already been tombstoned by a Remove must never
// resurrect the value, regardless of delivery order.
func TestSetTombstoneBlocksStaleAdd(t *testing.T) {

	s := NewSet(Options{})
	s.Add("t1", "x")
	s.Remove([]Tag{"t1"}, "x")

	// A stale, re-delivered Add("t1", "x") arrives after the remove.
	s.Add("t1", "x")

	if s.Has("x") {
		t.Fatalf("[crdt.TestSetTombstoneBlocksStaleAdd] expected stale re-add to be blocked by the tombstone")
	}
}

// TestSetReorderedRemoveThenAdd confirms scenario 4 holds under the
// opposite delivery order too: Remove arriving at a fresh replica
// before the Add does not let the later Add resurrect the value.
func TestSetReorderedRemoveThenAdd(t *testing.T) {

	s := NewSet(Options{})
	s.Remove([]Tag{"t1"}, "x")
	s.Add("t1", "x")

	if s.Has("x") {
		t.Fatalf("[crdt.TestSetReorderedRemoveThenAdd] expected tombstone recorded ahead of the add to still block it")
	}
}

// TestSetToObjectOrder checks ToObject's documented ordering: values
// sorted by their smallest live tag.
func TestSetToObjectOrder(t *testing.T) {

	s := NewSet(Options{})
	s.Add("z", "late-tag-value")
	s.Add("a", "early-tag-value")

	got := s.ToObject()
	if len(got) != 2 || got[0] != "early-tag-value" || got[1] != "late-tag-value" {
		t.Fatalf("[crdt.TestSetToObjectOrder] expected [early-tag-value late-tag-value], got %v", got)
	}
}

// TestSetNoTombstones checks that a NoTombstones set never blocks a
// stale re-add.
func TestSetNoTombstones(t *testing.T) {

	s := NewSet(Options{NoTombstones: true})
	s.Add("t1", "x")
	s.Remove([]Tag{"t1"}, "x")
	s.Add("t1", "x")

	if !s.Has("x") {
		t.Fatalf("[crdt.TestSetNoTombstones] expected stale re-add to succeed without tombstone tracking")
	}
	if tombstones := s.Tombstones(); len(tombstones) != 0 {
		t.Fatalf("[crdt.TestSetNoTombstones] expected no tombstones recorded, got %v", tombstones)
	}
}

// TestSetDumpLoadRoundTrip covers invariant 5 for Set.
func TestSetDumpLoadRoundTrip(t *testing.T) {

	s := NewSet(Options{})
	s.Add("t1", "x")
	s.Add("t2", "y")
	s.Remove([]Tag{"t1"}, "x")

	loaded := NewSet(Options{})
	loaded.Load(s.Dump())

	if got, want := loaded.ToObject(), s.ToObject(); len(got) != len(want) {
		t.Fatalf("[crdt.TestSetDumpLoadRoundTrip] expected equal ToObject() after load, want %v got %v", want, got)
	}

	// A stale add for the tombstoned tag must still be blocked after
	// the round trip.
	loaded.Add("t1", "x")
	if loaded.Has("x") {
		t.Fatalf("[crdt.TestSetDumpLoadRoundTrip] expected tombstone for t1 to survive Dump/Load")
	}
}
