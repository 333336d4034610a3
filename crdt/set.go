package crdt

import (
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// Set is an observed-removed set (OR-Set) as specified by Shapiro,
// Preguica, Baquero and Zawirski - the same specification the teacher's
// own crdt.ORSet cites in its package doc, but that type only ever
// implements the add half: its elements map is flat and has no Remove
// at all. This Set fills that gap, tracking per-value add-tags so a
// Remove can target exactly the tags it observed, the way real OR-Set
// semantics require.
type Set struct {
	tombstones
	// byKey maps a canonical key (see keyOf) to the live add-tags that
	// wrote it and the value itself, so ToObject/ForEach/Map can
	// recover the original, not just its key.
	byKey map[string]*setEntry
	// order records first-insertion order of keys, so ToObject can
	// offer a stable, deterministic iteration order (smallest live tag
	// first) without re-deriving it from map iteration.
	order []string
}

type setEntry struct {
	value interface{}
	tags  mapset.Set[Tag]
}

// NewSet returns an empty observed-removed set honoring opts.
func NewSet(opts Options) *Set {
	return &Set{
		tombstones: newTombstones(opts),
		byKey:      make(map[string]*setEntry),
	}
}

// keyOf derives the canonical map key for an opaque value, per the
// Design Notes on Set/List value equality: stable for comparable Go
// values (strings, numbers, bools, structs and slices of those).
// Callers needing custom equality should pass pre-serialized values.
func keyOf(value interface{}) string {
	return fmt.Sprintf("%#v", value)
}

// Add is the effect of an add-update, directly grounded on the
// teacher's ORSet.AddEffect/ORSet.Add prepare/effect split: if tag is
// tombstoned the update is a no-op, otherwise tag is inserted into
// value's live add-tags, creating the entry if this is the first add
// for this value.
func (s *Set) Add(tag Tag, value interface{}) {

	if s.isDead(string(tag)) {
		return
	}

	key := keyOf(value)

	entry, ok := s.byKey[key]
	if !ok {
		entry = &setEntry{value: value, tags: mapset.NewThreadUnsafeSet[Tag]()}
		s.byKey[key] = entry
		s.order = append(s.order, key)
	}

	entry.tags.Add(tag)
}

// Remove kills every tag in tags and removes it from value's live
// add-tags. If that empties value's tag set, value itself is removed
// from the set. A concurrent Add using a tag outside of tags survives,
// which is exactly the OR-Set guarantee: remove only kills the tags the
// remover has observed.
func (s *Set) Remove(tags []Tag, value interface{}) {

	key := keyOf(value)

	entry, ok := s.byKey[key]

	for _, t := range tags {
		s.kill(string(t))
		if ok {
			entry.tags.Remove(t)
		}
	}

	if ok && entry.tags.Cardinality() == 0 {
		delete(s.byKey, key)
		s.removeFromOrder(key)
	}
}

// RemoveTag is the singleton convenience form of Remove, matching the
// wire format's singleton-tag case for a remove update.
func (s *Set) RemoveTag(tag Tag, value interface{}) {
	s.Remove([]Tag{tag}, value)
}

func (s *Set) removeFromOrder(key string) {
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// Tags returns the live add-tags for value, sorted; empty if value is
// absent (including if it was once present and has since been wholly
// tombstoned - see the Open Question in the Design Notes, preserved
// here as "empty when absent" without further inferred intent).
func (s *Set) Tags(value interface{}) []Tag {

	entry, ok := s.byKey[keyOf(value)]
	if !ok {
		return nil
	}

	tags := entry.tags.ToSlice()
	return sortTags(tags)
}

// Has reports whether value currently has at least one live add-tag.
func (s *Set) Has(value interface{}) bool {
	_, ok := s.byKey[keyOf(value)]
	return ok
}

// Count returns the number of distinct live values.
func (s *Set) Count() int {
	return len(s.byKey)
}

// ToObject returns the live values in insertion-sorted order by
// smallest live tag.
func (s *Set) ToObject() []interface{} {

	out := make([]interface{}, 0, len(s.byKey))
	for _, key := range s.sortedKeys() {
		out = append(out, s.byKey[key].value)
	}

	return out
}

// ForEach calls fn once per live value, in the same order as ToObject.
func (s *Set) ForEach(fn func(tags []Tag, value interface{}, index int)) {
	for i, key := range s.sortedKeys() {
		entry := s.byKey[key]
		fn(sortTags(entry.tags.ToSlice()), entry.value, i)
	}
}

// Map calls fn once per live value, in the same order as ToObject, and
// returns the collected results.
func (s *Set) Map(fn func(tags []Tag, value interface{}, index int) interface{}) []interface{} {

	out := make([]interface{}, 0, len(s.byKey))
	s.ForEach(func(tags []Tag, value interface{}, index int) {
		out = append(out, fn(tags, value, index))
	})

	return out
}

// sortedKeys returns the set's keys ordered by each entry's smallest
// live tag, breaking ties (there should be none, tags are unique) by
// insertion order.
func (s *Set) sortedKeys() []string {

	keys := make([]string, len(s.order))
	copy(keys, s.order)

	sort.SliceStable(keys, func(i, j int) bool {
		return smallestTag(s.byKey[keys[i]]) < smallestTag(s.byKey[keys[j]])
	})

	return keys
}

func smallestTag(e *setEntry) Tag {

	tags := sortTags(e.tags.ToSlice())
	if len(tags) == 0 {
		return ""
	}

	return tags[0]
}

// Compact evicts tags from the tombstone set once a caller has
// externally established that no replica can still deliver a stale
// add naming them - see the Design Notes on tombstone growth.
func (s *Set) Compact(tags []Tag) {
	keys := make([]string, len(tags))
	for i, t := range tags {
		keys[i] = string(t)
	}
	s.forget(keys)
}

// Tombstones returns every tag this set has killed, sorted. Empty if
// the set was constructed with NoTombstones.
func (s *Set) Tombstones() []Tag {

	raw := s.tombstones.tags()
	out := make([]Tag, len(raw))
	for i, t := range raw {
		out[i] = Tag(t)
	}

	return out
}

// SetSnapshot is the lossless serialization of a Set's state.
type SetSnapshot struct {
	NoTombstones bool
	Values       []SetSnapshotEntry
	Dead         []Tag
}

// SetSnapshotEntry pairs one live value with its live add-tags.
type SetSnapshotEntry struct {
	Value interface{}
	Tags  []Tag
}

// Dump returns a complete, independent snapshot of s.
func (s *Set) Dump() SetSnapshot {

	snap := SetSnapshot{NoTombstones: s.noTombstones, Dead: s.Tombstones()}

	for _, key := range s.sortedKeys() {
		entry := s.byKey[key]
		snap.Values = append(snap.Values, SetSnapshotEntry{
			Value: entry.value,
			Tags:  sortTags(entry.tags.ToSlice()),
		})
	}

	return snap
}

// Load replaces s's entire state with snap.
func (s *Set) Load(snap SetSnapshot) {

	s.noTombstones = snap.NoTombstones
	s.byKey = make(map[string]*setEntry, len(snap.Values))
	s.order = nil

	for _, v := range snap.Values {
		key := keyOf(v.Value)
		tags := mapset.NewThreadUnsafeSet[Tag](v.Tags...)
		s.byKey[key] = &setEntry{value: v.Value, tags: tags}
		s.order = append(s.order, key)
	}

	dead := make([]string, len(snap.Dead))
	for i, t := range snap.Dead {
		dead[i] = string(t)
	}
	sort.Strings(dead)
	s.tombstones.load(dead)
}
