package crdt

import (
	"sort"
)

// List is an ordered list CRDT using the Logoot dense-identifier scheme
// for position tags: Between mints a new positional tag strictly
// between any two existing ones (or the virtual list boundaries), so
// concurrent inserts at "the same place" never collide and always
// interleave deterministically once every replica has the full tag.
type List struct {
	tombstones
	opts Options
	// byTag holds every live entry. order is byTag's keys kept sorted
	// by PositionalTag, rebuilt lazily so a run of Inserts doesn't pay
	// an O(n log n) sort per call.
	byTag map[string]*listEntry
	order []string // encoded PositionalTag, kept sorted
	dirty bool
}

type listEntry struct {
	tag   PositionalTag
	value interface{}
}

// NewList returns an empty list honoring opts. opts.SiteID and
// opts.Rand feed every subsequent call to Between.
func NewList(opts Options) *List {
	return &List{
		tombstones: newTombstones(opts),
		opts:       opts,
		byTag:      make(map[string]*listEntry),
	}
}

// Insert places value at tag, unless tag is tombstoned, in which case
// the operation is a no-op. Inserting at a tag already present is
// idempotent - it overwrites the existing value without duplicating
// the tag.
func (l *List) Insert(tag PositionalTag, value interface{}) {

	key := tag.Encode()

	if l.isDead(key) {
		return
	}

	if _, exists := l.byTag[key]; !exists {
		l.order = append(l.order, key)
		l.dirty = true
	}

	l.byTag[key] = &listEntry{tag: tag, value: value}
}

// Remove deletes tag from the list and records it as a tombstone, so a
// late-arriving stale Insert for the same tag can never resurrect it.
func (l *List) Remove(tag PositionalTag) {

	key := tag.Encode()

	if _, exists := l.byTag[key]; exists {
		delete(l.byTag, key)
		l.removeFromOrder(key)
	}

	l.kill(key)
}

func (l *List) removeFromOrder(key string) {
	for i, k := range l.order {
		if k == key {
			l.order = append(l.order[:i], l.order[i+1:]...)
			return
		}
	}
}

// ensureSorted brings l.order up to date with PositionalTag order. The
// encoded form is itself order-preserving (see PositionalTag.Encode),
// so a plain string sort suffices.
func (l *List) ensureSorted() {
	if l.dirty {
		sort.Strings(l.order)
		l.dirty = false
	}
}

// Count returns the number of live entries.
func (l *List) Count() int {
	return len(l.byTag)
}

// TagAt returns the positional tag at 0-based index in sorted order, or
// (_, false) if index is outside [0, Count()).
func (l *List) TagAt(index int) (PositionalTag, bool) {

	l.ensureSorted()

	if index < 0 || index >= len(l.order) {
		return PositionalTag{}, false
	}

	return l.byTag[l.order[index]].tag, true
}

// Get returns the value at 0-based index in sorted order, or
// (nil, false) if index is outside [0, Count()).
func (l *List) Get(index int) (interface{}, bool) {

	l.ensureSorted()

	if index < 0 || index >= len(l.order) {
		return nil, false
	}

	return l.byTag[l.order[index]].value, true
}

// GetTag returns the value stored at tag, or (nil, false) if tag is not
// currently live.
func (l *List) GetTag(tag PositionalTag) (interface{}, bool) {

	entry, ok := l.byTag[tag.Encode()]
	if !ok {
		return nil, false
	}

	return entry.value, true
}

// ToObject returns every live value, in sorted-tag order.
func (l *List) ToObject() []interface{} {

	l.ensureSorted()

	out := make([]interface{}, len(l.order))
	for i, key := range l.order {
		out[i] = l.byTag[key].value
	}

	return out
}

// ForEach calls fn once per live entry, in sorted-tag order.
func (l *List) ForEach(fn func(tag PositionalTag, value interface{}, index int)) {

	l.ensureSorted()

	for i, key := range l.order {
		entry := l.byTag[key]
		fn(entry.tag, entry.value, i)
	}
}

// Map calls fn once per live entry, in sorted-tag order, and returns
// the collected results.
func (l *List) Map(fn func(tag PositionalTag, value interface{}, index int) interface{}) []interface{} {

	out := make([]interface{}, 0, len(l.byTag))
	l.ForEach(func(tag PositionalTag, value interface{}, index int) {
		out = append(out, fn(tag, value, index))
	})

	return out
}

// Between mints a new positional tag strictly between a and b (either
// may be nil, denoting the virtual list boundaries) using this list's
// configured SiteID and Rand. It does not insert the tag - callers
// insert it explicitly via Insert, so that Between can be used purely
// to compute the tag a network update should carry.
func (l *List) Between(a, b *PositionalTag) PositionalTag {
	return Between(a, b, l.opts.SiteID, l.opts.Rand)
}

// Compact evicts encoded positional tags from the tombstone set once a
// caller has externally established that no replica can still deliver
// a stale insert naming them - see the Design Notes on tombstone
// growth.
func (l *List) Compact(encodedTags []string) {
	l.forget(encodedTags)
}

// Tombstones returns every encoded positional tag this list has
// killed, sorted. Empty if the list was constructed with
// NoTombstones.
func (l *List) Tombstones() []string {
	return l.tombstones.tags()
}

// ListSnapshot is the lossless serialization of a List's state.
type ListSnapshot struct {
	NoTombstones bool
	SiteID       string
	Entries      []ListSnapshotEntry
	Dead         []string
}

// ListSnapshotEntry pairs one live positional tag with its value.
type ListSnapshotEntry struct {
	Tag   PositionalTag
	Value interface{}
}

// Dump returns a complete, independent snapshot of l.
func (l *List) Dump() ListSnapshot {

	l.ensureSorted()

	snap := ListSnapshot{
		NoTombstones: l.noTombstones,
		SiteID:       l.opts.SiteID,
		Dead:         l.Tombstones(),
	}

	for _, key := range l.order {
		entry := l.byTag[key]
		snap.Entries = append(snap.Entries, ListSnapshotEntry{Tag: entry.tag, Value: entry.value})
	}

	return snap
}

// Load replaces l's entire state with snap.
func (l *List) Load(snap ListSnapshot) {

	l.noTombstones = snap.NoTombstones
	l.opts.SiteID = snap.SiteID
	l.byTag = make(map[string]*listEntry, len(snap.Entries))
	l.order = nil

	for _, e := range snap.Entries {
		key := e.Tag.Encode()
		l.byTag[key] = &listEntry{tag: e.Tag, value: e.Value}
		l.order = append(l.order, key)
	}
	l.dirty = true

	l.tombstones.load(snap.Dead)
}
