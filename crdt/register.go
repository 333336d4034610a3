package crdt

import "sort"

// Register is a last-writer-wins register over a causal tag DAG: each
// update names the tags it causally supersedes, so concurrent updates
// surface as multiple live tags instead of one silently clobbering the
// other. It is the simplest of the four views, directly generalizing
// the teacher's own ORSet prepare/effect split (one insert, plus here a
// set of tags moved to tombstones) to a per-key causality chain instead
// of a flat unstructured set.
type Register struct {
	tombstones
	live map[Tag]interface{}
}

// NewRegister returns an empty register honoring opts.
func NewRegister(opts Options) *Register {
	return &Register{
		tombstones: newTombstones(opts),
		live:       make(map[Tag]interface{}),
	}
}

// Set applies an update: every tag in previousTags is moved from live
// to tombstones, then tag is inserted with value - unless tag was
// already tombstoned, in which case tag is not inserted (previousTags
// are still killed, so delivery order does not change the result). This
// is the only mutating operation; there is no separate "delete", since
// deletion of a register is just a Set with no new live tag naming a
// value (an empty previousTags-only update would instead merely leave
// the named tags dead without inserting a replacement).
func (r *Register) Set(previousTags []Tag, tag Tag, value interface{}) {

	dead := r.isDead(string(tag))

	for _, p := range previousTags {
		delete(r.live, p)
		r.kill(string(p))
	}

	if dead {
		return
	}

	r.live[tag] = value
}

// Tags returns the currently live tags, sorted.
func (r *Register) Tags() []Tag {

	tags := make([]Tag, 0, len(r.live))
	for t := range r.live {
		tags = append(tags, t)
	}

	return sortTags(tags)
}

// ToObject returns the register's current value and true, or
// (nil, false) if the register has never been set. When concurrent
// writes have left more than one live tag, the value at the
// lexicographically smallest live tag is returned - a deterministic,
// if arbitrary, projection of the underlying multi-value state.
func (r *Register) ToObject() (interface{}, bool) {

	if len(r.live) == 0 {
		return nil, false
	}

	tags := r.Tags()
	return r.live[tags[0]], true
}

// Compact evicts tags from the tombstone set once a caller has
// externally established that no replica can still deliver a stale
// update naming them - see the Design Notes on tombstone growth.
func (r *Register) Compact(tags []Tag) {
	keys := make([]string, len(tags))
	for i, t := range tags {
		keys[i] = string(t)
	}
	r.forget(keys)
}

// Tombstones returns every tag r has killed, sorted. Empty if r was
// constructed with NoTombstones.
func (r *Register) Tombstones() []Tag {

	raw := r.tombstones.tags()
	out := make([]Tag, len(raw))
	for i, t := range raw {
		out[i] = Tag(t)
	}

	return out
}

// RegisterSnapshot is the lossless serialization of a Register's state,
// returned by Dump and consumed by Load.
type RegisterSnapshot struct {
	NoTombstones bool
	Live         map[Tag]interface{}
	Dead         []Tag
}

// Dump returns a complete, independent snapshot of r.
func (r *Register) Dump() RegisterSnapshot {

	live := make(map[Tag]interface{}, len(r.live))
	for k, v := range r.live {
		live[k] = v
	}

	return RegisterSnapshot{
		NoTombstones: r.noTombstones,
		Live:         live,
		Dead:         r.Tombstones(),
	}
}

// Load replaces r's entire state with s. Load(Dump(r)) behaves
// identically to r for all subsequent operations.
func (r *Register) Load(s RegisterSnapshot) {

	r.noTombstones = s.NoTombstones

	r.live = make(map[Tag]interface{}, len(s.Live))
	for k, v := range s.Live {
		r.live[k] = v
	}

	dead := make([]string, len(s.Dead))
	for i, t := range s.Dead {
		dead[i] = string(t)
	}
	sort.Strings(dead)
	r.tombstones.load(dead)
}
