package crdt

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// tombstones is the tag-tracked tombstone mixin embedded by Register,
// Set, and List (Text keeps no tags and embeds none). A tag named in here can never again give birth to a live
// entry - the library's one cross-cutting correctness mechanism. It is
// backed by a generic mapset.Set, the same library the kevinxiao27
// eg-walker example depends on for its own CRDT-adjacent set handling.
type tombstones struct {
	noTombstones bool
	dead         mapset.Set[string]
}

// newTombstones returns an initialized tombstones mixin honoring opts.
func newTombstones(opts Options) tombstones {
	return tombstones{
		noTombstones: opts.NoTombstones,
		dead:         mapset.NewThreadUnsafeSet[string](),
	}
}

// kill records key as dead. A no-op when NoTombstones was configured.
func (t *tombstones) kill(key string) {
	if t.noTombstones {
		return
	}
	t.dead.Add(key)
}

// isDead reports whether key has been killed.
func (t *tombstones) isDead(key string) bool {
	if t.noTombstones {
		return false
	}
	return t.dead.Contains(key)
}

// tags returns a sorted snapshot of every killed key.
func (t *tombstones) tags() []string {
	out := t.dead.ToSlice()
	sort.Strings(out)
	return out
}

// load replaces the tombstone set wholesale, used by Load to restore a
// Snapshot. A no-op when NoTombstones is configured for this view.
func (t *tombstones) load(keys []string) {
	if t.noTombstones {
		return
	}
	t.dead = mapset.NewThreadUnsafeSet[string](keys...)
}

// forget drops keys from the tombstone set. Safe only once a caller
// has externally established every replica has already observed the
// corresponding removal - the library has no way to verify that
// itself, so it exposes the tombstone set (via tags) and this eviction
// primitive rather than ever forgetting on its own.
func (t *tombstones) forget(keys []string) {
	for _, key := range keys {
		t.dead.Remove(key)
	}
}

