package main

import (
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/require"

	"github.com/driftline/crdt/comm"
	"github.com/driftline/crdt/config"
	"github.com/driftline/crdt/crdt"
	"github.com/driftline/crdt/wire"
)

// newTestReplica returns a replica with a single view "v" of the given
// kind (set or list) and no persistence, wired to a standalone Hub
// with no peers - enough to
// exercise apply without a live network.
func newTestReplica(t *testing.T, kind string) *replica {

	logger := log.NewNopLogger()
	r := &replica{
		siteID:  "site-a",
		logger:  logger,
		metrics: NewReplicaMetrics(""),
		views:   make(map[string]*view),
	}

	v := &view{kind: kind}
	switch kind {
	case config.KindSet:
		v.set = crdt.NewSet(crdt.Options{SiteID: "site-a"})
	case config.KindList:
		v.list = crdt.NewList(crdt.Options{SiteID: "site-a"})
	}
	r.views["v"] = v

	hub, err := comm.NewHub("site-a", nil, nil, r.apply, logger)
	require.NoError(t, err)
	r.hub = hub

	return r
}

// TestApplySetAddCountsOpsApplied checks that a fresh SetAdd is
// counted as applied, not dropped.
func TestApplySetAddCountsOpsApplied(t *testing.T) {

	r := newTestReplica(t, config.KindSet)

	add := wire.SetAdd{Tag: "t1", Value: "x"}
	envelope, err := wire.EncodeSetAdd("v", add)
	require.NoError(t, err)

	raw, err := wire.EncodeEnvelope(envelope)
	require.NoError(t, err)

	require.False(t, setTagTombstoned(r.views["v"].set, add.Tag))
	require.NoError(t, r.apply(string(raw)))
	require.True(t, r.views["v"].set.Has("x"))
}

// TestApplySetAddAfterRemoveCountsOpsDropped checks that replaying a
// SetAdd whose tag has already been tombstoned by a prior SetRemove
// is counted as dropped, not applied, and records no further
// tombstone since the tag was already dead.
func TestApplySetAddAfterRemoveCountsOpsDropped(t *testing.T) {

	r := newTestReplica(t, config.KindSet)
	v := r.views["v"]

	add := wire.SetAdd{Tag: "t1", Value: "x"}
	require.False(t, setTagTombstoned(v.set, add.Tag))
	add.Apply(v.set)

	remove := wire.SetRemove{Tags: []crdt.Tag{"t1"}, Value: "x"}
	remove.Apply(v.set)
	require.False(t, v.set.Has("x"))
	require.Len(t, v.set.Tombstones(), 1)

	require.True(t, setTagTombstoned(v.set, add.Tag))

	envelope, err := wire.EncodeSetAdd("v", add)
	require.NoError(t, err)
	raw, err := wire.EncodeEnvelope(envelope)
	require.NoError(t, err)

	require.NoError(t, r.apply(string(raw)))
	require.False(t, v.set.Has("x"))
	require.Len(t, v.set.Tombstones(), 1)
}

// TestApplySetRemoveCountsTombstone checks that a SetRemove's
// apply-time tombstone growth is reflected by tombstoneCount, the
// signal apply uses to drive the Tombstones metric.
func TestApplySetRemoveCountsTombstone(t *testing.T) {

	r := newTestReplica(t, config.KindSet)
	v := r.views["v"]

	add := wire.SetAdd{Tag: "t1", Value: "x"}
	add.Apply(v.set)

	before := tombstoneCount(v)

	remove := wire.SetRemove{Tags: []crdt.Tag{"t1"}, Value: "x"}
	envelope, err := wire.EncodeSetRemove("v", remove)
	require.NoError(t, err)
	raw, err := wire.EncodeEnvelope(envelope)
	require.NoError(t, err)

	require.NoError(t, r.apply(string(raw)))
	require.Equal(t, before+1, tombstoneCount(v))
}

// TestBroadcastListInsertUsesEncodedTag checks that broadcastListInsert
// mints through wire.NewListInsert, so the wire body carries the
// canonical encoded tag string rather than the raw PositionalTag.
func TestBroadcastListInsertUsesEncodedTag(t *testing.T) {

	r := newTestReplica(t, config.KindList)
	v := r.views["v"]

	require.NoError(t, r.broadcastListInsert("v", "first"))
	require.Equal(t, 1, v.list.Count())

	tag, ok := v.list.TagAt(0)
	require.True(t, ok)
	require.False(t, listTagTombstoned(v.list, tag.Encode()))
}
