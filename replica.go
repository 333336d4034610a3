package main

import (
	"encoding/json"
	"fmt"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	uuid "github.com/satori/go.uuid"

	"github.com/driftline/crdt/comm"
	"github.com/driftline/crdt/config"
	"github.com/driftline/crdt/crdt"
	"github.com/driftline/crdt/store"
	"github.com/driftline/crdt/wire"
)

// view bundles exactly one of the four crdt types behind a common
// name and kind, so the replica's dispatch logic can look one up by
// name without a type switch at every call site.
type view struct {
	kind     string
	register *crdt.Register
	set      *crdt.Set
	list     *crdt.List
	text     *crdt.Text
}

// replica wires together the crdt views a process hosts, the comm hub
// broadcasting and receiving their updates, the metrics describing
// both, and the optional store persisting them across restarts.
type replica struct {
	siteID  string
	logger  log.Logger
	metrics *ReplicaMetrics
	store   *store.Store

	views map[string]*view
	hub   *comm.Hub
}

// newReplica constructs every view conf names, loading a persisted
// snapshot from st when one is configured and present.
func newReplica(conf *config.Config, st *store.Store, m *ReplicaMetrics, logger log.Logger) (*replica, error) {

	r := &replica{
		siteID:  conf.SiteID,
		logger:  logger,
		metrics: m,
		store:   st,
		views:   make(map[string]*view),
	}

	for name, cfg := range conf.Views {

		opts := crdt.Options{SiteID: conf.SiteID, NoTombstones: cfg.NoTombstones}

		v := &view{kind: cfg.Kind}

		switch cfg.Kind {
		case config.KindRegister:
			v.register = crdt.NewRegister(opts)
		case config.KindSet:
			v.set = crdt.NewSet(opts)
		case config.KindList:
			v.list = crdt.NewList(opts)
		case config.KindText:
			v.text = crdt.NewText(opts)
		default:
			return nil, fmt.Errorf("replica: view '%s' has unrecognized kind '%s'", name, cfg.Kind)
		}

		if st != nil {
			if err := r.loadView(name, v); err != nil {
				return nil, err
			}
		}

		r.views[name] = v
	}

	return r, nil
}

// loadView restores v's state from the most recently saved snapshot in
// the store, if one exists. A missing snapshot is not an error - the
// view simply starts empty, the way it would on a brand new replica.
func (r *replica) loadView(name string, v *view) error {

	data, kind, ok, err := r.store.LoadSnapshot(name)
	if err != nil {
		return fmt.Errorf("replica: loading snapshot for view '%s': %w", name, err)
	}
	if !ok {
		return nil
	}
	if kind != v.kind {
		return fmt.Errorf("replica: snapshot for view '%s' was saved as kind '%s', configured as '%s'", name, kind, v.kind)
	}

	switch v.kind {
	case config.KindRegister:
		var snap crdt.RegisterSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("replica: decoding register snapshot for '%s': %w", name, err)
		}
		v.register.Load(snap)
	case config.KindSet:
		var snap crdt.SetSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("replica: decoding set snapshot for '%s': %w", name, err)
		}
		v.set.Load(snap)
	case config.KindList:
		var snap crdt.ListSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("replica: decoding list snapshot for '%s': %w", name, err)
		}
		v.list.Load(snap)
	case config.KindText:
		var snap crdt.TextSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("replica: decoding text snapshot for '%s': %w", name, err)
		}
		v.text.Load(snap)
	}

	return nil
}

// SaveAll persists every view's current snapshot to the store.
// A no-op if the replica was not configured with one.
func (r *replica) SaveAll() error {

	if r.store == nil {
		return nil
	}

	for name, v := range r.views {

		var data []byte
		var err error

		switch v.kind {
		case config.KindRegister:
			data, err = json.Marshal(v.register.Dump())
		case config.KindSet:
			data, err = json.Marshal(v.set.Dump())
		case config.KindList:
			data, err = json.Marshal(v.list.Dump())
		case config.KindText:
			data, err = json.Marshal(v.text.Dump())
		}
		if err != nil {
			return fmt.Errorf("replica: encoding snapshot for view '%s': %w", name, err)
		}

		if err := r.store.SaveSnapshot(name, v.kind, data); err != nil {
			return fmt.Errorf("replica: saving snapshot for view '%s': %w", name, err)
		}
	}

	return nil
}

// apply decodes a wire envelope and plays it into the view it names -
// this is the function handed to comm.NewHub as its ApplyFunc.
func (r *replica) apply(payload string) error {

	envelope, err := wire.DecodeEnvelope([]byte(payload))
	if err != nil {
		return fmt.Errorf("replica: decoding envelope: %w", err)
	}

	v, ok := r.views[envelope.View]
	if !ok {
		return fmt.Errorf("replica: received update for unknown view '%s'", envelope.View)
	}

	before := tombstoneCount(v)
	dropped := false

	switch envelope.Operation {
	case wire.OpRegisterSet:
		args, err := wire.DecodeRegisterSet(envelope)
		if err != nil {
			return err
		}
		dropped = registerTagTombstoned(v.register, args.Tag)
		args.Apply(v.register)
	case wire.OpSetAdd:
		args, err := wire.DecodeSetAdd(envelope)
		if err != nil {
			return err
		}
		dropped = setTagTombstoned(v.set, args.Tag)
		args.Apply(v.set)
	case wire.OpSetRemove:
		args, err := wire.DecodeSetRemove(envelope)
		if err != nil {
			return err
		}
		args.Apply(v.set)
	case wire.OpListInsert:
		args, err := wire.DecodeListInsert(envelope)
		if err != nil {
			return err
		}
		dropped = listTagTombstoned(v.list, args.Tag)
		if err := args.Apply(v.list); err != nil {
			return err
		}
	case wire.OpListRemove:
		args, err := wire.DecodeListRemove(envelope)
		if err != nil {
			return err
		}
		if err := args.Apply(v.list); err != nil {
			return err
		}
	case wire.OpTextUpdate:
		args, err := wire.DecodeTextUpdate(envelope)
		if err != nil {
			return err
		}
		args.Apply(v.text)
	default:
		return fmt.Errorf("replica: received unrecognized operation '%s'", envelope.Operation)
	}

	if dropped {
		r.metrics.OpsDropped.With("view", envelope.View).Add(1)
	} else {
		r.metrics.OpsApplied.With("view", envelope.View).Add(1)
	}

	if after := tombstoneCount(v); after > before {
		r.metrics.Tombstones.With("view", envelope.View).Add(float64(after - before))
	}

	r.metrics.PendingMessages.Set(float64(r.hub.PendingCount()))

	return nil
}

// tombstoneCount returns the number of tombstones v currently holds,
// used by apply to detect how many an operation just recorded.
func tombstoneCount(v *view) int {
	switch v.kind {
	case config.KindRegister:
		return len(v.register.Tombstones())
	case config.KindSet:
		return len(v.set.Tombstones())
	case config.KindList:
		return len(v.list.Tombstones())
	default:
		return 0
	}
}

// registerTagTombstoned reports whether tag is already dead in r,
// meaning an incoming RegisterSet carrying it will not insert a value.
func registerTagTombstoned(r *crdt.Register, tag crdt.Tag) bool {
	for _, t := range r.Tombstones() {
		if t == tag {
			return true
		}
	}
	return false
}

// setTagTombstoned reports whether tag is already dead in s, meaning
// an incoming SetAdd carrying it will be a no-op.
func setTagTombstoned(s *crdt.Set, tag crdt.Tag) bool {
	for _, t := range s.Tombstones() {
		if t == tag {
			return true
		}
	}
	return false
}

// listTagTombstoned reports whether the encoded positional tag is
// already dead in l, meaning an incoming ListInsert carrying it will
// be a no-op.
func listTagTombstoned(l *crdt.List, encodedTag string) bool {
	for _, t := range l.Tombstones() {
		if t == encodedTag {
			return true
		}
	}
	return false
}

// mintTag returns a fresh opaque application tag. The library's own
// crdt package never mints identity tags - see its doc comment - so
// this lives here, at the application layer this replica plays.
func mintTag() crdt.Tag {
	return crdt.Tag(uuid.NewV4().String())
}

// broadcastSetAdd mints a tag for value, applies it locally, and
// broadcasts the update to every peer.
func (r *replica) broadcastSetAdd(viewName string, value interface{}) error {

	v, ok := r.views[viewName]
	if !ok || v.kind != config.KindSet {
		return fmt.Errorf("replica: '%s' is not a set view", viewName)
	}

	tag := mintTag()
	args := wire.SetAdd{Tag: tag, Value: value}
	args.Apply(v.set)

	envelope, err := wire.EncodeSetAdd(viewName, args)
	if err != nil {
		return err
	}

	_, err = comm.BroadcastEnvelope(r.hub, envelope, r.logger)
	return err
}

// broadcastRegisterSet mints a tag for value, advancing past every
// currently live tag, applies it locally, and broadcasts the update.
func (r *replica) broadcastRegisterSet(viewName string, value interface{}) error {

	v, ok := r.views[viewName]
	if !ok || v.kind != config.KindRegister {
		return fmt.Errorf("replica: '%s' is not a register view", viewName)
	}

	args := wire.RegisterSet{PreviousTags: v.register.Tags(), Tag: mintTag(), Value: value}
	args.Apply(v.register)

	envelope, err := wire.EncodeRegisterSet(viewName, args)
	if err != nil {
		return err
	}

	_, err = comm.BroadcastEnvelope(r.hub, envelope, r.logger)
	return err
}

// broadcastListInsert mints a positional tag placing value at the end
// of the named list, applies it locally, and broadcasts the update.
func (r *replica) broadcastListInsert(viewName string, value interface{}) error {

	v, ok := r.views[viewName]
	if !ok || v.kind != config.KindList {
		return fmt.Errorf("replica: '%s' is not a list view", viewName)
	}

	lastTag, _ := v.list.TagAt(v.list.Count() - 1)
	var anchor *crdt.PositionalTag
	if v.list.Count() > 0 {
		anchor = &lastTag
	}

	tag := v.list.Between(anchor, nil)
	r.metrics.BetweenDepth.Observe(float64(len(tag.Positions)))

	args := wire.NewListInsert(tag, value)
	if err := args.Apply(v.list); err != nil {
		return err
	}

	envelope, err := wire.EncodeListInsert(viewName, args)
	if err != nil {
		return err
	}

	_, err = comm.BroadcastEnvelope(r.hub, envelope, r.logger)
	return err
}

// broadcastTextUpdate diffs the named text view against newValue,
// applies the diff locally, and broadcasts it.
func (r *replica) broadcastTextUpdate(viewName string, newValue string) error {

	v, ok := r.views[viewName]
	if !ok || v.kind != config.KindText {
		return fmt.Errorf("replica: '%s' is not a text view", viewName)
	}

	diff := v.text.Diff(newValue)
	args := wire.TextUpdate{Diff: diff}
	args.Apply(v.text)

	envelope, err := wire.EncodeTextUpdate(viewName, args)
	if err != nil {
		return err
	}

	_, err = comm.BroadcastEnvelope(r.hub, envelope, r.logger)
	return err
}

// dumpState logs every view's current state through the replica's
// logger - the value of a register or text view, the entry count of a
// set or list view - used on SIGHUP when the --dump CLI flag is set.
func (r *replica) dumpState() {
	for name, v := range r.views {
		switch v.kind {
		case config.KindRegister:
			value, ok := v.register.ToObject()
			level.Info(r.logger).Log("msg", "view state", "view", name, "kind", v.kind, "value", fmt.Sprintf("%v", value), "live", ok)
		case config.KindSet:
			level.Info(r.logger).Log("msg", "view state", "view", name, "kind", v.kind, "count", v.set.Count())
		case config.KindList:
			level.Info(r.logger).Log("msg", "view state", "view", name, "kind", v.kind, "count", v.list.Count())
		case config.KindText:
			level.Info(r.logger).Log("msg", "view state", "view", name, "kind", v.kind, "value", v.text.String())
		}
	}
}
