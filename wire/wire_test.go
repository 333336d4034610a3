package wire

import (
	"testing"

	"github.com/driftline/crdt/crdt"
	"github.com/stretchr/testify/require"
)

func TestRegisterSetRoundTrip(t *testing.T) {

	want := RegisterSet{PreviousTags: []crdt.Tag{"a"}, Tag: "b", Value: float64(2)}

	envelope, err := EncodeRegisterSet("register-1", want)
	require.NoError(t, err)
	require.Equal(t, OpRegisterSet, envelope.Operation)
	require.Equal(t, "register-1", envelope.View)

	raw, err := EncodeEnvelope(envelope)
	require.NoError(t, err)

	decodedEnvelope, err := DecodeEnvelope(raw)
	require.NoError(t, err)

	got, err := DecodeRegisterSet(decodedEnvelope)
	require.NoError(t, err)
	require.Equal(t, want, got)

	r := crdt.NewRegister(crdt.Options{})
	r.Set(nil, "a", float64(1))
	got.Apply(r)

	value, ok := r.ToObject()
	require.True(t, ok)
	require.Equal(t, float64(2), value)
}

func TestSetAddRemoveRoundTrip(t *testing.T) {

	add := SetAdd{Tag: "t1", Value: "x"}
	envelope, err := EncodeSetAdd("set-1", add)
	require.NoError(t, err)

	raw, err := EncodeEnvelope(envelope)
	require.NoError(t, err)
	decodedEnvelope, err := DecodeEnvelope(raw)
	require.NoError(t, err)

	gotAdd, err := DecodeSetAdd(decodedEnvelope)
	require.NoError(t, err)
	require.Equal(t, add, gotAdd)

	s := crdt.NewSet(crdt.Options{})
	gotAdd.Apply(s)
	require.True(t, s.Has("x"))

	remove := SetRemove{Tags: []crdt.Tag{"t1"}, Value: "x"}
	removeEnvelope, err := EncodeSetRemove("set-1", remove)
	require.NoError(t, err)

	gotRemove, err := DecodeSetRemove(removeEnvelope)
	require.NoError(t, err)
	gotRemove.Apply(s)
	require.False(t, s.Has("x"))
}

func TestListInsertRemoveRoundTrip(t *testing.T) {

	tag := crdt.PositionalTag{Positions: []crdt.Position{{Int: 5, SiteID: "s1"}}}

	insert := NewListInsert(tag, "entry")
	require.Equal(t, tag.Encode(), insert.Tag)

	envelope, err := EncodeListInsert("list-1", insert)
	require.NoError(t, err)

	raw, err := EncodeEnvelope(envelope)
	require.NoError(t, err)
	decodedEnvelope, err := DecodeEnvelope(raw)
	require.NoError(t, err)

	gotInsert, err := DecodeListInsert(decodedEnvelope)
	require.NoError(t, err)
	require.Equal(t, tag.Encode(), gotInsert.Tag)
	require.Equal(t, "entry", gotInsert.Value)

	l := crdt.NewList(crdt.Options{})
	require.NoError(t, gotInsert.Apply(l))
	require.Equal(t, 1, l.Count())

	remove := NewListRemove(tag)
	removeEnvelope, err := EncodeListRemove("list-1", remove)
	require.NoError(t, err)
	gotRemove, err := DecodeListRemove(removeEnvelope)
	require.NoError(t, err)
	require.NoError(t, gotRemove.Apply(l))
	require.Equal(t, 0, l.Count())
}

func TestEnvelopeDelimitedEncodeDecodeRoundTrip(t *testing.T) {

	add := SetAdd{Tag: "t1", Value: "x|y"}
	envelope, err := EncodeSetAdd("set-1", add)
	require.NoError(t, err)

	raw := envelope.Encode()

	decoded, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, envelope.View, decoded.View)
	require.Equal(t, envelope.Operation, decoded.Operation)

	gotAdd, err := DecodeSetAdd(decoded)
	require.NoError(t, err)
	require.Equal(t, add, gotAdd)
}

func TestTextUpdateRoundTrip(t *testing.T) {

	text := crdt.NewText(crdt.Options{})
	diff := text.Diff("hello")

	update := TextUpdate{Diff: diff}
	envelope, err := EncodeTextUpdate("text-1", update)
	require.NoError(t, err)

	raw, err := EncodeEnvelope(envelope)
	require.NoError(t, err)
	decodedEnvelope, err := DecodeEnvelope(raw)
	require.NoError(t, err)

	gotUpdate, err := DecodeTextUpdate(decodedEnvelope)
	require.NoError(t, err)

	require.Equal(t, "hello", gotUpdate.Apply(text))
}

func TestDecodeRejectsMismatchedOperation(t *testing.T) {

	envelope, err := EncodeSetAdd("set-1", SetAdd{Tag: "t1", Value: "x"})
	require.NoError(t, err)

	_, err = DecodeRegisterSet(envelope)
	require.Error(t, err)
}
