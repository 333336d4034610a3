package wire

import (
	"encoding/json"
	"fmt"

	"github.com/driftline/crdt/crdt"
)

// ListInsert carries the arguments of a List.Insert call. Tag is the
// positional tag's canonical encoded string (crdt.PositionalTag.Encode),
// not the raw Position slice, so it sorts byte-for-byte the same way
// the decoded tag would and travels the wire the same way the list's
// own tombstone set already stores it.
type ListInsert struct {
	Tag   string      `json:"tag"`
	Value interface{} `json:"value"`
}

// NewListInsert builds a ListInsert from a decoded positional tag,
// encoding it to its canonical string form.
func NewListInsert(tag crdt.PositionalTag, value interface{}) ListInsert {
	return ListInsert{Tag: tag.Encode(), Value: value}
}

// EncodeListInsert builds the Envelope for a List.Insert update
// against view.
func EncodeListInsert(view string, args ListInsert) (Envelope, error) {
	return encode(view, OpListInsert, args)
}

// DecodeListInsert extracts a ListInsert from e.
func DecodeListInsert(e Envelope) (ListInsert, error) {

	if e.Operation != OpListInsert {
		return ListInsert{}, fmt.Errorf("wire: expected operation %s, got %s", OpListInsert, e.Operation)
	}

	var args ListInsert
	if err := json.Unmarshal(e.Body, &args); err != nil {
		return ListInsert{}, fmt.Errorf("wire: unmarshal list.insert body: %w", err)
	}

	return args, nil
}

// Apply plays this update into l. Tag arrives over the network and is
// decoded rather than trusted, so a malformed encoding is reported
// instead of silently dropped or panicking.
func (args ListInsert) Apply(l *crdt.List) error {

	tag, err := crdt.DecodePositionalTag(args.Tag)
	if err != nil {
		return fmt.Errorf("wire: decoding list.insert tag: %w", err)
	}

	l.Insert(tag, args.Value)
	return nil
}

// ListRemove carries the arguments of a List.Remove call. Tag is the
// positional tag's canonical encoded string, as in ListInsert.
type ListRemove struct {
	Tag string `json:"tag"`
}

// NewListRemove builds a ListRemove from a decoded positional tag.
func NewListRemove(tag crdt.PositionalTag) ListRemove {
	return ListRemove{Tag: tag.Encode()}
}

// EncodeListRemove builds the Envelope for a List.Remove update
// against view.
func EncodeListRemove(view string, args ListRemove) (Envelope, error) {
	return encode(view, OpListRemove, args)
}

// DecodeListRemove extracts a ListRemove from e.
func DecodeListRemove(e Envelope) (ListRemove, error) {

	if e.Operation != OpListRemove {
		return ListRemove{}, fmt.Errorf("wire: expected operation %s, got %s", OpListRemove, e.Operation)
	}

	var args ListRemove
	if err := json.Unmarshal(e.Body, &args); err != nil {
		return ListRemove{}, fmt.Errorf("wire: unmarshal list.remove body: %w", err)
	}

	return args, nil
}

// Apply plays this update into l.
func (args ListRemove) Apply(l *crdt.List) error {

	tag, err := crdt.DecodePositionalTag(args.Tag)
	if err != nil {
		return fmt.Errorf("wire: decoding list.remove tag: %w", err)
	}

	l.Remove(tag)
	return nil
}
