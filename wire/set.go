package wire

import (
	"encoding/json"
	"fmt"

	"github.com/driftline/crdt/crdt"
)

// SetAdd carries the arguments of a Set.Add call.
type SetAdd struct {
	Tag   crdt.Tag    `json:"tag"`
	Value interface{} `json:"value"`
}

// EncodeSetAdd builds the Envelope for a Set.Add update against view.
func EncodeSetAdd(view string, args SetAdd) (Envelope, error) {
	return encode(view, OpSetAdd, args)
}

// DecodeSetAdd extracts a SetAdd from e.
func DecodeSetAdd(e Envelope) (SetAdd, error) {

	if e.Operation != OpSetAdd {
		return SetAdd{}, fmt.Errorf("wire: expected operation %s, got %s", OpSetAdd, e.Operation)
	}

	var args SetAdd
	if err := json.Unmarshal(e.Body, &args); err != nil {
		return SetAdd{}, fmt.Errorf("wire: unmarshal set.add body: %w", err)
	}

	return args, nil
}

// Apply plays this update into s.
func (args SetAdd) Apply(s *crdt.Set) {
	s.Add(args.Tag, args.Value)
}

// SetRemove carries the arguments of a Set.Remove call.
type SetRemove struct {
	Tags  []crdt.Tag  `json:"tags"`
	Value interface{} `json:"value"`
}

// EncodeSetRemove builds the Envelope for a Set.Remove update against
// view.
func EncodeSetRemove(view string, args SetRemove) (Envelope, error) {
	return encode(view, OpSetRemove, args)
}

// DecodeSetRemove extracts a SetRemove from e.
func DecodeSetRemove(e Envelope) (SetRemove, error) {

	if e.Operation != OpSetRemove {
		return SetRemove{}, fmt.Errorf("wire: expected operation %s, got %s", OpSetRemove, e.Operation)
	}

	var args SetRemove
	if err := json.Unmarshal(e.Body, &args); err != nil {
		return SetRemove{}, fmt.Errorf("wire: unmarshal set.remove body: %w", err)
	}

	return args, nil
}

// Apply plays this update into s.
func (args SetRemove) Apply(s *crdt.Set) {
	s.Remove(args.Tags, args.Value)
}
