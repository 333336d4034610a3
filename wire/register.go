package wire

import (
	"encoding/json"
	"fmt"

	"github.com/driftline/crdt/crdt"
)

// RegisterSet carries the arguments of a Register.Set call.
type RegisterSet struct {
	PreviousTags []crdt.Tag  `json:"previous_tags"`
	Tag          crdt.Tag    `json:"tag"`
	Value        interface{} `json:"value"`
}

// EncodeRegisterSet builds the Envelope for a Register.Set update
// against view.
func EncodeRegisterSet(view string, args RegisterSet) (Envelope, error) {
	return encode(view, OpRegisterSet, args)
}

// DecodeRegisterSet extracts a RegisterSet from e, failing if e's
// Operation is not register.set.
func DecodeRegisterSet(e Envelope) (RegisterSet, error) {

	if e.Operation != OpRegisterSet {
		return RegisterSet{}, fmt.Errorf("wire: expected operation %s, got %s", OpRegisterSet, e.Operation)
	}

	var args RegisterSet
	if err := json.Unmarshal(e.Body, &args); err != nil {
		return RegisterSet{}, fmt.Errorf("wire: unmarshal register.set body: %w", err)
	}

	return args, nil
}

// Apply plays this update into r.
func (args RegisterSet) Apply(r *crdt.Register) {
	r.Set(args.PreviousTags, args.Tag, args.Value)
}
