package wire

import (
	"encoding/json"
	"fmt"

	"github.com/driftline/crdt/crdt"
)

// TextUpdate carries a diff to apply to a Text view.
type TextUpdate struct {
	Diff crdt.Diff `json:"diff"`
}

// EncodeTextUpdate builds the Envelope for a Text.Update against view.
func EncodeTextUpdate(view string, args TextUpdate) (Envelope, error) {
	return encode(view, OpTextUpdate, args)
}

// DecodeTextUpdate extracts a TextUpdate from e.
func DecodeTextUpdate(e Envelope) (TextUpdate, error) {

	if e.Operation != OpTextUpdate {
		return TextUpdate{}, fmt.Errorf("wire: expected operation %s, got %s", OpTextUpdate, e.Operation)
	}

	var args TextUpdate
	if err := json.Unmarshal(e.Body, &args); err != nil {
		return TextUpdate{}, fmt.Errorf("wire: unmarshal text.update body: %w", err)
	}

	return args, nil
}

// Apply plays this update into t and returns the resulting value.
func (args TextUpdate) Apply(t *crdt.Text) string {
	return t.Update(args.Diff)
}
