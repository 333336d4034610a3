// Package wire marshals crdt view updates into a form suitable for
// broadcast over comm: an Envelope names the target view and the
// operation being applied, and carries a JSON body holding the
// operation's arguments.
//
// The envelope shape is directly grounded on the teacher's
// crdt.ORSetOp: an Operation string followed by a set of arguments,
// marshalled for the wire and parsed back on receipt. That type's own
// marshalling is pipe-delimited and string-only, adequate for an
// ORSet of string values; crdt's views carry arbitrary interface{}
// values (including Diff structures for Text), so Envelope's Body is
// JSON rather than a delimited string, and each operation's argument
// struct is just a plain Go struct tagged for encoding/json.
//
// Envelope also carries Encode/Decode, a pipe-delimited pair in the
// same lineage as ORSetOp.String()/Parse - "view|operation|body" -
// generalized across all four operation kinds by leaning on Body
// already being an opaque JSON blob, instead of ORSetOp's per-operation
// argument-map branching. comm puts the JSON form (EncodeEnvelope) on
// the socket; Encode/Decode exist for the same lineage reasons the
// teacher's delimited format does.
//
// List's positional tags travel as their own canonical encoded string
// (PositionalTag.Encode / crdt.DecodePositionalTag), never as the raw
// Position slice, so a tag's wire form sorts byte-for-byte the same
// way the decoded tag would - the same encoding the list's own
// tombstone set already stores.
package wire
