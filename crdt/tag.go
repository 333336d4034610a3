package crdt

import (
	"encoding/hex"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"
)

// Structs

// Tag is an opaque, application-supplied identifier stamped on an entry
// at creation. The library never mints identity tags itself - only the
// positional tags a List hands out via Between are library-minted.
type Tag string

// Position is one element of a PositionalTag: an integer coordinate and
// an optional tiebreaker, either a caller-supplied site ID or a weak
// pseudo-random string when none was supplied.
type Position struct {
	Int    int64
	SiteID string
}

// PositionalTag is a Logoot dense identifier: an ordered sequence of
// Positions. Positional tags compare lexicographically over Positions,
// and within a Position by Int then SiteID. Two distinct PositionalTags
// are never equal by construction of Between.
type PositionalTag struct {
	Positions []Position
}

// Functions

// Compare returns -1, 0, or 1 if p sorts before, equal to, or after o.
func (p Position) Compare(o Position) int {

	if p.Int != o.Int {
		if p.Int < o.Int {
			return -1
		}
		return 1
	}

	return strings.Compare(p.SiteID, o.SiteID)
}

// Compare returns -1, 0, or 1 if t sorts before, equal to, or after o,
// comparing Position by Position and treating a shorter tag that is an
// exact prefix of the longer one as the smaller of the two.
func (t PositionalTag) Compare(o PositionalTag) int {

	n := len(t.Positions)
	if len(o.Positions) < n {
		n = len(o.Positions)
	}

	for i := 0; i < n; i++ {
		if c := t.Positions[i].Compare(o.Positions[i]); c != 0 {
			return c
		}
	}

	switch {
	case len(t.Positions) < len(o.Positions):
		return -1
	case len(t.Positions) > len(o.Positions):
		return 1
	default:
		return 0
	}
}

// Less reports whether t sorts strictly before o.
func (t PositionalTag) Less(o PositionalTag) bool {
	return t.Compare(o) < 0
}

// Equal reports whether t and o denote the same identifier.
func (t PositionalTag) Equal(o PositionalTag) bool {
	return t.Compare(o) == 0
}

// ComparePositionalTags compares a and b, treating a nil pointer on
// either side as the virtual minimum (a == nil) or maximum (b == nil)
// sentinel used by List.Between's boundary arguments.
func ComparePositionalTags(a, b *PositionalTag) int {

	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return a.Compare(*b)
	}
}

// Encode returns a stable, canonical byte encoding of t such that the
// total order on decoded tags matches a lexicographic byte comparison
// of the encoded strings. Each Position is encoded as an 8-byte
// big-endian integer followed by its SiteID bytes and a NUL terminator;
// this assumes SiteID values never embed a NUL byte, true of any
// ordinary opaque site or tiebreaker identifier. The raw bytes are then
// hex-encoded so the result is printable and still order-preserving.
func (t PositionalTag) Encode() string {

	var raw []byte

	for _, pos := range t.Positions {
		var intBytes [8]byte
		u := uint64(pos.Int) ^ (1 << 63) // map signed range onto an order-preserving unsigned range
		for i := 7; i >= 0; i-- {
			intBytes[i] = byte(u)
			u >>= 8
		}
		raw = append(raw, intBytes[:]...)
		raw = append(raw, []byte(pos.SiteID)...)
		raw = append(raw, 0)
	}

	return hex.EncodeToString(raw)
}

// DecodePositionalTag reverses Encode.
func DecodePositionalTag(s string) (PositionalTag, error) {

	raw, err := hex.DecodeString(s)
	if err != nil {
		return PositionalTag{}, fmt.Errorf("crdt: invalid positional tag encoding: %w", err)
	}

	var positions []Position

	for len(raw) > 0 {

		if len(raw) < 9 {
			return PositionalTag{}, fmt.Errorf("crdt: truncated positional tag encoding")
		}

		u := uint64(0)
		for i := 0; i < 8; i++ {
			u = (u << 8) | uint64(raw[i])
		}
		n := int64(u ^ (1 << 63))

		raw = raw[8:]

		term := -1
		for i, b := range raw {
			if b == 0 {
				term = i
				break
			}
		}
		if term < 0 {
			return PositionalTag{}, fmt.Errorf("crdt: missing terminator in positional tag encoding")
		}

		positions = append(positions, Position{Int: n, SiteID: string(raw[:term])})
		raw = raw[term+1:]
	}

	return PositionalTag{Positions: positions}, nil
}

// String renders t in a human-readable form, used for logging and for
// the delimited wire encoding in package wire - never for ordering.
func (t PositionalTag) String() string {

	parts := make([]string, len(t.Positions))
	for i, pos := range t.Positions {
		parts[i] = fmt.Sprintf("%d:%s", pos.Int, pos.SiteID)
	}

	return strings.Join(parts, ",")
}

// Between returns a new positional tag strictly greater than a and
// strictly less than b. A nil a or b denotes the virtual minimum or
// maximum boundary. If siteID is empty, a weak pseudo-random integer
// breaks ties instead; if rnd is nil, a package default source is used.
//
// The algorithm walks a and b position by position. At the first depth
// where there is room between the two integer coordinates, a new
// integer is chosen uniformly in that gap and the walk stops. Where
// there is no room (adjacent or equal integers), a's position at that
// depth is copied verbatim into the result and the walk continues one
// level deeper. b only stops constraining that deeper walk once a and
// b's positions have actually diverged at this depth - by integer, or
// by SiteID on an integer tie - since up to that point the result's
// prefix is still identical to both a and b and b.Positions[depth+1]
// remains the real bound. When a and b share the exact same position
// at this depth (same Int and same SiteID, the common case when two
// inserts descend from the same ancestor bucket), b keeps bounding the
// walk.
func Between(a, b *PositionalTag, siteID string, rnd *rand.Rand) PositionalTag {

	if rnd == nil {
		rnd = defaultRand
	}

	var aPositions, bPositions []Position
	if a != nil {
		aPositions = a.Positions
	}
	if b != nil {
		bPositions = b.Positions
	}

	var prefix []Position
	bUnconstrained := b == nil

	for depth := 0; ; depth++ {

		aPos := Position{Int: 0, SiteID: ""}
		if depth < len(aPositions) {
			aPos = aPositions[depth]
		}

		hasB := !bUnconstrained && depth < len(bPositions)

		bInt := int64(math.MaxInt64)
		if hasB {
			bInt = bPositions[depth].Int
		}

		if bInt-aPos.Int > 1 {

			gap := bInt - aPos.Int - 1
			n := aPos.Int + 1 + int64(rnd.Int63n(gap))

			tiebreak := siteID
			if tiebreak == "" {
				tiebreak = fmt.Sprintf("%d", rnd.Int63())
			}

			out := make([]Position, len(prefix)+1)
			copy(out, prefix)
			out[len(prefix)] = Position{Int: n, SiteID: tiebreak}

			return PositionalTag{Positions: out}
		}

		// No room at this depth. b stops bounding the walk only once it
		// has actually diverged from a here - either it ran out of
		// positions, or its Position at this depth differs from a's. An
		// exact tie means the divergence, if any, is still to come.
		if !hasB || bPositions[depth] != aPos {
			bUnconstrained = true
		}

		prefix = append(prefix, aPos)
	}
}

// defaultRand is used by Between when no *rand.Rand is supplied. It is
// deliberately package-level and weak, mirroring the upstream library's
// own non-cryptographic tiebreaker (see Design Notes on injectable
// randomness for deterministic tests, which should always inject a
// seeded source instead of relying on this one).
var defaultRand = rand.New(rand.NewSource(time.Now().UnixNano()))

// sortTags sorts a slice of Tag in place and returns it, used by every
// view's exported *Tags accessors to give a deterministic ordering.
func sortTags(tags []Tag) []Tag {
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}
