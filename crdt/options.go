package crdt

import "math/rand"

// Options configures a view at construction time. All four constructors
// (NewRegister, NewSet, NewList, NewText) accept the same Options shape.
type Options struct {

	// NoTombstones disables tombstone tracking entirely. Out-of-order
	// receipt of the "add before remove" pattern may then produce
	// divergence - that risk becomes the caller's responsibility, in
	// exchange for bounded memory use.
	NoTombstones bool

	// SiteID, when set, is appended by List.Between as the tiebreaker
	// for newly minted positional tags instead of a weak random
	// integer. Unused by Register, Set, and Text.
	SiteID string

	// Rand, when set, is the source List.Between draws its random
	// tiebreakers and gap selections from. Tests should always set this
	// to a seeded source to keep results reproducible; production code
	// may leave it nil to fall back to a process-wide weak source.
	Rand *rand.Rand
}
