/*
Package crdt implements a small family of convergent replicated data
types (CRDTs) intended for peer-to-peer applications that exchange
operation messages over a reliable but possibly out-of-order broadcast:
a last-writer-wins Register, an observed-removed Set, a Logoot-ordered
List, and a best-effort diff/patch Text buffer.

CAUTION! Consider these two requirements, the same two the pluto project's
own op-based ORSet documents for its CRDT package:
  - For correct convergence we expect the broadcast of operation messages
    to all other replicas to be reliable, and - where tombstones are
    disabled via Options.NoTombstones - causally-ordered. Package comm
    provides one such broadcast harness.
  - Access to a single view's operations is expected to be synchronized
    explicitly by some outside measure (e.g. a mutex) if concurrent
    access from multiple goroutines is possible. None of the four views
    in this package synchronize access internally.

Register, Set, and List are true CRDTs: any delivery order of the same
multiset of operations converges to the same state. Text is not - see
the doc comment on the Text type in text.go for the caveat.
*/
package crdt
