/*
Package comm implements network communication capabilities that are reliable and
causally-ordered among multiple replicas. Vector clocks are used to ensure causality.
Messages that arrive ahead of a causal predecessor are held in the hub's pending
queue, shared by all peers, until the gap closes. Payloads are wire.Envelope values describing an update to
apply to one of the replicated crdt views.
*/
package comm
