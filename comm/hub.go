package comm

import (
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// ApplyFunc is called once per Message whose causal predecessors have
// already been delivered. It is the hub's only coupling to the
// replicated crdt views: the caller decodes payload as a wire.Envelope
// and plays it into whichever view it names.
type ApplyFunc func(payload string) error

// Hub manages one replica's view of the cluster: its own vector
// clock, open connections to peers, and a single queue, shared by all
// senders, of messages that arrived ahead of a causal predecessor.
type Hub struct {
	siteID string
	logger log.Logger
	apply  ApplyFunc

	vclockLock sync.Mutex
	vclock     map[string]uint32
	vclockLog  *os.File

	lock    sync.Mutex
	pending []*Message
	peers   map[string]net.Conn
}

// NewHub returns a Hub for siteID, tracking nodes as the set of
// replicas whose vector clock entries it should expect. vclockLog, if
// non-nil, is used to persist the vector clock across restarts - pass
// nil to keep it in memory only (as tests do).
func NewHub(siteID string, nodes []string, vclockLog *os.File, apply ApplyFunc, logger log.Logger) (*Hub, error) {

	h := &Hub{
		siteID:    siteID,
		logger:    logger,
		apply:     apply,
		vclock:    make(map[string]uint32),
		vclockLog: vclockLog,
		peers:     make(map[string]net.Conn),
	}

	for _, node := range nodes {
		h.vclock[node] = 0
	}
	h.vclock[siteID] = 0

	if err := h.loadVClock(); err != nil {
		return nil, fmt.Errorf("comm: loading persisted vector clock failed: %w", err)
	}

	return h, nil
}

// AddPeer registers an open connection to a remote replica under
// name, used by Broadcast to fan a locally-originated update out.
func (h *Hub) AddPeer(name string, conn net.Conn) {
	h.lock.Lock()
	h.peers[name] = conn
	h.lock.Unlock()
}

// RemovePeer closes and forgets the connection registered under name,
// if any.
func (h *Hub) RemovePeer(name string) {
	h.lock.Lock()
	if conn, ok := h.peers[name]; ok {
		conn.Close()
		delete(h.peers, name)
	}
	h.lock.Unlock()
}

// VClock returns a snapshot of the hub's current vector clock.
func (h *Hub) VClock() map[string]uint32 {

	h.vclockLock.Lock()
	defer h.vclockLock.Unlock()

	out := make(map[string]uint32, len(h.vclock))
	for node, value := range h.vclock {
		out[node] = value
	}

	return out
}

// Broadcast stamps payload with this replica's freshly-incremented
// vector clock and writes the resulting Message to every registered
// peer connection. Peers that fail to accept the write are closed and
// dropped rather than blocking the whole broadcast; the message is not
// resent to them.
func (h *Hub) Broadcast(payload string) (*Message, error) {

	msg := &Message{
		Sender:  h.siteID,
		VClock:  h.incVClock(),
		Payload: payload,
	}

	line := msg.String() + "\n"

	h.lock.Lock()
	defer h.lock.Unlock()

	for name, conn := range h.peers {
		if _, err := conn.Write([]byte(line)); err != nil {
			level.Warn(h.logger).Log(
				"msg", "dropping peer after failed write",
				"peer", name,
				"err", err,
			)
			conn.Close()
			delete(h.peers, name)
		}
	}

	return msg, nil
}

// Deliver is called once per Message read off a peer connection. It
// decides whether msg is causally ready: its
// sender's entry must be either already seen (a duplicate, applied as
// a no-op) or exactly the next expected one, and every other entry in
// msg's vector clock must not exceed what this replica has already
// observed. A message that is not yet ready is held in h.pending and
// retried every time a later Deliver call updates the vector clock.
func (h *Hub) Deliver(msg *Message) error {

	h.lock.Lock()
	defer h.lock.Unlock()

	h.pending = append(h.pending, msg)
	return h.drainPending()
}

// drainPending repeatedly scans h.pending for a message that has
// become causally ready, applies it, and repeats - since delivering
// one message can unblock another from the same or a different
// sender. It stops once a full pass makes no progress. Caller holds
// h.lock.
func (h *Hub) drainPending() error {

	for {
		progressed := false

		for i, msg := range h.pending {

			ready, isNext := h.isDeliverable(msg)
			if !ready {
				continue
			}

			if isNext {
				if err := h.apply(msg.Payload); err != nil {
					return fmt.Errorf("comm: applying payload from %s failed: %w", msg.Sender, err)
				}
			}

			h.advanceVClock(msg.VClock)
			if err := h.saveVClock(); err != nil {
				level.Error(h.logger).Log(
					"msg", "persisting vector clock after delivery failed",
					"err", err,
				)
			}

			h.pending = append(h.pending[:i], h.pending[i+1:]...)
			progressed = true
			break
		}

		if !progressed {
			return nil
		}
	}
}

// isDeliverable reports whether msg's causal predecessors have all
// already been applied, and whether msg itself is the next new update
// from its sender (as opposed to a harmless re-delivery of one
// already seen).
func (h *Hub) isDeliverable(msg *Message) (ready bool, isNext bool) {

	h.vclockLock.Lock()
	defer h.vclockLock.Unlock()

	senderSeen := h.vclock[msg.Sender]
	senderClaim := msg.VClock[msg.Sender]

	if senderClaim != senderSeen && senderClaim != senderSeen+1 {
		return false, false
	}

	for node, value := range msg.VClock {
		if node == msg.Sender {
			continue
		}
		if value > h.vclock[node] {
			return false, false
		}
	}

	return true, senderClaim == senderSeen+1
}

// advanceVClock merges remote into the hub's vector clock by pairwise
// maximum. Caller must not hold vclockLock.
func (h *Hub) advanceVClock(remote map[string]uint32) {

	h.vclockLock.Lock()
	defer h.vclockLock.Unlock()

	for node, value := range remote {
		if value > h.vclock[node] {
			h.vclock[node] = value
		}
	}
}

// PendingCount reports how many messages are currently held back
// awaiting a causal predecessor - exported for tests and for a
// metrics gauge.
func (h *Hub) PendingCount() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.pending)
}
