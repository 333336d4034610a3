package comm

import (
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"

	"github.com/driftline/crdt/wire"
)

// BroadcastEnvelope encodes e and broadcasts it to every peer the hub
// currently has a connection to, logging (but not failing) individual
// peer write errors - Broadcast already drops any peer it could not
// write to.
func BroadcastEnvelope(h *Hub, e wire.Envelope, logger log.Logger) (*Message, error) {

	raw, err := wire.EncodeEnvelope(e)
	if err != nil {
		return nil, errors.Wrap(err, "comm: encoding envelope for broadcast failed")
	}

	msg, err := h.Broadcast(string(raw))
	if err != nil {
		return nil, errors.Wrap(err, "comm: broadcasting message failed")
	}

	level.Debug(logger).Log(
		"msg", "broadcast CRDT update",
		"view", e.View,
		"op", e.Operation,
	)

	return msg, nil
}
