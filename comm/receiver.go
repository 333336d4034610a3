package comm

import (
	"bufio"
	"net"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// Listen opens addr and accepts incoming peer connections, handing
// each one to h.handleConn in its own goroutine, until the listener
// is closed. It returns the net.Listener so callers can Close it to
// shut the replica down.
func Listen(addr string, h *Hub, logger log.Logger) (net.Listener, error) {

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				level.Info(logger).Log("msg", "receiver listener closed", "err", err)
				return
			}
			go h.handleConn(conn, logger)
		}
	}()

	return ln, nil
}

// handleConn reads line-delimited Messages off conn until it is
// closed, delivering each to the hub; a line that fails to parse is
// logged and skipped. The
// connection is also registered as a peer under the first sender name
// seen on it, so a later Broadcast can reuse it to send back.
func (h *Hub) handleConn(conn net.Conn, logger log.Logger) {

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var senderName string

	for scanner.Scan() {

		msg, err := ParseMessage(scanner.Text())
		if err != nil {
			level.Warn(logger).Log("msg", "discarding malformed sync message", "err", err)
			continue
		}

		if senderName == "" {
			senderName = msg.Sender
			h.AddPeer(senderName, conn)
		}

		if err := h.Deliver(msg); err != nil {
			level.Error(logger).Log("msg", "delivering sync message failed", "sender", msg.Sender, "err", err)
		}
	}

	if err := scanner.Err(); err != nil {
		level.Warn(logger).Log("msg", "peer connection read error", "err", err)
	}

	if senderName != "" {
		h.RemovePeer(senderName)
	}
}
