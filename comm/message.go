package comm

import (
	"fmt"
	"strconv"
	"strings"
)

// Message represents a CRDT synchronization message between replicas.
// It carries the vector clock of the originating replica and a
// wire-encoded envelope to apply once it is causally ready for
// delivery.
type Message struct {
	Sender  string
	VClock  map[string]uint32
	Payload string
}

// InitMessage returns a fresh Message variable.
func InitMessage() *Message {

	return &Message{
		VClock: make(map[string]uint32),
	}
}

// String marshals m into the line-delimited string representation
// sent out on the wire: sender|vclock|payload. Payload is placed last
// and is never itself split on, so it may contain pipe symbols (it is
// already a JSON-encoded wire.Envelope).
func (m *Message) String() string {

	var vclockValues string

	for id, value := range m.VClock {
		if vclockValues == "" {
			vclockValues = fmt.Sprintf("%s:%d", id, value)
		} else {
			vclockValues = fmt.Sprintf("%s;%s:%d", vclockValues, id, value)
		}
	}

	return fmt.Sprintf("%s|%s|%s", m.Sender, vclockValues, m.Payload)
}

// ParseMessage takes in a raw message line received from a peer
// connection and parses it back into Message form.
func ParseMessage(raw string) (*Message, error) {

	m := InitMessage()

	raw = strings.TrimRight(raw, "\n")

	parts := strings.SplitN(raw, "|", 3)
	if len(parts) < 3 {
		return nil, fmt.Errorf("comm: invalid sync message: expected sender|vclock|payload")
	}

	if len(parts[0]) < 1 {
		return nil, fmt.Errorf("comm: invalid sync message: sender name is missing")
	}
	m.Sender = parts[0]

	if parts[1] != "" {
		for _, pair := range strings.Split(parts[1], ";") {

			entry := strings.Split(pair, ":")
			if len(entry) < 2 {
				return nil, fmt.Errorf("comm: invalid vector clock element %q", pair)
			}

			num, err := strconv.ParseUint(entry[1], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("comm: invalid vector clock value in %q: %w", pair, err)
			}

			m.VClock[entry[0]] = uint32(num)
		}
	}

	m.Payload = parts[2]

	return m, nil
}
