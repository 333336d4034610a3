package comm

import (
	"net"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/require"
)

// TestListenBroadcastDelivery spins up two hubs over real loopback
// TCP connections and checks that a message broadcast from one side
// is delivered, in order, on the other.
func TestListenBroadcastDelivery(t *testing.T) {

	var delivered []string
	receiverHub, err := NewHub("receiver", []string{"sender"}, nil, func(payload string) error {
		delivered = append(delivered, payload)
		return nil
	}, log.NewNopLogger())
	require.NoError(t, err)

	ln, err := Listen("127.0.0.1:0", receiverHub, log.NewNopLogger())
	require.NoError(t, err)
	defer ln.Close()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	senderHub, err := NewHub("sender", []string{"receiver"}, nil, func(string) error { return nil }, log.NewNopLogger())
	require.NoError(t, err)
	senderHub.AddPeer("receiver", conn)

	_, err = senderHub.Broadcast("update-one")
	require.NoError(t, err)
	_, err = senderHub.Broadcast("update-two")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(delivered) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, []string{"update-one", "update-two"}, delivered)
}
