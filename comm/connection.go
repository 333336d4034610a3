package comm

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"
)

// DialOptions configures ReliableDial's retry behaviour.
type DialOptions struct {
	// Retry is how long to wait between connection attempts while the
	// remote end is refusing connections.
	Retry time.Duration
	// MaxAttempts bounds how many attempts ReliableDial makes before
	// giving up. Zero means retry indefinitely.
	MaxAttempts int
}

// DefaultDialOptions mirrors the retry cadence the teacher's own
// ReliableConnect used for its TLS dial loop.
var DefaultDialOptions = DialOptions{
	Retry:       500 * time.Millisecond,
	MaxAttempts: 0,
}

// ReliableDial attempts to connect to addr, retrying on connection
// refused - the common case right after a peer process has been
// (re)started and has not yet opened its listener - as long as
// opts.MaxAttempts has not been exhausted.
func ReliableDial(remoteName, addr string, opts DialOptions) (net.Conn, error) {

	attempts := 0

	for {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			return conn, nil
		}

		attempts++
		if opts.MaxAttempts > 0 && attempts >= opts.MaxAttempts {
			return nil, fmt.Errorf("comm: could not connect to replica %q at %s after %d attempts: %w", remoteName, addr, attempts, err)
		}

		if !isRefused(err) {
			return nil, fmt.Errorf("comm: could not connect to replica %q at %s: %w", remoteName, addr, err)
		}

		time.Sleep(opts.Retry)
	}
}

// isRefused reports whether err looks like a connection-refused
// error, the one case ReliableDial treats as worth retrying rather
// than failing fast on.
func isRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}
