package p2p

import (
	"net"
	"sync"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/peer"
)

// writeTimeout bounds the time spent writing a single frame to a peer.
const writeTimeout = 30 * time.Second

// Conn is an open connection to a peer. Sends are serialized so frames from
// concurrent broadcasts never interleave on the stream.
type Conn struct {
	Endpoint peer.Peer
	Outbound bool

	conn      net.Conn
	mu        sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func newConn(endpoint peer.Peer, conn net.Conn, outbound bool) *Conn {
	return &Conn{
		Endpoint: endpoint,
		Outbound: outbound,
		conn:     conn,
		done:     make(chan struct{}),
	}
}

// Send writes the message to the peer.
func (c *Conn) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}

	return WriteFrame(c.conn, msg)
}

// Close tears down the connection. It is safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})

	return err
}

// Done returns a channel closed when the connection is closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// String implements the Stringer interface for logging.
func (c *Conn) String() string {
	if c.Outbound {
		return "out:" + c.Endpoint.String()
	}

	return "in:" + c.Endpoint.String()
}
