package p2p

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/peer"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentDials limits the number of dials a discovery sweep runs at
// the same time.
const maxConcurrentDials = 4

// ErrShutdown is returned when the transport is used after Shutdown.
var ErrShutdown = errors.New("transport is shut down")

// Handler is the behavior required to receive the traffic of the transport.
// The methods are called from the goroutine reading the connection.
type Handler interface {
	HandleConnect(conn *Conn)
	HandleMessage(conn *Conn, msg Message)
}

// Config represents the configuration required to start the transport.
type Config struct {
	SelfPort    int
	Range       peer.Range
	DialTimeout time.Duration
	Handler     Handler
	EvHandler   func(v string, args ...any)
}

// Transport manages the listener and the connections to the peers.
type Transport struct {
	cfg   Config
	ev    func(v string, args ...any)
	known *peer.Set

	mu       sync.RWMutex
	listener net.Listener
	conns    map[*Conn]struct{}
	closed   bool

	wg sync.WaitGroup
}

// New constructs a transport for use.
func New(cfg Config) *Transport {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	return &Transport{
		cfg:   cfg,
		ev:    ev,
		known: peer.NewSet(),
		conns: make(map[*Conn]struct{}),
	}
}

// Listen starts accepting inbound connections on the specified address.
func (t *Transport) Listen(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		l.Close()
		return ErrShutdown
	}
	t.listener = l
	t.wg.Add(1)
	t.mu.Unlock()

	t.ev("p2p: Listen: started: addr[%s]", l.Addr())

	go func() {
		defer t.wg.Done()
		t.acceptLoop(l)
	}()

	return nil
}

// Addr returns the address of the listener or nil when not listening.
func (t *Transport) Addr() net.Addr {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.listener == nil {
		return nil
	}

	return t.listener.Addr()
}

// Dial opens an outbound connection to the peer.
func (t *Transport) Dial(ctx context.Context, endpoint peer.Peer) (*Conn, error) {
	d := net.Dialer{Timeout: t.cfg.DialTimeout}

	nc, err := d.DialContext(ctx, "tcp", endpoint.Host)
	if err != nil {
		return nil, err
	}

	conn := newConn(endpoint, nc, true)
	if err := t.register(conn); err != nil {
		nc.Close()
		return nil, err
	}

	t.known.Add(endpoint)
	t.ev("p2p: Dial: connected: peer[%s]", endpoint)

	t.serve(conn)

	return conn, nil
}

// Discover sweeps the port range once and dials every candidate that isn't
// already connected. It returns the number of new connections.
func (t *Transport) Discover(ctx context.Context) int {
	var mu sync.Mutex
	var connected int

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDials)

	for _, candidate := range t.cfg.Range.Candidates(t.cfg.SelfPort) {
		if t.known.Contains(candidate) {
			continue
		}

		g.Go(func() error {
			if _, err := t.Dial(ctx, candidate); err != nil {
				return nil
			}

			mu.Lock()
			connected++
			mu.Unlock()

			return nil
		})
	}

	g.Wait()

	if connected > 0 {
		t.ev("p2p: Discover: new connections[%d]: total[%d]", connected, t.Count())
	}

	return connected
}

// Broadcast delivers the message to every connected peer, each delivery in
// its own goroutine. A failed delivery closes that connection.
func (t *Transport) Broadcast(msg Message) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return
	}

	for conn := range t.conns {
		t.wg.Add(1)
		go t.deliver(conn, msg)
	}
}

// Send delivers the message to a single peer in its own goroutine. Handlers
// reply through Send so the goroutine reading the connection never blocks
// on a write.
func (t *Transport) Send(conn *Conn, msg Message) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return
	}

	t.wg.Add(1)
	go t.deliver(conn, msg)
}

// Conns returns the open connections.
func (t *Transport) Conns() []*Conn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	conns := make([]*Conn, 0, len(t.conns))
	for conn := range t.conns {
		conns = append(conns, conn)
	}

	return conns
}

// Count returns the number of open connections.
func (t *Transport) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.conns)
}

// KnownPeers returns the endpoints this node dialed and is connected to.
func (t *Transport) KnownPeers() []peer.Peer {
	return t.known.List()
}

// Shutdown closes the listener and every connection and waits for the
// transport goroutines to finish.
func (t *Transport) Shutdown() error {
	t.mu.Lock()
	t.closed = true
	l := t.listener
	conns := make([]*Conn, 0, len(t.conns))
	for conn := range t.conns {
		conns = append(conns, conn)
	}
	t.mu.Unlock()

	var err error
	if l != nil {
		err = l.Close()
	}

	for _, conn := range conns {
		conn.Close()
	}

	t.wg.Wait()

	t.ev("p2p: Shutdown: completed")

	return err
}

// =============================================================================

func (t *Transport) acceptLoop(l net.Listener) {
	for {
		nc, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			t.ev("p2p: acceptLoop: ERROR: %s", err)
			continue
		}

		conn := newConn(peer.New(nc.RemoteAddr().String()), nc, false)
		if err := t.register(conn); err != nil {
			nc.Close()
			return
		}

		t.ev("p2p: acceptLoop: accepted: peer[%s]", conn.Endpoint)

		t.serve(conn)
	}
}

// register tracks the connection and accounts for the goroutine that will
// serve it.
func (t *Transport) register(conn *Conn) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrShutdown
	}

	t.conns[conn] = struct{}{}
	t.wg.Add(1)

	return nil
}

func (t *Transport) unregister(conn *Conn) {
	t.mu.Lock()
	delete(t.conns, conn)
	t.mu.Unlock()

	if conn.Outbound {
		t.known.Remove(conn.Endpoint)
	}
}

func (t *Transport) deliver(conn *Conn, msg Message) {
	defer t.wg.Done()

	if err := conn.Send(msg); err != nil {
		t.ev("p2p: deliver: %s: conn[%s]: ERROR: %s", msg.Kind(), conn, err)
		conn.Close()
	}
}

// serve starts the goroutine reading frames from the connection until the
// connection fails or is closed. The goroutine was accounted for by register.
func (t *Transport) serve(conn *Conn) {
	go func() {
		defer t.wg.Done()
		defer t.unregister(conn)
		defer conn.Close()

		if t.cfg.Handler != nil {
			t.cfg.Handler.HandleConnect(conn)
		}

		for {
			msg, err := ReadFrame(conn.conn)
			if err != nil {
				if errors.Is(err, ErrMalformed) {
					t.ev("p2p: serve: conn[%s]: DROPPED: %s", conn, err)
					continue
				}

				if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
					t.ev("p2p: serve: conn[%s]: ERROR: %s", conn, err)
				}

				t.ev("p2p: serve: conn[%s]: disconnected", conn)
				return
			}

			if t.cfg.Handler != nil {
				t.cfg.Handler.HandleMessage(conn, msg)
			}
		}
	}()
}
