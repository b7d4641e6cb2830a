// Package peer identifies the nodes of the network by their endpoint, tracks
// the ones a node is connected to and the port range scanned for new ones.
package peer

import (
	"net"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Peer represents information about a Node in the network.
type Peer struct {
	Host string
}

// New constructs a peer for the host:port endpoint.
func New(host string) Peer {
	return Peer{
		Host: host,
	}
}

// NewFromPort constructs a peer for the port on the specified host.
func NewFromPort(host string, port int) Peer {
	return New(net.JoinHostPort(host, strconv.Itoa(port)))
}

// String implements the Stringer interface.
func (p Peer) String() string {
	return p.Host
}

// =============================================================================

// Range describes the block of ports nodes on a host listen on.
type Range struct {
	Host    string
	MinPort int
	MaxPort int
}

// Candidates returns the peers in the range except the one listening on
// the self port.
func (r Range) Candidates(self int) []Peer {
	var peers []Peer
	for port := r.MinPort; port <= r.MaxPort; port++ {
		if port == self {
			continue
		}
		peers = append(peers, NewFromPort(r.Host, port))
	}

	return peers
}

// Contains reports whether the port is part of the range.
func (r Range) Contains(port int) bool {
	return port >= r.MinPort && port <= r.MaxPort
}

// =============================================================================

// Set maintains the peers a node is connected to together with the time the
// connection was made.
type Set struct {
	mu    sync.RWMutex
	since map[Peer]time.Time
}

// NewSet constructs an empty set of peers.
func NewSet() *Set {
	return &Set{
		since: make(map[Peer]time.Time),
	}
}

// Add records the peer as connected now. It reports false when the peer was
// already connected.
func (s *Set) Add(p Peer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.since[p]; exists {
		return false
	}

	s.since[p] = time.Now()
	return true
}

// Remove forgets the peer.
func (s *Set) Remove(p Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.since, p)
}

// Contains reports whether the peer is connected.
func (s *Set) Contains(p Peer) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.since[p]
	return exists
}

// Len returns the number of connected peers.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.since)
}

// Since returns the time the peer connected.
func (s *Set) Since(p Peer) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.since[p]
	return t, exists
}

// List returns the connected peers ordered by host.
func (s *Set) List() []Peer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	peers := make([]Peer, 0, len(s.since))
	for p := range s.since {
		peers = append(peers, p)
	}

	sort.Slice(peers, func(i, j int) bool { return peers[i].Host < peers[j].Host })

	return peers
}
