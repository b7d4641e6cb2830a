// Package utxo maintains the set of unspent transaction outputs that are
// available to be consumed by new transactions.
package utxo

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// Key identifies an output by the transaction that created it and the
// position of the output inside that transaction.
type Key struct {
	TxID  string
	Index int
}

// String implements the Stringer interface for logging.
func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.TxID, k.Index)
}

// UTXO represents an unspent output.
type UTXO struct {
	Value   decimal.Decimal
	Address string
}

// Entry pairs a key with its output for ordered listings.
type Entry struct {
	Key  Key
	UTXO UTXO
}

// =============================================================================

// Set manages the unspent outputs. Callers own atomicity across several
// calls: validate before applying, or stage changes on a Snapshot and
// commit with Replace.
type Set struct {
	mu    sync.RWMutex
	utxos map[Key]UTXO
}

// New constructs an empty set.
func New() *Set {
	return &Set{
		utxos: make(map[Key]UTXO),
	}
}

// NewFromEntries constructs a set holding the specified entries.
func NewFromEntries(entries []Entry) *Set {
	s := New()
	for _, e := range entries {
		s.utxos[e.Key] = e.UTXO
	}

	return s
}

// Contains reports whether the key is unspent.
func (s *Set) Contains(key Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.utxos[key]
	return exists
}

// Get returns the output for the specified key.
func (s *Set) Get(key Key) (UTXO, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, exists := s.utxos[key]
	return u, exists
}

// Add registers the output under the key, replacing any prior entry.
func (s *Set) Add(key Key, u UTXO) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.utxos[key] = u
}

// Remove consumes the output. Removing an absent key is a no-op.
func (s *Set) Remove(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.utxos, key)
}

// Clear removes every output from the set.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.utxos = make(map[Key]UTXO)
}

// Len returns the number of unspent outputs.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.utxos)
}

// Snapshot returns an independent copy of the set. Changes to the copy
// are not seen by the original.
func (s *Set) Snapshot() *Set {
	return &Set{
		utxos: s.Copy(),
	}
}

// Replace makes the contents of this set match the other set. It is used
// to commit changes that were staged on a snapshot.
func (s *Set) Replace(other *Set) {
	utxos := other.Copy()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.utxos = utxos
}

// Copy returns a copy of the underlying map.
func (s *Set) Copy() map[Key]UTXO {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cpy := make(map[Key]UTXO, len(s.utxos))
	for key, u := range s.utxos {
		cpy[key] = u
	}

	return cpy
}

// Entries returns the outputs ordered by transaction id and index.
func (s *Set) Entries() []Entry {
	s.mu.RLock()
	entries := make([]Entry, 0, len(s.utxos))
	for key, u := range s.utxos {
		entries = append(entries, Entry{Key: key, UTXO: u})
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Key.TxID != entries[j].Key.TxID {
			return entries[i].Key.TxID < entries[j].Key.TxID
		}
		return entries[i].Key.Index < entries[j].Key.Index
	})

	return entries
}

// Equal reports whether both sets hold the same outputs.
func (s *Set) Equal(other *Set) bool {
	a := s.Copy()
	b := other.Copy()

	if len(a) != len(b) {
		return false
	}

	for key, u := range a {
		o, exists := b[key]
		if !exists || o.Address != u.Address || !o.Value.Equal(u.Value) {
			return false
		}
	}

	return true
}

// ForAddress returns the outputs owned by the address, largest value first.
func (s *Set) ForAddress(address string) []Entry {
	s.mu.RLock()
	var entries []Entry
	for key, u := range s.utxos {
		if u.Address == address {
			entries = append(entries, Entry{Key: key, UTXO: u})
		}
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if c := entries[i].UTXO.Value.Cmp(entries[j].UTXO.Value); c != 0 {
			return c > 0
		}
		if entries[i].Key.TxID != entries[j].Key.TxID {
			return entries[i].Key.TxID < entries[j].Key.TxID
		}
		return entries[i].Key.Index < entries[j].Key.Index
	})

	return entries
}

// Balance sums the outputs owned by any of the addresses.
func (s *Set) Balance(addresses ...string) decimal.Decimal {
	owned := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		owned[addr] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, u := range s.utxos {
		if _, exists := owned[u.Address]; exists {
			total = total.Add(u.Value)
		}
	}

	return total
}
