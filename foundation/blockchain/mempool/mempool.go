// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"errors"
	"sync"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/mempool/selector"
	"github.com/ardanlabs/utxochain/foundation/blockchain/utxo"
)

// Mempool represents a cache of pending transactions keyed by transaction id.
type Mempool struct {
	pool     map[string]selector.Entry
	seq      uint64
	mu       sync.RWMutex
	selectFn selector.Func
}

// New constructs a new mempool using the default sort strategy.
func New() (*Mempool, error) {
	return NewWithStrategy(selector.StrategyFee)
}

// NewWithStrategy constructs a new mempool with specified sort strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pool:     make(map[string]selector.Entry),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds or replaces a transaction from the mempool. A replaced
// transaction keeps its place in the arrival order.
func (mp *Mempool) Upsert(tx database.Tx) (int, error) {
	if tx.ID == "" {
		return 0, errors.New("transaction has no id")
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	entry, exists := mp.pool[tx.ID]
	if !exists {
		mp.seq++
		entry.Seq = mp.seq
	}
	entry.Tx = tx

	mp.pool[tx.ID] = entry

	return len(mp.pool), nil
}

// Delete removed a transaction from the mempool.
func (mp *Mempool) Delete(tx database.Tx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, tx.ID)
}

// Contains reports whether the transaction is pending.
func (mp *Mempool) Contains(id string) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.pool[id]
	return exists
}

// Spends reports whether a pending transaction consumes the output.
func (mp *Mempool) Spends(key utxo.Key) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	for _, entry := range mp.pool {
		for _, in := range entry.Tx.Inputs {
			if in.Key() == key {
				return true
			}
		}
	}

	return false
}

// SpentKeys returns the set of outputs consumed by pending transactions.
func (mp *Mempool) SpentKeys() map[utxo.Key]struct{} {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	keys := make(map[utxo.Key]struct{})
	for _, entry := range mp.pool {
		for _, in := range entry.Tx.Inputs {
			keys[in.Key()] = struct{}{}
		}
	}

	return keys
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]selector.Entry)
}

// Copy returns the pending transactions in arrival order.
func (mp *Mempool) Copy() []database.Tx {
	fifo, _ := selector.Retrieve(selector.StrategyFIFO)
	return fifo(mp.entries(), -1)
}

// PickBest uses the configured sort strategy to return the next set
// of transactions for the next block. The transactions stay in the pool.
func (mp *Mempool) PickBest(howMany int) []database.Tx {
	return mp.selectFn(mp.entries(), howMany)
}

// TakeTop removes and returns the next set of transactions for the next
// block using the configured sort strategy.
func (mp *Mempool) TakeTop(howMany int) []database.Tx {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	trans := mp.selectFn(mp.entriesLocked(), howMany)
	for _, tx := range trans {
		delete(mp.pool, tx.ID)
	}

	return trans
}

// Prune removes every transaction the keep function rejects and returns
// the removed transactions.
func (mp *Mempool) Prune(keep func(tx database.Tx) bool) []database.Tx {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var removed []database.Tx
	for id, entry := range mp.pool {
		if !keep(entry.Tx) {
			delete(mp.pool, id)
			removed = append(removed, entry.Tx)
		}
	}

	return removed
}

// =============================================================================

// entries returns a copy of the pool entries.
func (mp *Mempool) entries() []selector.Entry {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.entriesLocked()
}

// entriesLocked returns a copy of the pool entries. The caller must hold
// the lock.
func (mp *Mempool) entriesLocked() []selector.Entry {
	entries := make([]selector.Entry, 0, len(mp.pool))
	for _, entry := range mp.pool {
		entries = append(entries, entry)
	}

	return entries
}
