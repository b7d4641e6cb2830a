package state

import (
	"sync"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
)

// maxSeen bounds the number of ids remembered by a seen set. The set starts
// over once the bound is reached.
const maxSeen = 100_000

// seenSet remembers the ids of the blocks or transactions already processed
// so gossip is handled once per node.
type seenSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newSeenSet() *seenSet {
	return &seenSet{
		ids: make(map[string]struct{}),
	}
}

// Add marks the id as seen and reports whether it was unseen.
func (ss *seenSet) Add(id string) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if _, exists := ss.ids[id]; exists {
		return false
	}

	if len(ss.ids) >= maxSeen {
		ss.ids = make(map[string]struct{})
	}

	ss.ids[id] = struct{}{}

	return true
}

// Contains reports whether the id was seen.
func (ss *seenSet) Contains(id string) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	_, exists := ss.ids[id]
	return exists
}

// =============================================================================

// markChainSeen records every block and transaction of the chain.
func (s *State) markChainSeen(blocks []database.Block) {
	for _, block := range blocks {
		s.markBlockSeen(block)
	}
}

// markBlockSeen records the block and its transactions.
func (s *State) markBlockSeen(block database.Block) {
	s.seenBlocks.Add(block.Hash)
	for _, tx := range block.Trans {
		s.seenTxs.Add(tx.ID)
	}
}

// upsertMempool adds a validated transaction to the mempool. The fee is
// recorded as the difference between the inputs and the outputs.
func (s *State) upsertMempool(tx database.Tx) error {
	inputs, err := database.CheckInputs(tx, s.db.UTXOSnapshot())
	if err != nil {
		return err
	}

	tx.Fee = inputs.Sub(tx.TotalOutput())

	n, err := s.mempool.Upsert(tx)
	if err != nil {
		return err
	}

	s.evHandler("state: upsertMempool: tx[%s]: mempool[%d]", tx, n)

	return nil
}
