package state

import (
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
)

// ChainDecision is the outcome of comparing a peer chain with the local one.
type ChainDecision int

// Set of chain decisions.
const (
	ChainIgnored  ChainDecision = iota // Same length, the first chain seen wins.
	ChainAdopted                       // Longer and valid, it replaced the local chain.
	ChainBehind                        // Shorter, the peer should get the local chain.
	ChainRejected                      // Longer but invalid, the local chain is kept.
)

// String implements the Stringer interface for logging.
func (cd ChainDecision) String() string {
	switch cd {
	case ChainAdopted:
		return "adopted"
	case ChainBehind:
		return "behind"
	case ChainRejected:
		return "rejected"
	}

	return "ignored"
}

// =============================================================================

// ProcessPeerChain applies the longest chain rule to a chain received from a
// peer. A longer chain is replayed from genesis against a fresh ledger and
// replaces the local chain only when every block is valid. When a block
// fails the local chain and ledger are left untouched and the returned error
// wraps database.ErrChainRejected.
func (s *State) ProcessPeerChain(blocks []database.Block) (ChainDecision, error) {
	s.evHandler("state: ProcessPeerChain: started: blocks[%d]", len(blocks))

	if !s.IsMiningAllowed() {
		return ChainIgnored, ErrNotSynced
	}

	decision, err := s.replaceChain(blocks)

	s.evHandler("state: ProcessPeerChain: completed: decision[%s]", decision)

	if decision == ChainAdopted {

		// The block being mined now extends a chain that doesn't exist.
		s.Worker.SignalCancelMining()

		if tip, exists := s.RetrieveLatestBlock(); exists {
			s.blockEvent(tip)
		}
	}

	return decision, err
}

func (s *State) replaceChain(blocks []database.Block) (ChainDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	local := s.db.Height()

	switch {
	case len(blocks) == local:
		return ChainIgnored, nil

	case len(blocks) < local:
		return ChainBehind, nil
	}

	s.evHandler("state: replaceChain: replay: local[%d] peer[%d]", local, len(blocks))

	result := database.Replay(blocks, s.genesis, s.evHandler)
	if !result.Accepted() {
		s.evHandler("state: replaceChain: REJECTED: %s", result.Err)
		return ChainRejected, result.Err
	}

	s.db.Reset(result)
	s.markChainSeen(result.Blocks)

	// Keep the pending transactions that can still be mined on top of the
	// adopted chain.
	removed := s.mempool.Prune(func(tx database.Tx) bool {
		for _, in := range tx.Inputs {
			if !s.db.IsUnspent(in.Key()) {
				return false
			}
		}

		return true
	})

	s.evHandler("state: replaceChain: adopted: blocks[%d]: mempool pruned[%d]", len(result.Blocks), len(removed))

	return ChainAdopted, nil
}
