package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/utxo"
	"github.com/shopspring/decimal"
)

// ErrNoTransactions is returned when a block is requested to be created
// and there are not enough transactions.
var ErrNoTransactions = errors.New("not enough transactions in mempool")

// =============================================================================

// MineNewBlock attempts to create a new block with a proper hash that can
// become the next block in the chain. The candidate is assembled under the
// state lock, the proof of work runs without it and the result is discarded
// when the chain tip moved while mining.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	if !s.IsMiningAllowed() {
		return database.Block{}, ErrNotSynced
	}

	s.evHandler("state: MineNewBlock: MINING: assemble candidate")

	prev, trans, err := s.assembleCandidate()
	if err != nil {
		return database.Block{}, err
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW: trans[%d]", len(trans))

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	block, err := database.POW(ctx, database.POWArgs{
		PrevBlock:  prev,
		Difficulty: s.genesis.Difficulty,
		Trans:      trans,
		EvHandler:  s.evHandler,
	})
	if err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: validate and update database")

	s.mu.Lock()
	defer s.mu.Unlock()

	tip, exists := s.db.LatestBlock()
	switch {
	case prev == nil && exists:
		return database.Block{}, fmt.Errorf("%w: a chain was adopted while mining the genesis block", database.ErrChainForked)
	case prev != nil && (!exists || tip.Hash != prev.Hash):
		return database.Block{}, fmt.Errorf("%w: the chain tip moved while mining", database.ErrChainForked)
	}

	if err := s.applyBlock(block); err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// assembleCandidate picks the transactions for the next block. An empty
// chain gets the genesis transaction paying the miner. Otherwise the best
// transactions of the mempool are filtered against a snapshot of the ledger
// and the reward transaction is appended last.
func (s *State) assembleCandidate() (*database.Block, []database.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest, exists := s.db.LatestBlock()
	if !exists {
		s.evHandler("state: assembleCandidate: empty chain: genesis block")
		return nil, []database.Tx{database.NewGenesisTx(s.minerAddress, s.genesis.GenesisReward)}, nil
	}

	height := latest.Height + 1

	// A block only carries user transactions once a full batch is pending.
	var picked []database.Tx
	if s.mempool.Count() >= s.genesis.TransPerBlock {
		picked = s.mempool.PickBest(s.genesis.TransPerBlock)
	}

	if len(picked) == 0 && !s.mineEmpty {
		return nil, nil, ErrNoTransactions
	}

	work := s.db.UTXOSnapshot()
	fees := decimal.Zero

	trans := make([]database.Tx, 0, len(picked)+1)
	for _, tx := range picked {
		if err := database.ValidateTransaction(tx); err != nil {
			s.evHandler("state: assembleCandidate: tx[%s]: DROPPED: %s", tx, err)
			s.mempool.Delete(tx)
			continue
		}

		inputs, err := database.CheckInputs(tx, work)
		if err != nil {
			s.evHandler("state: assembleCandidate: tx[%s]: DROPPED: %s", tx, err)
			s.mempool.Delete(tx)
			continue
		}

		for _, in := range tx.Inputs {
			work.Remove(in.Key())
		}
		for i, out := range tx.Outputs {
			work.Add(tx.OutputKey(i), utxo.UTXO{Value: out.Value, Address: out.Address})
		}

		fees = fees.Add(inputs.Sub(tx.TotalOutput()))
		trans = append(trans, tx)
	}

	reward := database.NewRewardTx(height, s.minerAddress, s.genesis.Reward(height).Add(fees))
	trans = append(trans, reward)

	return &latest, trans, nil
}

// applyBlock validates the block as the next block of the chain and applies
// it. The state lock must be held.
func (s *State) applyBlock(block database.Block) error {
	if err := s.db.ApplyBlock(block); err != nil {
		return err
	}

	s.evHandler("state: applyBlock: blk[%d]: remove from mempool", block.Height)

	for _, tx := range block.Trans {
		s.mempool.Delete(tx)
	}

	// Pending transactions spending outputs this block consumed can't be
	// mined anymore.
	removed := s.mempool.Prune(func(tx database.Tx) bool {
		for _, in := range tx.Inputs {
			if !s.db.IsUnspent(in.Key()) {
				return false
			}
		}
		return true
	})
	for _, tx := range removed {
		s.evHandler("state: applyBlock: tx[%s]: pruned from mempool", tx)
	}

	s.markBlockSeen(block)
	s.blockEvent(block)

	return nil
}
