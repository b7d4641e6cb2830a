package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
)

// ErrAlreadySeen is returned when a block or transaction was already
// processed by this node.
var ErrAlreadySeen = errors.New("already seen")

// =============================================================================

// ProcessProposedBlock takes a block received from a peer, validates it and
// if that passes, adds the block to the local blockchain. The block must be
// the next block of the local chain. Accepted blocks cancel the current
// mining operation and are shared with the other peers.
func (s *State) ProcessProposedBlock(block database.Block) error {
	s.evHandler("state: ProcessProposedBlock: started: prevBlk[%s]: newBlk[%s]: numTrans[%d]", block.PrevHash, block.Hash, len(block.Trans))
	defer s.evHandler("state: ProcessProposedBlock: completed: newBlk[%s]", block.Hash)

	if !s.IsMiningAllowed() {
		return ErrNotSynced
	}

	if s.seenBlocks.Contains(block.Hash) {
		return fmt.Errorf("block %s: %w", block.Hash, ErrAlreadySeen)
	}

	if err := s.validateUpdateDatabase(block); err != nil {
		return err
	}

	// If the runMiningOperation function is being executed it needs to stop
	// immediately since the block it is mining can't extend the chain anymore.
	s.Worker.SignalCancelMining()
	s.Worker.SignalShareBlock(block)

	return nil
}

// validateUpdateDatabase takes the block and validates the block against the
// consensus rules. If the block passes, then the state of the node is updated
// and the block is marked as seen. A block failing validation is not marked,
// its hash field is only trusted once the header was recomputed.
func (s *State) validateUpdateDatabase(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The same block can arrive from several peers at once.
	if s.seenBlocks.Contains(block.Hash) {
		return fmt.Errorf("block %s: %w", block.Hash, ErrAlreadySeen)
	}

	if exp := s.db.Height() + 1; block.Height != exp {
		return fmt.Errorf("%w: got block %d, exp %d", database.ErrChainForked, block.Height, exp)
	}

	s.evHandler("state: validateUpdateDatabase: validate block")

	return s.applyBlock(block)
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	header := struct {
		Height     int    `json:"height"`
		PrevHash   string `json:"prev_hash"`
		Timestamp  int64  `json:"timestamp"`
		Nonce      uint64 `json:"nonce"`
		MerkleRoot string `json:"merkle_root"`
		Miner      string `json:"miner"`
	}{
		Height:     block.Height,
		PrevHash:   block.PrevHash,
		Timestamp:  block.Timestamp,
		Nonce:      block.Nonce,
		MerkleRoot: block.MerkleRoot,
		Miner:      block.MinerAddress,
	}

	blockHeaderJSON, err := json.Marshal(header)
	if err != nil {
		blockHeaderJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	blockTransJSON, err := json.Marshal(database.NewBlockData(block).Trans)
	if err != nil {
		blockTransJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: {"hash":%q,"header":%s,"trans":%s}`, block.Hash, string(blockHeaderJSON), string(blockTransJSON))
}
