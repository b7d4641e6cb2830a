package database

import (
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/utxo"
)

// ReplayResult is the outcome of replaying a chain from genesis. Blocks and
// UTXOs hold the longest valid prefix of the chain and the ledger it
// produces. Err is nil when every block was accepted.
type ReplayResult struct {
	Blocks []Block
	UTXOs  *utxo.Set
	Err    error
}

// Accepted reports whether the whole chain was valid.
func (r ReplayResult) Accepted() bool {
	return r.Err == nil
}

// ValidPrefix returns the number of blocks that were accepted.
func (r ReplayResult) ValidPrefix() int {
	return len(r.Blocks)
}

// Replay validates the chain block by block against a fresh ledger. The
// replay stops at the first block that fails and the error wraps
// ErrChainRejected.
func Replay(blocks []Block, gen genesis.Genesis, evHandler func(v string, args ...any)) ReplayResult {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	set := utxo.New()

	for j := range blocks {
		var prev *Block
		if j > 0 {
			prev = &blocks[j-1]
		}

		if err := replayBlock(blocks[j], prev, set, gen, evHandler); err != nil {
			evHandler("database: Replay: blk[%d]: REJECTED: %s", blocks[j].Height, err)

			return ReplayResult{
				Blocks: blocks[:j:j],
				UTXOs:  set,
				Err:    fmt.Errorf("%w: block %d: %w", ErrChainRejected, j+1, err),
			}
		}
	}

	return ReplayResult{
		Blocks: blocks,
		UTXOs:  set,
	}
}

// replayBlock validates a single block of a chain being replayed.
func replayBlock(block Block, prev *Block, set *utxo.Set, gen genesis.Genesis, evHandler func(v string, args ...any)) error {
	if err := block.ValidateHeader(prev, gen.Difficulty, evHandler); err != nil {
		return err
	}

	return ValidateBlock(block, set, gen, evHandler)
}
