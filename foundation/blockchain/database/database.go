// Package database handles all the lower level support for maintaining the
// blockchain in memory: the ordered chain of blocks and the ledger of unspent
// outputs those blocks produce.
package database

import (
	"fmt"
	"sync"

	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/utxo"
	"github.com/shopspring/decimal"
)

// Database manages the chain of blocks and the unspent outputs.
type Database struct {
	mu sync.RWMutex

	genesis   genesis.Genesis
	blocks    []Block
	utxos     *utxo.Set
	evHandler func(v string, args ...any)
}

// New constructs an empty database for the specified genesis parameters.
func New(genesis genesis.Genesis, evHandler func(v string, args ...any)) *Database {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	return &Database{
		genesis:   genesis,
		utxos:     utxo.New(),
		evHandler: evHandler,
	}
}

// Genesis returns the consensus parameters of the database.
func (db *Database) Genesis() genesis.Genesis {
	return db.genesis
}

// Height returns the number of blocks in the chain.
func (db *Database) Height() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.blocks)
}

// LatestBlock returns the tip of the chain. False is returned when the
// chain is empty.
func (db *Database) LatestBlock() (Block, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if len(db.blocks) == 0 {
		return Block{}, false
	}

	return db.blocks[len(db.blocks)-1], true
}

// Blocks returns a copy of the chain.
func (db *Database) Blocks() []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	blocks := make([]Block, len(db.blocks))
	copy(blocks, db.blocks)

	return blocks
}

// BlockByHeight returns the block at the specified height.
func (db *Database) BlockByHeight(height int) (Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if height < 1 || height > len(db.blocks) {
		return Block{}, fmt.Errorf("block %d not found, height %d", height, len(db.blocks))
	}

	return db.blocks[height-1], nil
}

// ApplyBlock validates the block as the next block of the chain and applies
// it to the ledger. The database is unchanged when validation fails.
func (db *Database) ApplyBlock(block Block) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var prev *Block
	if len(db.blocks) > 0 {
		prev = &db.blocks[len(db.blocks)-1]
	}

	if err := block.ValidateHeader(prev, db.genesis.Difficulty, db.evHandler); err != nil {
		return err
	}

	if err := ValidateBlock(block, db.utxos, db.genesis, db.evHandler); err != nil {
		return err
	}

	db.blocks = append(db.blocks, block)

	return nil
}

// Reset replaces the chain and ledger with the result of a replay.
func (db *Database) Reset(result ReplayResult) {
	blocks := make([]Block, len(result.Blocks))
	copy(blocks, result.Blocks)

	utxos := result.UTXOs
	if utxos == nil {
		utxos = utxo.New()
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.blocks = blocks
	db.utxos = utxos.Snapshot()
}

// =============================================================================

// UTXOSnapshot returns an independent copy of the ledger.
func (db *Database) UTXOSnapshot() *utxo.Set {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.utxos.Snapshot()
}

// IsUnspent reports whether the output is in the ledger.
func (db *Database) IsUnspent(key utxo.Key) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.utxos.Contains(key)
}

// Balance sums the outputs owned by the addresses.
func (db *Database) Balance(addresses ...string) decimal.Decimal {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.utxos.Balance(addresses...)
}

// UnspentFor returns the outputs owned by the address, largest first.
func (db *Database) UnspentFor(address string) []utxo.Entry {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.utxos.ForAddress(address)
}

// TransactionsFor returns the transactions of the chain that pay the
// address or spend one of its outputs, in chain order.
func (db *Database) TransactionsFor(address string) []Tx {
	db.mu.RLock()
	defer db.mu.RUnlock()

	// Track the outputs created for this address to recognize spends.
	owned := make(map[utxo.Key]struct{})

	var trans []Tx
	for _, block := range db.blocks {
		for _, tx := range block.Trans {
			match := false

			for _, in := range tx.Inputs {
				if _, exists := owned[in.Key()]; exists {
					match = true
					break
				}
			}

			for i, out := range tx.Outputs {
				if out.Address == address {
					owned[tx.OutputKey(i)] = struct{}{}
					match = true
				}
			}

			if match {
				trans = append(trans, tx)
			}
		}
	}

	return trans
}
