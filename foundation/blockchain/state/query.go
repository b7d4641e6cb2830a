package state

import (
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/utxo"
	"github.com/shopspring/decimal"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = -1

// NodeStatus is a summary of the node used by the status endpoint.
type NodeStatus struct {
	Status       string
	Port         int
	MinerAddress string
	Height       int
	LatestHash   string
	Mempool      int
}

// =============================================================================

// QueryStatus returns a summary of the node.
func (s *State) QueryStatus() NodeStatus {
	ns := NodeStatus{
		Status:       s.Status().String(),
		Port:         s.port,
		MinerAddress: s.minerAddress,
		Height:       s.db.Height(),
		Mempool:      s.mempool.Count(),
	}

	if latest, exists := s.db.LatestBlock(); exists {
		ns.LatestHash = latest.Hash
	}

	return ns
}

// QueryChain returns a copy of the blocks of the chain.
func (s *State) QueryChain() []database.Block {
	return s.db.Blocks()
}

// QueryBlock returns the block at the specified height. Heights start at 1.
func (s *State) QueryBlock(height int) (database.Block, error) {
	if height == QueryLatest {
		latest, exists := s.db.LatestBlock()
		if !exists {
			return database.Block{}, fmt.Errorf("chain is empty")
		}
		return latest, nil
	}

	return s.db.BlockByHeight(height)
}

// QueryMempool returns a copy of the pending transactions, best first.
func (s *State) QueryMempool() []database.Tx {
	return s.mempool.PickBest(-1)
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryBalance returns the value of the unspent outputs owned by the address
// together with the outputs.
func (s *State) QueryBalance(address string) (decimal.Decimal, []utxo.Entry) {
	return s.db.Balance(address), s.db.UnspentFor(address)
}

// QueryUTXOs returns a copy of the ledger of unspent outputs.
func (s *State) QueryUTXOs() *utxo.Set {
	return s.db.UTXOSnapshot()
}

// QueryHistory returns the mined transactions paying or spending from the
// address, oldest first.
func (s *State) QueryHistory(address string) []database.Tx {
	return s.db.TransactionsFor(address)
}

// QueryWallets returns the addresses of the node's wallets with their
// balances.
func (s *State) QueryWallets() map[string]decimal.Decimal {
	addrs := s.wallets.Addresses(s.port)

	balances := make(map[string]decimal.Decimal, len(addrs))
	for _, addr := range addrs {
		balances[addr] = s.db.Balance(addr)
	}

	return balances
}
