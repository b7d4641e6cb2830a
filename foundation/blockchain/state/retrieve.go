package state

import (
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
)

// RetrievePort returns the port the node listens on for peers.
func (s *State) RetrievePort() int {
	return s.port
}

// RetrieveMinerAddress returns the address receiving the mining rewards.
func (s *State) RetrieveMinerAddress() string {
	return s.minerAddress
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() (database.Block, bool) {
	return s.db.LatestBlock()
}
