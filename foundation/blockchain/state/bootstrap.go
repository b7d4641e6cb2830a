package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage"
)

// Bootstrap loads the persisted chain and replays it from genesis against a
// fresh ledger. When a block fails validation the chain is truncated to the
// valid prefix before it. The node is synced once this returns.
func (s *State) Bootstrap() error {
	s.evHandler("state: Bootstrap: started")
	defer s.evHandler("state: Bootstrap: completed")

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.wallets.Load(s.store); err != nil {
		return fmt.Errorf("loading wallets: %w", err)
	}

	blocks, err := s.store.ReadChain()
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.evHandler("state: Bootstrap: no persisted chain")
		s.setStatus(StatusSynced)
		return nil

	case err != nil:
		return fmt.Errorf("loading chain: %w", err)
	}

	s.evHandler("state: Bootstrap: replay: blocks[%d]", len(blocks))

	result := database.Replay(blocks, s.genesis, s.evHandler)
	if !result.Accepted() {
		s.evHandler("state: Bootstrap: WARNING: %s: keeping blocks[%d] of [%d]", result.Err, result.ValidPrefix(), len(blocks))
	}

	// The persisted ledger is only a cache of the replayed chain.
	stored, err := s.store.ReadUTXOs()
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		s.evHandler("state: Bootstrap: WARNING: loading ledger: %s", err)
	case !stored.Equal(result.UTXOs):
		s.evHandler("state: Bootstrap: WARNING: persisted ledger doesn't match the chain, using the replayed ledger")
	}

	s.db.Reset(result)
	s.markChainSeen(result.Blocks)
	s.setStatus(StatusSynced)

	return nil
}

// Save persists the node's state. The wallet registry is always merged into
// the store. The chain and the ledger are only written when the persisted
// chain is shorter than the local one.
func (s *State) Save() error {
	s.evHandler("state: Save: started")
	defer s.evHandler("state: Save: completed")

	if err := s.wallets.Save(s.store); err != nil {
		return fmt.Errorf("saving wallets: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.store.ChainHeight()
	if err != nil {
		s.evHandler("state: Save: WARNING: reading persisted chain: %s", err)
	}

	height := s.db.Height()
	if err == nil && stored >= height {
		s.evHandler("state: Save: skipped: persisted[%d] local[%d]", stored, height)
		return nil
	}

	if err := s.store.WriteChain(s.db.Blocks()); err != nil {
		return fmt.Errorf("saving chain: %w", err)
	}

	if err := s.store.WriteUTXOs(s.db.UTXOSnapshot()); err != nil {
		return fmt.Errorf("saving ledger: %w", err)
	}

	s.evHandler("state: Save: chain saved: blocks[%d]", height)

	return nil
}
