// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/mempool"
	"github.com/ardanlabs/utxochain/foundation/blockchain/mempool/selector"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage"
	"github.com/ardanlabs/utxochain/foundation/blockchain/wallet"
)

// ErrNotSynced is returned when an operation requires the node to have
// finished bootstrapping.
var ErrNotSynced = errors.New("node is not synced")

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining, peer updates, and transaction sharing.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining()
	SignalShareTx(tx database.Tx)
	SignalShareBlock(block database.Block)
}

// Status represents the lifecycle of the node.
type Status int32

// Set of node statuses.
const (
	StatusBootstrapping Status = iota
	StatusSynced
)

// String implements the Stringer interface.
func (s Status) String() string {
	if s == StatusSynced {
		return "synced"
	}

	return "bootstrapping"
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	MinerAddress    string
	Port            int
	Genesis         genesis.Genesis
	Store           *storage.Store
	Wallets         *wallet.Registry
	SelectStrategy  string
	MineEmptyBlocks bool
	EvHandler       EventHandler
}

// State manages the blockchain database.
type State struct {
	minerAddress string
	port         int
	mineEmpty    bool
	evHandler    EventHandler
	status       atomic.Int32

	// mu serializes every change to the chain: committing a mined block,
	// accepting a peer block and replacing the chain.
	mu sync.Mutex

	genesis    genesis.Genesis
	db         *database.Database
	mempool    *mempool.Mempool
	store      *storage.Store
	wallets    *wallet.Registry
	seenBlocks *seenSet
	seenTxs    *seenSet

	Worker Worker
}

// New constructs a new blockchain for data management. The chain is empty
// until Bootstrap loads the persisted one.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, err
	}

	if cfg.Store == nil {
		return nil, errors.New("a store is required")
	}

	strategy := cfg.SelectStrategy
	if strategy == "" {
		strategy = selector.StrategyFee
	}

	// Construct a mempool with the specified sort strategy.
	mempool, err := mempool.NewWithStrategy(strategy)
	if err != nil {
		return nil, err
	}

	wallets := cfg.Wallets
	if wallets == nil {
		wallets = wallet.NewRegistry()
	}

	// Create the State to provide support for managing the blockchain.
	state := State{
		minerAddress: cfg.MinerAddress,
		port:         cfg.Port,
		mineEmpty:    cfg.MineEmptyBlocks,
		evHandler:    ev,

		genesis:    cfg.Genesis,
		db:         database.New(cfg.Genesis, ev),
		mempool:    mempool,
		store:      cfg.Store,
		wallets:    wallets,
		seenBlocks: newSeenSet(),
		seenTxs:    newSeenSet(),

		// The real worker is registered by the call to worker.Run.
		Worker: noopWorker{},
	}

	return &state, nil
}

// Shutdown cleanly brings the node down. Background work is stopped before
// the state is saved and the store is closed.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	s.Worker.Shutdown()

	saveErr := s.Save()
	closeErr := s.store.Close()

	return errors.Join(saveErr, closeErr)
}

// Status returns the lifecycle status of the node.
func (s *State) Status() Status {
	return Status(s.status.Load())
}

// IsMiningAllowed reports whether the node has finished bootstrapping.
func (s *State) IsMiningAllowed() bool {
	return s.Status() == StatusSynced
}

func (s *State) setStatus(status Status) {
	s.status.Store(int32(status))
}

// =============================================================================

// noopWorker is used until a worker registers itself.
type noopWorker struct{}

func (noopWorker) Shutdown()                       {}
func (noopWorker) SignalStartMining()              {}
func (noopWorker) SignalCancelMining()             {}
func (noopWorker) SignalShareTx(database.Tx)       {}
func (noopWorker) SignalShareBlock(database.Block) {}
