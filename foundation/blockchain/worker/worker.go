// Package worker implements mining, peer discovery, chain synchronization
// and gossip for the blockchain.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/p2p"
	"github.com/ardanlabs/utxochain/foundation/blockchain/peer"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
)

// Default intervals of the background operations.
const (
	defaultDiscoveryInterval = 10 * time.Second
	defaultSyncInterval      = 10 * time.Second
	defaultMiningInterval    = time.Second
)

// Config represents the configuration of the background operations.
type Config struct {
	ListenAddr        string
	Range             peer.Range
	DialTimeout       time.Duration
	DiscoveryInterval time.Duration
	SyncInterval      time.Duration
	MiningInterval    time.Duration
	EvHandler         state.EventHandler
}

// =============================================================================

// Worker manages the POW workflows for the blockchain and the traffic with
// the peers.
type Worker struct {
	state           *state.State
	transport       *p2p.Transport
	wg              sync.WaitGroup
	discoveryTicker *time.Ticker
	syncTicker      *time.Ticker
	miningInterval  time.Duration
	shut            chan struct{}
	ctx             context.Context
	cancel          context.CancelFunc
	startMining     chan bool
	cancelMining    chan bool
	sharing         chan p2p.Message
	evHandler       state.EventHandler
}

// Run creates a worker, registers the worker with the state package, starts
// listening for peers and starts up all the background processes.
func Run(st *state.State, cfg Config) (*Worker, error) {
	if cfg.DiscoveryInterval == 0 {
		cfg.DiscoveryInterval = defaultDiscoveryInterval
	}
	if cfg.SyncInterval == 0 {
		cfg.SyncInterval = defaultSyncInterval
	}
	if cfg.MiningInterval == 0 {
		cfg.MiningInterval = defaultMiningInterval
	}

	ev := cfg.EvHandler
	if ev == nil {
		ev = func(string, ...any) {}
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := Worker{
		state:          st,
		miningInterval: cfg.MiningInterval,
		shut:           make(chan struct{}),
		ctx:            ctx,
		cancel:         cancel,
		startMining:    make(chan bool, 1),
		cancelMining:   make(chan bool, 1),
		sharing:        make(chan p2p.Message, maxShareRequests),
		evHandler:      ev,
	}

	w.transport = p2p.New(p2p.Config{
		SelfPort:    st.RetrievePort(),
		Range:       cfg.Range,
		DialTimeout: cfg.DialTimeout,
		Handler:     &w,
		EvHandler:   ev,
	})

	if err := w.transport.Listen(cfg.ListenAddr); err != nil {
		cancel()
		return nil, fmt.Errorf("starting peer listener: %w", err)
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Connect to the peers already running before starting any support G's.
	w.runDiscoveryOperation()

	w.discoveryTicker = time.NewTicker(cfg.DiscoveryInterval)
	w.syncTicker = time.NewTicker(cfg.SyncInterval)

	// Load the set of operations we need to run.
	operations := []func(){
		w.discoveryOperations,
		w.syncOperations,
		w.miningOperations,
		w.shareOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	w.SignalStartMining()

	return &w, nil
}

// Addr returns the address the worker listens on for peers.
func (w *Worker) Addr() string {
	if addr := w.transport.Addr(); addr != nil {
		return addr.String()
	}

	return ""
}

// PeerCount returns the number of open peer connections.
func (w *Worker) PeerCount() int {
	return w.transport.Count()
}

// KnownPeers returns the endpoints this node dialed successfully.
func (w *Worker) KnownPeers() []peer.Peer {
	return w.transport.KnownPeers()
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutines performing work and closes every
// peer connection.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: stop tickers")
	w.discoveryTicker.Stop()
	w.syncTicker.Stop()

	w.evHandler("worker: shutdown: signal cancel mining")
	w.SignalCancelMining()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.cancel()
	w.wg.Wait()

	w.evHandler("worker: shutdown: close peer connections")
	if err := w.transport.Shutdown(); err != nil {
		w.evHandler("worker: shutdown: transport: ERROR: %s", err)
	}
}

// SignalStartMining starts a mining operation. If there is already a signal
// pending in the channel, just return since a mining operation will start.
func (w *Worker) SignalStartMining() {
	if !w.state.IsMiningAllowed() {
		w.evHandler("worker: SignalStartMining: node is not synced")
		return
	}

	select {
	case w.startMining <- true:
	default:
	}
	w.evHandler("worker: SignalStartMining: mining signaled")
}

// SignalCancelMining signals the G executing the runMiningOperation function
// to stop immediately.
func (w *Worker) SignalCancelMining() {
	select {
	case w.cancelMining <- true:
	default:
	}
	w.evHandler("worker: SignalCancelMining: MINING: CANCEL: signaled")
}

// SignalShareTx queues the transaction to be shared with the peers. If
// maxShareRequests signals exist in the channel, we won't send these.
func (w *Worker) SignalShareTx(tx database.Tx) {
	w.signalShare(p2p.TxMessage{Tx: tx})
}

// SignalShareBlock queues the block to be shared with the peers.
func (w *Worker) SignalShareBlock(block database.Block) {
	w.signalShare(p2p.BlockMessage{Block: block})
}

// =============================================================================

func (w *Worker) signalShare(msg p2p.Message) {
	select {
	case w.sharing <- msg:
		w.evHandler("worker: signalShare: share %s signaled", msg.Kind())
	default:
		w.evHandler("worker: signalShare: queue full, %s won't be shared", msg.Kind())
	}
}

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
