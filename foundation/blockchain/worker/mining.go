package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/p2p"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
)

// miningOperations handles mining. A mining operation starts when signaled
// and at every interval so the node keeps extending the chain.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	timer := time.NewTimer(w.miningInterval)
	defer timer.Stop()

	for {
		select {
		case <-w.startMining:
		case <-timer.C:
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}

		if !w.isShutdown() {
			w.runMiningOperation()
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(w.miningInterval)
	}
}

// runMiningOperation mines the next block and shares it with the peers. A
// signal on the cancel channel abandons the block being mined, that happens
// when a peer block extends the chain first.
func (w *Worker) runMiningOperation() {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	if !w.state.IsMiningAllowed() {
		w.evHandler("worker: runMiningOperation: MINING: turned off")
		return
	}

	// A cancel left over from a previous operation does not apply here.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: MINING: drained cancel channel")
	default:
	}

	ctx, cancel := context.WithCancel(w.ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		select {
		case <-w.cancelMining:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: requested")
			cancel()
		case <-ctx.Done():
		}
	}()

	start := time.Now()
	block, err := w.state.MineNewBlock(ctx)
	w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", time.Since(start))

	cancelled := ctx.Err() != nil
	cancel()
	wg.Wait()

	if err != nil {
		w.reportMiningError(err, cancelled)
		return
	}

	w.evHandler("worker: runMiningOperation: MINING: SOLVED: blk[%d]: hash[%s]: txs[%d]", block.Height, block.Hash, len(block.Trans))
	w.transport.Broadcast(p2p.BlockMessage{Block: block})
}

// reportMiningError raises the event describing why no block was mined.
func (w *Worker) reportMiningError(err error, cancelled bool) {
	switch {
	case errors.Is(err, state.ErrNoTransactions):
		w.evHandler("worker: runMiningOperation: MINING: WARNING: not enough transactions in mempool")

	case errors.Is(err, database.ErrChainForked):
		w.evHandler("worker: runMiningOperation: MINING: WARNING: %s", err)

	case cancelled, errors.Is(err, context.Canceled):
		w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete")

	default:
		w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
	}
}
