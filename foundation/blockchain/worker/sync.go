package worker

import "github.com/ardanlabs/utxochain/foundation/blockchain/p2p"

// syncOperations periodically asks the peers for their chain so a node that
// missed a block catches up.
func (w *Worker) syncOperations() {
	w.evHandler("worker: syncOperations: G started")
	defer w.evHandler("worker: syncOperations: G completed")

	for {
		select {
		case <-w.syncTicker.C:
			if !w.isShutdown() {
				w.runSyncOperation()
			}
		case <-w.shut:
			w.evHandler("worker: syncOperations: received shut signal")
			return
		}
	}
}

// runSyncOperation requests the chain of every connected peer.
func (w *Worker) runSyncOperation() {
	w.evHandler("worker: runSyncOperation: request chain: peers[%d]", w.transport.Count())

	w.transport.Broadcast(p2p.ChainRequest{})
}
