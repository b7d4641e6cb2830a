package worker

import "github.com/ardanlabs/utxochain/foundation/blockchain/p2p"

// maxShareRequests represents the max number of pending network share
// requests that can be outstanding before share requests are dropped. To keep
// this simple, a buffered channel of this arbitrary number is being used. If
// the channel does become full, requests for new transactions or blocks to be
// shared will not be accepted.
const maxShareRequests = 100

// =============================================================================

// shareOperations handles sharing new transactions and blocks.
func (w *Worker) shareOperations() {
	w.evHandler("worker: shareOperations: G started")
	defer w.evHandler("worker: shareOperations: G completed")

	for {
		select {
		case msg := <-w.sharing:
			if !w.isShutdown() {
				w.runShareOperation(msg)
			}
		case <-w.shut:
			w.evHandler("worker: shareOperations: received shut signal")
			return
		}
	}
}

// runShareOperation shares the message with the connected peers.
func (w *Worker) runShareOperation(msg p2p.Message) {
	w.evHandler("worker: runShareOperation: %s: peers[%d]", msg.Kind(), w.transport.Count())

	w.transport.Broadcast(msg)
}
