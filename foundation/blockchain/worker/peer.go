package worker

// discoveryOperations handles finding new peers.
func (w *Worker) discoveryOperations() {
	w.evHandler("worker: discoveryOperations: G started")
	defer w.evHandler("worker: discoveryOperations: G completed")

	for {
		select {
		case <-w.discoveryTicker.C:
			if !w.isShutdown() {
				w.runDiscoveryOperation()
			}
		case <-w.shut:
			w.evHandler("worker: discoveryOperations: received shut signal")
			return
		}
	}
}

// runDiscoveryOperation dials every port of the peer range this node is not
// connected to yet. New connections request the chain of the peer.
func (w *Worker) runDiscoveryOperation() {
	w.evHandler("worker: runDiscoveryOperation: started")
	defer w.evHandler("worker: runDiscoveryOperation: completed")

	n := w.transport.Discover(w.ctx)

	w.evHandler("worker: runDiscoveryOperation: new peers[%d]: connections[%d]", n, w.transport.Count())
}
