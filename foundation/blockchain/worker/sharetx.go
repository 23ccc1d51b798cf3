package worker

// shareTxOperations handles sharing the mempool with the peers.
func (w *Worker) shareTxOperations() {
	w.evHandler("worker: shareTxOperations: G started")
	defer w.evHandler("worker: shareTxOperations: G completed")

	for {
		select {
		case <-w.txSharing:
			if !w.isShutdown() {
				w.runShareTxOperation()
			}
		case <-w.shut:
			w.evHandler("worker: shareTxOperations: received shut signal")
			return
		}
	}
}

// runShareTxOperation sends the current mempool to the peers.
func (w *Worker) runShareTxOperation() {
	w.evHandler("worker: runShareTxOperation: started")
	defer w.evHandler("worker: runShareTxOperation: completed")

	if w.gossip == nil {
		return
	}

	w.gossip.BroadcastPool()
}
