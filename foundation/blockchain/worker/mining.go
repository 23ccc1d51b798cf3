package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
)

// job is a request to mine a block with the specified transactions. With nil
// transactions the block is built from the mempool.
type job struct {
	ctx    context.Context
	trans  []database.Tx
	result chan result
}

type result struct {
	block database.Block
	err   error
}

// =============================================================================

// miningOperations handles mining. Only one block is mined at a time.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case j := <-w.jobs:
			block, err := w.runMiningOperation(j.ctx, j.trans)
			j.result <- result{block: block, err: err}

		case <-w.startMining:
			if !w.isShutdown() {
				w.runAutoMiningOperation()
			}

		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runAutoMiningOperation mines the mempool into a new block.
func (w *Worker) runAutoMiningOperation() {
	length := w.state.QueryMempoolLength()
	if length == 0 {
		w.evHandler("worker: runAutoMiningOperation: MINING: no transactions to mine: Txs[%d]", length)
		return
	}

	// After running a mining operation, check if a new operation should
	// be signaled again.
	defer func() {
		length := w.state.QueryMempoolLength()
		if length > 0 {
			w.evHandler("worker: runAutoMiningOperation: MINING: signal new mining operation: Txs[%d]", length)
			w.SignalStartMining()
		}
	}()

	w.runMiningOperation(context.Background(), nil)
}

// runMiningOperation mines a block with the transactions and writes it to
// the chain. The operation stops early when a competing block is accepted
// or the worker shuts down.
func (w *Worker) runMiningOperation(parent context.Context, trans []database.Tx) (database.Block, error) {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	// Drain the cancel mining channel before starting.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: MINING: drained cancel channel")
	default:
	}

	// Create a context so mining can be cancelled.
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Can't return from this function until this G is complete.
	var wg sync.WaitGroup
	wg.Add(1)

	// This G exists to cancel the mining operation.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		select {
		case <-w.cancelMining:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: requested")
		case <-w.shut:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: shutdown")
		case <-ctx.Done():
		}
	}()

	t := time.Now()
	block, err := w.state.MineNewBlock(ctx, trans)
	duration := time.Since(t)

	cancel()
	wg.Wait()

	w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", duration)

	if err != nil {
		switch {
		case errors.Is(err, state.ErrNoTransactions):
			w.evHandler("worker: runMiningOperation: MINING: WARNING: no transactions to mine")
		case errors.Is(err, state.ErrStaleTip):
			w.evHandler("worker: runMiningOperation: MINING: STALE: %s", err)
		case ctx.Err() != nil:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete")
		default:
			w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
		}
		return database.Block{}, err
	}

	// WOW, we mined a block. Propose the new block to the network.
	if w.gossip != nil {
		w.gossip.BroadcastLatestBlock()
	}

	return block, nil
}
