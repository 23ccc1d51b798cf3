// Package worker implements mining and transaction sharing for the
// blockchain on their own goroutines.
package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
)

// ErrShutdown is returned for mining requests made after shutdown started.
var ErrShutdown = errors.New("worker is shutting down")

// Gossip represents the behavior required to share the results of the work
// with the rest of the network.
type Gossip interface {
	BroadcastLatestBlock()
	BroadcastPool()
}

// Config represents the set of systems and options the worker needs.
type Config struct {
	State     *state.State
	Gossip    Gossip
	AutoMine  bool
	EvHandler state.EventHandler
}

// =============================================================================

// Worker manages the POW workflows for the blockchain.
type Worker struct {
	state        *state.State
	gossip       Gossip
	autoMine     bool
	wg           sync.WaitGroup
	shut         chan struct{}
	startMining  chan bool
	cancelMining chan bool
	jobs         chan job
	txSharing    chan bool
	evHandler    state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(cfg Config) *Worker {
	ev := cfg.EvHandler
	if ev == nil {
		ev = func(string, ...any) {}
	}

	w := Worker{
		state:        cfg.State,
		gossip:       cfg.Gossip,
		autoMine:     cfg.AutoMine,
		shut:         make(chan struct{}),
		startMining:  make(chan bool, 1),
		cancelMining: make(chan bool, 1),
		jobs:         make(chan job),
		txSharing:    make(chan bool, 1),
		evHandler:    ev,
	}

	// Register this worker with the state package.
	cfg.State.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.miningOperations,
		w.shareTxOperations,
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

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutine performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: signal cancel mining")
	w.SignalCancelMining()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalStartMining starts a mining operation when auto mining is turned on.
// If there is already a signal pending in the channel, just return since a
// mining operation will start.
func (w *Worker) SignalStartMining() {
	if !w.autoMine {
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

// SignalShareTx signals the mempool must be shared with the peers. Pending
// signals are coalesced since every share sends the whole pool.
func (w *Worker) SignalShareTx() {
	select {
	case w.txSharing <- true:
		w.evHandler("worker: SignalShareTx: share Tx signaled")
	default:
	}
}

// Mine queues a mining job on the mining goroutine and waits for its result.
func (w *Worker) Mine(ctx context.Context, trans []database.Tx) (database.Block, error) {
	j := job{
		ctx:    ctx,
		trans:  trans,
		result: make(chan result, 1),
	}

	select {
	case w.jobs <- j:
	case <-ctx.Done():
		return database.Block{}, ctx.Err()
	case <-w.shut:
		return database.Block{}, ErrShutdown
	}

	r := <-j.result
	return r.block, r.err
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
