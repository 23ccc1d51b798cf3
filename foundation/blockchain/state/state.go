// Package state is the core API for the blockchain and implements all the
// business rules and processing. The State value is the single owner of the
// chain, the set of unspent outputs and the mempool.
package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/mempool"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/metrics"
)

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining and transaction sharing.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining()
	SignalShareTx()
	Mine(ctx context.Context, trans []database.Tx) (database.Block, error)
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	MinerAddress string
	EvHandler    EventHandler
	Metrics      *metrics.Metrics
}

// State manages the blockchain database.
type State struct {
	minerAddress string
	evHandler    EventHandler
	metrics      *metrics.Metrics

	// mu is held for writing across every change to chain, utxos and the
	// mempool so readers never observe a partial update.
	mu      sync.RWMutex
	chain   []database.Block
	utxos   database.UTXOSet
	mempool *mempool.Mempool

	Worker Worker
}

// New constructs a new blockchain holding only the genesis block.
func New(cfg Config) (*State, error) {
	if !signature.IsAddress(cfg.MinerAddress) {
		return nil, fmt.Errorf("invalid miner address %q", cfg.MinerAddress)
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	gen := genesis.Block()
	utxos, err := database.NewUTXOSet().Apply(gen.Trans, gen.Index)
	if err != nil {
		return nil, fmt.Errorf("applying genesis: %w", err)
	}

	state := State{
		minerAddress: cfg.MinerAddress,
		evHandler:    ev,
		metrics:      cfg.Metrics,
		chain:        []database.Block{gen},
		utxos:        utxos,
		mempool:      mempool.New(),
	}

	// The worker package replaces this with a worker running its own
	// goroutines. Until then mining runs on the calling goroutine.
	state.Worker = inlineWorker{state: &state}

	state.metrics.SetChain(gen.Index, database.CumulativeWork(state.chain))

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	s.Worker.Shutdown()

	return nil
}

// =============================================================================

// inlineWorker mines on the calling goroutine and ignores every signal.
type inlineWorker struct {
	state *State
}

func (inlineWorker) Shutdown()           {}
func (inlineWorker) SignalStartMining()  {}
func (inlineWorker) SignalCancelMining() {}
func (inlineWorker) SignalShareTx()      {}

func (w inlineWorker) Mine(ctx context.Context, trans []database.Tx) (database.Block, error) {
	return w.state.MineNewBlock(ctx, trans)
}
