package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
)

// ErrNotHeavier is returned when a replacement chain does not carry strictly
// more cumulative work than the current chain.
var ErrNotHeavier = errors.New("chain is not heavier than the current chain")

// =============================================================================

// Append validates the block against the latest block and the set of unspent
// outputs and, if that passes, adds it to the chain. Nothing changes when
// validation fails.
func (s *State) Append(block database.Block) error {
	return s.writeBlock(block, "received")
}

// Replace validates every block of the candidate chain from genesis and
// swaps it in for the current chain if it carries strictly more cumulative
// work. Nothing changes when validation fails.
func (s *State) Replace(chain []database.Block) error {
	s.evHandler("state: Replace: started: blocks[%d]", len(chain))
	defer s.evHandler("state: Replace: completed")

	// Replaying the candidate only reads the candidate, so it runs before
	// the lock is taken.
	utxos, err := validateChain(chain, time.Now())
	if err != nil {
		s.rejected(err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := database.CumulativeWork(s.chain)
	work := database.CumulativeWork(chain)
	if work.Cmp(current) <= 0 {
		err := fmt.Errorf("%w: candidate work %s, current work %s", ErrNotHeavier, work, current)
		s.rejected(err)
		return err
	}

	cpy := make([]database.Block, len(chain))
	for i, b := range chain {
		cpy[i] = b.Clone()
	}

	s.chain = cpy
	s.utxos = utxos
	removed := s.mempool.Reconcile(utxos)

	tip := cpy[len(cpy)-1]
	s.evHandler("state: Replace: chain replaced: blk[%d]: hash[%s]: work[%s]: removedTxs[%d]", tip.Index, tip.Hash, work, removed)

	s.metrics.Reorg()
	s.metrics.SetChain(tip.Index, work)
	s.metrics.SetMempool(s.mempool.Count())
	s.blockEvent(tip)

	return nil
}

// ProcessPeerBlock takes a block received from a peer, validates it and
// if that passes, adds the block to the local chain. A mining operation in
// progress is cancelled since it now works on a stale tip.
func (s *State) ProcessPeerBlock(block database.Block) error {
	s.evHandler("state: ProcessPeerBlock: started: prevBlk[%s]: newBlk[%s]: numTrans[%d]", block.PreviousHash, block.Hash, len(block.Trans))
	defer s.evHandler("state: ProcessPeerBlock: completed: newBlk[%s]", block.Hash)

	if err := s.Append(block); err != nil {
		return err
	}

	s.evHandler("state: ProcessPeerBlock: signal mining operation to terminate")
	s.Worker.SignalCancelMining()

	return nil
}

// ProcessPeerChain takes a full chain received from a peer and replaces the
// local chain with it when it is valid and heavier.
func (s *State) ProcessPeerChain(chain []database.Block) error {
	if err := s.Replace(chain); err != nil {
		return err
	}

	s.evHandler("state: ProcessPeerChain: signal mining operation to terminate")
	s.Worker.SignalCancelMining()

	return nil
}

// =============================================================================

// writeBlock validates the block on top of the current chain and commits it
// together with the new set of unspent outputs and the reconciled mempool.
func (s *State) writeBlock(block database.Block, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: writeBlock: validate blk[%d]", block.Index)

	utxos, err := validateNext(s.chain, s.utxos, block, time.Now())
	if err != nil {
		s.rejected(err)
		return err
	}

	s.chain = append(s.chain, block.Clone())
	s.utxos = utxos
	removed := s.mempool.Reconcile(utxos)

	s.evHandler("state: writeBlock: blk[%d] appended: hash[%s]: txs[%d]: removedTxs[%d]", block.Index, block.Hash, len(block.Trans), removed)

	s.metrics.BlockAppended(source)
	s.metrics.SetChain(block.Index, database.CumulativeWork(s.chain))
	s.metrics.SetMempool(s.mempool.Count())
	s.blockEvent(block)

	return nil
}

// rejected records why a block or chain was not accepted.
func (s *State) rejected(err error) {
	s.evHandler("state: rejected: %s", err)
	s.metrics.BlockRejected(rejectReason(err))
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	data, err := json.Marshal(block)
	if err != nil {
		data = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: %s`, string(data))
}

// =============================================================================

// validateNext validates the block as the successor of the chain and returns
// the set of unspent outputs after applying it.
func validateNext(chain []database.Block, utxos database.UTXOSet, block database.Block, now time.Time) (database.UTXOSet, error) {
	if err := block.ValidateBlock(chain[len(chain)-1], now); err != nil {
		return database.UTXOSet{}, err
	}

	if exp := database.RequiredDifficulty(chain); block.Difficulty != exp {
		return database.UTXOSet{}, fmt.Errorf("%w: block difficulty %d, exp %d", database.ErrProofOfWork, block.Difficulty, exp)
	}

	return utxos.Apply(block.Trans, block.Index)
}

// ValidateChain replays the chain from genesis and returns the set of unspent
// outputs it produces.
func ValidateChain(chain []database.Block) (database.UTXOSet, error) {
	return validateChain(chain, time.Now())
}

// validateChain replays the chain from genesis and returns the resulting set
// of unspent outputs.
func validateChain(chain []database.Block, now time.Time) (database.UTXOSet, error) {
	if len(chain) == 0 || !genesis.Matches(chain[0]) {
		return database.UTXOSet{}, fmt.Errorf("%w: first block is not the genesis block", database.ErrGenesisMismatch)
	}

	utxos, err := database.NewUTXOSet().Apply(chain[0].Trans, chain[0].Index)
	if err != nil {
		return database.UTXOSet{}, err
	}

	for i := 1; i < len(chain); i++ {
		utxos, err = validateNext(chain[:i], utxos, chain[i], now)
		if err != nil {
			return database.UTXOSet{}, fmt.Errorf("blk[%d]: %w", i, err)
		}
	}

	return utxos, nil
}

// rejectReason returns the metric label for the error.
func rejectReason(err error) string {
	if errors.Is(err, ErrNotHeavier) {
		return "not_heavier"
	}
	return database.ErrorKind(err)
}
