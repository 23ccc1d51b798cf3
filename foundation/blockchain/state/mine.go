package state

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/wallet"
)

// ErrNoTransactions is returned when a block is requested to be created
// from an empty list of transactions.
var ErrNoTransactions = errors.New("no transactions to mine")

// ErrStaleTip is returned when a mined block can't be appended because the
// chain moved while the nonce was being searched. The block is discarded.
var ErrStaleTip = errors.New("chain tip moved during mining")

// =============================================================================

// MineBlock hands the mining of a block to the worker and waits for the
// result. With nil transactions the block holds a coinbase paying the miner
// followed by the mempool, otherwise it holds the transactions verbatim.
func (s *State) MineBlock(ctx context.Context, trans []database.Tx) (database.Block, error) {
	return s.Worker.Mine(ctx, trans)
}

// MineTransaction creates a transaction sending amount to the address, signed
// with the private key, and mines it into a block right away together with a
// coinbase paying the miner.
func (s *State) MineTransaction(ctx context.Context, to string, amount uint64, privateKey *ecdsa.PrivateKey) (database.Block, error) {
	s.mu.RLock()
	utxos := s.utxos
	pool := s.mempool.Snapshot()
	next := s.chain[len(s.chain)-1].Index + 1
	s.mu.RUnlock()

	tx, err := wallet.CreateTx(to, amount, privateKey, utxos, pool)
	if err != nil {
		return database.Block{}, err
	}

	trans := []database.Tx{database.NewCoinbaseTx(s.minerAddress, next), tx}

	return s.Worker.Mine(ctx, trans)
}

// MineNewBlock attempts to create a new block with a proper hash that can become
// the next block in the chain. This runs on the goroutine of the caller and
// can be cancelled through the context.
func (s *State) MineNewBlock(ctx context.Context, trans []database.Tx) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: prepare block")

	s.mu.RLock()
	prev := s.chain[len(s.chain)-1].Clone()
	difficulty := database.RequiredDifficulty(s.chain)
	if trans == nil {
		trans = append([]database.Tx{database.NewCoinbaseTx(s.minerAddress, prev.Index+1)}, s.mempool.Snapshot()...)
	}
	s.mu.RUnlock()

	if len(trans) == 0 {
		return database.Block{}, ErrNoTransactions
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW: difficulty[%d]: txs[%d]", difficulty, len(trans))

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	block, err := database.POW(ctx, database.POWArgs{
		PrevBlock:  prev,
		Trans:      trans,
		Difficulty: difficulty,
		Timestamp:  time.Now().Unix(),
		EvHandler:  s.evHandler,
	})
	if err != nil {
		s.metrics.MiningAttempt("cancelled")
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		s.metrics.MiningAttempt("cancelled")
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: validate and update chain")

	if err := s.writeBlock(block, "mined"); err != nil {
		if s.RetrieveLatestBlock().Hash != prev.Hash {
			s.metrics.MiningAttempt("stale")
			return database.Block{}, fmt.Errorf("%w: %w", ErrStaleTip, err)
		}

		s.metrics.MiningAttempt("rejected")
		return database.Block{}, err
	}

	s.metrics.MiningAttempt("solved")

	return block, nil
}
