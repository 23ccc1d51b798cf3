package state

import (
	"crypto/ecdsa"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/wallet"
)

// SendTransaction creates a transaction sending amount to the address,
// signed with the private key, and adds it to the mempool.
func (s *State) SendTransaction(to string, amount uint64, privateKey *ecdsa.PrivateKey) (database.Tx, error) {
	s.mu.RLock()
	utxos := s.utxos
	pool := s.mempool.Snapshot()
	s.mu.RUnlock()

	tx, err := wallet.CreateTx(to, amount, privateKey, utxos, pool)
	if err != nil {
		return database.Tx{}, err
	}

	if err := s.UpsertWalletTransaction(tx); err != nil {
		return database.Tx{}, err
	}

	return tx, nil
}

// UpsertWalletTransaction accepts a transaction from a wallet for inclusion.
// The pool is shared with the peers.
func (s *State) UpsertWalletTransaction(tx database.Tx) error {
	if err := s.upsertMempool(tx); err != nil {
		return err
	}

	s.Worker.SignalShareTx()
	s.Worker.SignalStartMining()

	return nil
}

// UpsertNodeTransaction accepts a transaction from a peer for inclusion.
// Sharing the pool again is left to the peer handling.
func (s *State) UpsertNodeTransaction(tx database.Tx) error {
	if err := s.upsertMempool(tx); err != nil {
		return err
	}

	s.Worker.SignalStartMining()

	return nil
}

// =============================================================================

// upsertMempool validates the transaction against the current set of
// unspent outputs and the pool under the write lock.
func (s *State) upsertMempool(tx database.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mempool.Add(tx, s.utxos); err != nil {
		s.evHandler("state: upsertMempool: tx[%s]: rejected: %s", tx, err)
		return err
	}

	s.evHandler("state: upsertMempool: tx[%s]: added: pool[%d]", tx, s.mempool.Count())
	s.metrics.SetMempool(s.mempool.Count())

	return nil
}
