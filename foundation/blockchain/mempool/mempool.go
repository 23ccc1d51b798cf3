// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"fmt"
	"sync"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
)

// Mempool represents a cache of pending transactions kept in insertion order.
// No two transactions in the pool spend the same output.
type Mempool struct {
	mu    sync.RWMutex
	pool  []database.Tx
	spent map[database.OutPoint]string
}

// New constructs a new, empty mempool.
func New() *Mempool {
	return &Mempool{
		spent: make(map[database.OutPoint]string),
	}
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Add validates the transaction against the set of unspent outputs and
// appends it to the pool. The pool is left untouched on failure.
func (mp *Mempool) Add(tx database.Tx, utxos database.UTXOSet) error {
	if err := tx.Validate(utxos); err != nil {
		return err
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	for _, in := range tx.Inputs {
		if id, exists := mp.spent[in.OutPoint]; exists {
			return fmt.Errorf("%w: %s already spent by pooled tx %s", database.ErrDuplicateInput, in.OutPoint, id)
		}
	}

	for _, in := range tx.Inputs {
		mp.spent[in.OutPoint] = tx.ID
	}
	mp.pool = append(mp.pool, tx.Clone())

	return nil
}

// Reconcile removes every transaction with an input that is no longer in the
// set of unspent outputs. It returns the number of transactions removed.
func (mp *Mempool) Reconcile(utxos database.UTXOSet) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	keep := mp.pool[:0]
	var removed int

next:
	for _, tx := range mp.pool {
		for _, in := range tx.Inputs {
			if !utxos.Contains(in.OutPoint) {
				for _, in := range tx.Inputs {
					delete(mp.spent, in.OutPoint)
				}
				removed++
				continue next
			}
		}
		keep = append(keep, tx)
	}

	clear(mp.pool[len(keep):])
	mp.pool = keep

	return removed
}

// Snapshot returns a copy of the pending transactions in insertion order.
// The caller owns the returned slice.
func (mp *Mempool) Snapshot() []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	txs := make([]database.Tx, len(mp.pool))
	for i, tx := range mp.pool {
		txs[i] = tx.Clone()
	}

	return txs
}

// Contains reports whether a transaction with the id is pending.
func (mp *Mempool) Contains(id string) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	for _, tx := range mp.pool {
		if tx.ID == id {
			return true
		}
	}

	return false
}

// Spent reports whether a pending transaction already consumes the output.
func (mp *Mempool) Spent(op database.OutPoint) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.spent[op]
	return exists
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = nil
	mp.spent = make(map[database.OutPoint]string)
}
