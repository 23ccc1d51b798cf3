package state

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/merkle"
	"github.com/ardanlabs/utxochain/foundation/blockchain/wallet"
)

// ErrNotFound is returned when a block or transaction is not in the chain.
var ErrNotFound = errors.New("not found")

// TxRecord is a transaction found in the chain with the proof that it is
// committed by the block.
type TxRecord struct {
	Tx         database.Tx `json:"tx"`
	BlockHash  string      `json:"block_hash"`
	BlockIndex uint64      `json:"block_index"`
	TransRoot  string      `json:"trans_root"`
	Proof      []string    `json:"proof"`
	ProofOrder []int64     `json:"proof_order"`
}

// Verify checks that the transaction carries its own id and that the proof
// leads from the transaction to the root of the block.
func (r TxRecord) Verify() error {
	if database.ComputeTxID(r.Tx) != r.Tx.ID {
		return fmt.Errorf("tx[%s]: id does not match the content", r.Tx.ID)
	}

	leaf, err := r.Tx.Hash()
	if err != nil {
		return err
	}

	root, err := hex.DecodeString(r.TransRoot)
	if err != nil {
		return fmt.Errorf("decoding root: %w", err)
	}

	proof := make([][]byte, len(r.Proof))
	for i, p := range r.Proof {
		if proof[i], err = hex.DecodeString(p); err != nil {
			return fmt.Errorf("decoding proof[%d]: %w", i, err)
		}
	}

	if !merkle.VerifyProof(leaf, proof, r.ProofOrder, root) {
		return fmt.Errorf("tx[%s]: proof does not lead to root %s", r.Tx.ID, r.TransRoot)
	}

	return nil
}

// =============================================================================
// Every Retrieve call returns values the caller owns. Changing them has no
// effect on the state.

// RetrieveMinerAddress returns the address receiving the mining rewards.
func (s *State) RetrieveMinerAddress() string {
	return s.minerAddress
}

// RetrieveChain returns a copy of the full chain starting at genesis.
func (s *State) RetrieveChain() []database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := make([]database.Block, len(s.chain))
	for i, b := range s.chain {
		chain[i] = b.Clone()
	}

	return chain
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.chain[len(s.chain)-1].Clone()
}

// RetrieveBlock returns a copy of the block with the specified hash.
func (s *State) RetrieveBlock(hash string) (database.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.chain {
		if b.Hash == hash {
			return b.Clone(), nil
		}
	}

	return database.Block{}, fmt.Errorf("block %s: %w", hash, ErrNotFound)
}

// RetrieveTransaction returns the transaction with the specified id from the
// chain along with its merkle proof against the block transactions.
func (s *State) RetrieveTransaction(id string) (TxRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.chain) - 1; i >= 0; i-- {
		b := s.chain[i]

		for _, tx := range b.Trans {
			if tx.ID != id {
				continue
			}

			tree, err := merkle.NewTree(b.Trans)
			if err != nil {
				return TxRecord{}, err
			}

			proof, order, err := tree.Proof(tx)
			if err != nil {
				return TxRecord{}, err
			}

			hexProof := make([]string, len(proof))
			for j, p := range proof {
				hexProof[j] = hex.EncodeToString(p)
			}

			record := TxRecord{
				Tx:         tx.Clone(),
				BlockHash:  b.Hash,
				BlockIndex: b.Index,
				TransRoot:  tree.RootHex(),
				Proof:      hexProof,
				ProofOrder: order,
			}

			return record, nil
		}
	}

	return TxRecord{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
}

// RetrieveUTXOSet returns the current set of unspent outputs. The set is
// immutable so it is shared as is.
func (s *State) RetrieveUTXOSet() database.UTXOSet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.utxos
}

// RetrieveUTXOs returns a copy of every unspent output.
func (s *State) RetrieveUTXOs() []database.UTXO {
	return s.RetrieveUTXOSet().Values()
}

// RetrieveOutputs returns a copy of the unspent outputs owned by the address.
func (s *State) RetrieveOutputs(address string) []database.UTXO {
	return wallet.Outputs(address, s.RetrieveUTXOSet())
}

// RetrieveBalance returns the sum of the unspent outputs owned by the address.
func (s *State) RetrieveBalance(address string) uint64 {
	return wallet.Balance(address, s.RetrieveUTXOSet())
}

// RetrieveMempool returns a copy of the pending transactions in the order
// they were accepted.
func (s *State) RetrieveMempool() []database.Tx {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.mempool.Snapshot()
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}
