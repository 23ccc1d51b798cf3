package database

import "fmt"

// UTXO represents an output that has not been consumed by any accepted input.
type UTXO struct {
	OutPoint
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

// =============================================================================

// UTXOSet is the set of spendable outputs. A set is never mutated once
// constructed: Apply returns a new set, so a value can be shared freely
// between readers.
type UTXOSet struct {
	outs  []UTXO
	index map[OutPoint]int
}

// NewUTXOSet constructs a set from the specified outputs, keeping the order.
// A repeated outpoint keeps its first occurrence.
func NewUTXOSet(utxos ...UTXO) UTXOSet {
	s := UTXOSet{
		outs:  make([]UTXO, 0, len(utxos)),
		index: make(map[OutPoint]int, len(utxos)),
	}

	for _, utxo := range utxos {
		if _, exists := s.index[utxo.OutPoint]; exists {
			continue
		}
		s.index[utxo.OutPoint] = len(s.outs)
		s.outs = append(s.outs, utxo)
	}

	return s
}

// Len returns the number of unspent outputs.
func (s UTXOSet) Len() int {
	return len(s.outs)
}

// Lookup returns the unspent output for the outpoint.
func (s UTXOSet) Lookup(op OutPoint) (UTXO, bool) {
	i, exists := s.index[op]
	if !exists {
		return UTXO{}, false
	}
	return s.outs[i], true
}

// Contains reports whether the outpoint is unspent.
func (s UTXOSet) Contains(op OutPoint) bool {
	_, exists := s.index[op]
	return exists
}

// Values returns a copy of the unspent outputs in the order they were created.
func (s UTXOSet) Values() []UTXO {
	return append([]UTXO(nil), s.outs...)
}

// ForAddress returns a copy of the unspent outputs owned by the address.
func (s UTXOSet) ForAddress(address string) []UTXO {
	var out []UTXO
	for _, utxo := range s.outs {
		if utxo.Address == address {
			out = append(out, utxo)
		}
	}
	return out
}

// Apply validates the block transactions and returns the set that results
// from consuming every input and adding every produced output. The receiver
// is left untouched whatever the outcome.
func (s UTXOSet) Apply(txs []Tx, blockIndex uint64) (UTXOSet, error) {
	if err := ValidateBlockTransactions(txs, s, blockIndex); err != nil {
		return UTXOSet{}, err
	}

	consumed := make(map[OutPoint]struct{})
	var produced int
	for _, tx := range txs {
		for _, in := range tx.Inputs {
			consumed[in.OutPoint] = struct{}{}
		}
		produced += len(tx.Outputs)
	}

	next := UTXOSet{
		outs:  make([]UTXO, 0, len(s.outs)+produced),
		index: make(map[OutPoint]int, len(s.outs)+produced),
	}

	add := func(utxo UTXO) {
		next.index[utxo.OutPoint] = len(next.outs)
		next.outs = append(next.outs, utxo)
	}

	for _, utxo := range s.outs {
		if _, exists := consumed[utxo.OutPoint]; !exists {
			add(utxo)
		}
	}

	for _, tx := range txs {
		for i, out := range tx.Outputs {
			add(UTXO{
				OutPoint: OutPoint{ID: tx.ID, Index: uint64(i)},
				Address:  out.Address,
				Amount:   out.Amount,
			})
		}
	}

	return next, nil
}

// =============================================================================

// ValidateBlockTransactions checks the transactions of the block at the
// specified index. The first transaction must be the coinbase, no outpoint
// may be referenced twice across the block, and every other transaction must
// be valid against the set of unspent outputs.
func ValidateBlockTransactions(txs []Tx, utxos UTXOSet, blockIndex uint64) error {
	if len(txs) == 0 {
		return fmt.Errorf("%w: block %d has no coinbase transaction", ErrStructural, blockIndex)
	}

	if err := ValidateCoinbase(txs[0], blockIndex); err != nil {
		return err
	}

	seen := make(map[OutPoint]struct{})
	for _, tx := range txs {
		for _, in := range tx.Inputs {
			if _, exists := seen[in.OutPoint]; exists {
				return fmt.Errorf("%w: %s referenced twice in block %d", ErrDuplicateInput, in.OutPoint, blockIndex)
			}
			seen[in.OutPoint] = struct{}{}
		}
	}

	for _, tx := range txs[1:] {
		if err := tx.Validate(utxos); err != nil {
			return err
		}
	}

	return nil
}
