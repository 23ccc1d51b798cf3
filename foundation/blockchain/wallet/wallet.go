// Package wallet builds signed transactions out of the outputs an address
// owns.
package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
)

// ErrInsufficientFunds is returned when the spendable outputs of the sender
// do not cover the amount.
var ErrInsufficientFunds = errors.New("insufficient funds")

// CreateTx builds a transaction sending amount to the address, funded by the
// outputs the private key owns. Outputs already spent by a pooled transaction
// are skipped. Outputs are picked in order until they cover the amount and
// the left over is paid back to the sender.
func CreateTx(to string, amount uint64, privateKey *ecdsa.PrivateKey, utxos database.UTXOSet, pool []database.Tx) (database.Tx, error) {
	if !signature.IsAddress(to) {
		return database.Tx{}, fmt.Errorf("%w: invalid recipient address %q", database.ErrStructural, to)
	}

	if amount == 0 {
		return database.Tx{}, fmt.Errorf("%w: amount must be greater than zero", database.ErrStructural)
	}

	from := signature.PublicKeyToAddress(privateKey.PublicKey)

	var total uint64
	var spend []database.OutPoint
	for _, utxo := range Spendable(from, utxos, pool) {
		spend = append(spend, utxo.OutPoint)
		total += utxo.Amount

		if total >= amount {
			break
		}
	}

	if total < amount {
		return database.Tx{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, total, amount)
	}

	outputs := []database.TxOut{{Address: to, Amount: amount}}
	if change := total - amount; change > 0 {
		outputs = append(outputs, database.TxOut{Address: from, Amount: change})
	}

	tx := database.NewTx(spend, outputs)
	for i := range tx.Inputs {
		sig, err := database.SignInput(tx, i, privateKey, utxos)
		if err != nil {
			return database.Tx{}, err
		}
		tx.Inputs[i].Signature = sig
	}

	return tx, nil
}

// Spendable returns the outputs owned by the address that no pooled
// transaction consumes.
func Spendable(address string, utxos database.UTXOSet, pool []database.Tx) []database.UTXO {
	pending := make(map[database.OutPoint]struct{})
	for _, tx := range pool {
		for _, in := range tx.Inputs {
			pending[in.OutPoint] = struct{}{}
		}
	}

	var out []database.UTXO
	for _, utxo := range utxos.ForAddress(address) {
		if _, exists := pending[utxo.OutPoint]; !exists {
			out = append(out, utxo)
		}
	}

	return out
}

// Outputs returns the outputs owned by the address in the order they were
// created. The slice is empty, not nil, when the address owns nothing.
func Outputs(address string, utxos database.UTXOSet) []database.UTXO {
	out := utxos.ForAddress(address)
	if out == nil {
		out = []database.UTXO{}
	}

	return out
}

// Balance returns the sum of the outputs owned by the address.
func Balance(address string, utxos database.UTXOSet) uint64 {
	var balance uint64
	for _, utxo := range utxos.ForAddress(address) {
		balance += utxo.Amount
	}

	return balance
}
