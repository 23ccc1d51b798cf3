package database

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
)

// CoinbaseAmount is the fixed reward minted by the coinbase transaction of
// every block.
const CoinbaseAmount uint64 = 50

// =============================================================================

// OutPoint identifies a transaction output by the id of the transaction that
// produced it and the position of the output in that transaction.
type OutPoint struct {
	ID    string `json:"output_id"`
	Index uint64 `json:"output_index"`
}

// String implements the fmt.Stringer interface for logging.
func (op OutPoint) String() string {
	return fmt.Sprintf("%s:%d", op.ID, op.Index)
}

// TxIn consumes a previously produced output. The signature is made over the
// id of the owning transaction by the key behind the output's address.
type TxIn struct {
	OutPoint
	Signature string `json:"signature"`
}

// TxOut assigns an amount to an address.
type TxOut struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

// Tx moves value from a set of unspent outputs into a set of new outputs.
type Tx struct {
	ID      string  `json:"id"`
	Inputs  []TxIn  `json:"inputs"`
	Outputs []TxOut `json:"outputs"`
}

// NewTx constructs an unsigned transaction spending the specified outputs.
// The id is computed so the inputs can be signed.
func NewTx(spend []OutPoint, outputs []TxOut) Tx {
	inputs := make([]TxIn, len(spend))
	for i, op := range spend {
		inputs[i] = TxIn{OutPoint: op}
	}

	tx := Tx{
		Inputs:  inputs,
		Outputs: append([]TxOut(nil), outputs...),
	}
	tx.ID = ComputeTxID(tx)

	return tx
}

// NewCoinbaseTx constructs the transaction minting the block reward for the
// block at the specified index.
func NewCoinbaseTx(address string, blockIndex uint64) Tx {
	tx := Tx{
		Inputs:  []TxIn{{OutPoint: OutPoint{ID: "", Index: blockIndex}}},
		Outputs: []TxOut{{Address: address, Amount: CoinbaseAmount}},
	}
	tx.ID = ComputeTxID(tx)

	return tx
}

// ComputeTxID hashes each input's output id and index followed by each
// output's address and amount. Signatures are not part of the id so the
// identity of a transaction is fixed before it is signed.
func ComputeTxID(tx Tx) string {
	var b strings.Builder
	for _, in := range tx.Inputs {
		b.WriteString(in.ID)
		b.WriteString(strconv.FormatUint(in.Index, 10))
	}
	for _, out := range tx.Outputs {
		b.WriteString(out.Address)
		b.WriteString(strconv.FormatUint(out.Amount, 10))
	}

	return signature.Hash([]byte(b.String()))
}

// SignInput signs the input at the specified index. The private key must
// own the output referenced by that input.
func SignInput(tx Tx, inputIndex int, privateKey *ecdsa.PrivateKey, utxos UTXOSet) (string, error) {
	if inputIndex < 0 || inputIndex >= len(tx.Inputs) {
		return "", fmt.Errorf("%w: input index %d out of range", ErrStructural, inputIndex)
	}

	in := tx.Inputs[inputIndex]
	utxo, exists := utxos.Lookup(in.OutPoint)
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrUnresolvedInput, in.OutPoint)
	}

	if signature.PublicKeyToAddress(privateKey.PublicKey) != utxo.Address {
		return "", fmt.Errorf("%w: key does not own output %s", ErrAuthorization, in.OutPoint)
	}

	sig, err := signature.Sign(tx.ID, privateKey)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrSignature, err)
	}

	return sig, nil
}

// Validate checks the transaction against the set of unspent outputs. This
// is not valid for a coinbase transaction, see ValidateCoinbase.
func (tx Tx) Validate(utxos UTXOSet) error {
	if err := tx.validateStructure(); err != nil {
		return err
	}

	spent := make(map[OutPoint]struct{}, len(tx.Inputs))

	var totalIn uint64
	for _, in := range tx.Inputs {
		if _, exists := spent[in.OutPoint]; exists {
			return fmt.Errorf("%w: %s spent twice in tx %s", ErrDuplicateInput, in.OutPoint, tx.ID)
		}
		spent[in.OutPoint] = struct{}{}

		utxo, exists := utxos.Lookup(in.OutPoint)
		if !exists {
			return fmt.Errorf("%w: %s", ErrUnresolvedInput, in.OutPoint)
		}

		if err := signature.Verify(tx.ID, in.Signature, utxo.Address); err != nil {
			return fmt.Errorf("%w: input %s: %s", ErrSignature, in.OutPoint, err)
		}

		var carry uint64
		if totalIn, carry = bits.Add64(totalIn, utxo.Amount, 0); carry != 0 {
			return fmt.Errorf("%w: input amounts overflow", ErrStructural)
		}
	}

	totalOut, err := tx.OutputTotal()
	if err != nil {
		return err
	}

	if totalIn != totalOut {
		return fmt.Errorf("%w: inputs %d, outputs %d", ErrAmountMismatch, totalIn, totalOut)
	}

	return nil
}

// ValidateCoinbase checks the transaction is the coinbase transaction for
// the block at the specified index.
func ValidateCoinbase(tx Tx, blockIndex uint64) error {
	if ComputeTxID(tx) != tx.ID {
		return fmt.Errorf("%w: coinbase id does not match content", ErrStructural)
	}

	if len(tx.Inputs) != 1 {
		return fmt.Errorf("%w: coinbase must have one input, got %d", ErrStructural, len(tx.Inputs))
	}

	in := tx.Inputs[0]
	if in.ID != "" || in.Signature != "" {
		return fmt.Errorf("%w: coinbase input must not reference an output", ErrStructural)
	}

	if in.Index != blockIndex {
		return fmt.Errorf("%w: coinbase index %d, block index %d", ErrStructural, in.Index, blockIndex)
	}

	if len(tx.Outputs) != 1 {
		return fmt.Errorf("%w: coinbase must have one output, got %d", ErrStructural, len(tx.Outputs))
	}

	out := tx.Outputs[0]
	if !signature.IsAddress(out.Address) {
		return fmt.Errorf("%w: coinbase address %q", ErrStructural, out.Address)
	}

	if out.Amount != CoinbaseAmount {
		return fmt.Errorf("%w: coinbase amount %d, exp %d", ErrStructural, out.Amount, CoinbaseAmount)
	}

	return nil
}

// OutputTotal sums the output amounts.
func (tx Tx) OutputTotal() (uint64, error) {
	var total uint64
	for _, out := range tx.Outputs {
		var carry uint64
		if total, carry = bits.Add64(total, out.Amount, 0); carry != 0 {
			return 0, fmt.Errorf("%w: output amounts overflow", ErrStructural)
		}
	}

	return total, nil
}

// Hash implements the merkle Hashable interface. The digest covers every
// field of the transaction, signatures included, so a block hash commits to
// the full content of its transactions. Variable length fields are length
// prefixed.
func (tx Tx) Hash() ([]byte, error) {
	buf := make([]byte, 0, 256)
	buf = appendField(buf, tx.ID)

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		buf = appendField(buf, in.ID)
		buf = binary.BigEndian.AppendUint64(buf, in.Index)
		buf = appendField(buf, in.Signature)
	}

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		buf = appendField(buf, out.Address)
		buf = binary.BigEndian.AppendUint64(buf, out.Amount)
	}

	sum := sha256.Sum256(buf)
	return sum[:], nil
}

// Equals implements the merkle Hashable interface and reports whether both
// transactions carry identical content.
func (tx Tx) Equals(other Tx) bool {
	if tx.ID != other.ID || len(tx.Inputs) != len(other.Inputs) || len(tx.Outputs) != len(other.Outputs) {
		return false
	}

	for i := range tx.Inputs {
		if tx.Inputs[i] != other.Inputs[i] {
			return false
		}
	}

	for i := range tx.Outputs {
		if tx.Outputs[i] != other.Outputs[i] {
			return false
		}
	}

	return true
}

// Clone returns a copy of the transaction that shares no memory.
func (tx Tx) Clone() Tx {
	return Tx{
		ID:      tx.ID,
		Inputs:  append([]TxIn(nil), tx.Inputs...),
		Outputs: append([]TxOut(nil), tx.Outputs...),
	}
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	if len(tx.ID) < 16 {
		return tx.ID
	}
	return tx.ID[:16]
}

// =============================================================================

// validateStructure checks the shape of a regular transaction.
func (tx Tx) validateStructure() error {
	if !signature.IsHash(tx.ID) {
		return fmt.Errorf("%w: malformed tx id %q", ErrStructural, tx.ID)
	}

	if len(tx.Inputs) == 0 {
		return fmt.Errorf("%w: tx %s has no inputs", ErrStructural, tx.ID)
	}

	if len(tx.Outputs) == 0 {
		return fmt.Errorf("%w: tx %s has no outputs", ErrStructural, tx.ID)
	}

	for _, in := range tx.Inputs {
		if !signature.IsHash(in.ID) {
			return fmt.Errorf("%w: malformed input reference %s", ErrStructural, in.OutPoint)
		}
	}

	for _, out := range tx.Outputs {
		if !signature.IsAddress(out.Address) {
			return fmt.Errorf("%w: malformed address %q", ErrStructural, out.Address)
		}
	}

	if ComputeTxID(tx) != tx.ID {
		return fmt.Errorf("%w: tx id %s does not match content", ErrStructural, tx.ID)
	}

	return nil
}

// appendField appends the length of the value followed by the value.
func appendField(buf []byte, value string) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(value)))
	return append(buf, value...)
}
