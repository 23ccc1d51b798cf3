package database

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/bits"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/merkle"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
)

// MaxDifficulty is the number of bits in a hash. No block can ask for more
// leading zero bits than that.
const MaxDifficulty = 256

// TimestampTolerance is how far, in seconds, a block timestamp may drift
// behind its parent or ahead of the local clock.
const TimestampTolerance = 60

// =============================================================================

// Block represents a group of transactions batched together and linked to the
// previous block by its hash.
type Block struct {
	Index        uint64 `json:"index"`         // Position in the chain, genesis is 0.
	Hash         string `json:"hash"`          // Hash of the fields below, see CalculateHash.
	PreviousHash string `json:"previous_hash"` // Hash of the previous block in the chain.
	Timestamp    int64  `json:"timestamp"`     // Time the block was mined in unix seconds.
	Trans        []Tx   `json:"data"`          // Coinbase first, then regular transactions.
	Difficulty   uint   `json:"difficulty"`    // Number of leading zero bits the hash needs.
	Nonce        uint64 `json:"nonce"`         // Value identified to solve the hash solution.
}

// CalculateHash recomputes the hash of the block from its content.
//
// The preimage is the big endian encoding of index (8 bytes), the length of
// the previous hash (4 bytes) followed by its characters, timestamp
// (8 bytes), the merkle root of the transactions (32 bytes), the number of
// transactions (4 bytes), difficulty (4 bytes) and nonce (8 bytes).
func (b Block) CalculateHash() string {
	sum := hashHeader(b.headerPrefix(), b.Nonce)
	return hex.EncodeToString(sum[:])
}

// TransRoot returns the merkle root of the block transactions.
func (b Block) TransRoot() []byte {
	tree, err := merkle.NewTree(b.Trans)
	if err != nil {
		return make([]byte, sha256.Size)
	}
	return tree.MerkleRoot
}

// ValidateStructure checks the shape of the block.
func (b Block) ValidateStructure() error {
	if !signature.IsHash(b.Hash) {
		return fmt.Errorf("%w: malformed block hash %q", ErrStructural, b.Hash)
	}

	if b.Index > 0 && !signature.IsHash(b.PreviousHash) {
		return fmt.Errorf("%w: malformed previous hash %q", ErrStructural, b.PreviousHash)
	}

	if b.Difficulty > MaxDifficulty {
		return fmt.Errorf("%w: difficulty %d above %d", ErrStructural, b.Difficulty, MaxDifficulty)
	}

	if len(b.Trans) == 0 {
		return fmt.Errorf("%w: block %d has no transactions", ErrStructural, b.Index)
	}

	ids := make(map[string]struct{}, len(b.Trans))
	for _, tx := range b.Trans {
		if _, exists := ids[tx.ID]; exists {
			return fmt.Errorf("%w: block %d holds tx %s twice", ErrStructural, b.Index, tx.ID)
		}
		ids[tx.ID] = struct{}{}
	}

	return nil
}

// ValidateBlock takes a block and validates it can follow the previous block.
// Transactions are validated separately against the set of unspent outputs.
func (b Block) ValidateBlock(previousBlock Block, now time.Time) error {
	if err := b.ValidateStructure(); err != nil {
		return err
	}

	if b.Index != previousBlock.Index+1 {
		return fmt.Errorf("%w: block index %d, exp %d", ErrLinkage, b.Index, previousBlock.Index+1)
	}

	if b.PreviousHash != previousBlock.Hash {
		return fmt.Errorf("%w: previous hash %s, exp %s", ErrLinkage, b.PreviousHash, previousBlock.Hash)
	}

	if !TimestampValid(b, previousBlock, now) {
		return fmt.Errorf("%w: block timestamp %d, parent %d, now %d", ErrTimestamp, b.Timestamp, previousBlock.Timestamp, now.Unix())
	}

	if !HashMatches(b) {
		return fmt.Errorf("%w: block hash %s does not solve difficulty %d", ErrProofOfWork, b.Hash, b.Difficulty)
	}

	return nil
}

// Equals reports whether both blocks carry identical content.
func (b Block) Equals(other Block) bool {
	if b.Index != other.Index || b.Hash != other.Hash || b.PreviousHash != other.PreviousHash ||
		b.Timestamp != other.Timestamp || b.Difficulty != other.Difficulty || b.Nonce != other.Nonce ||
		len(b.Trans) != len(other.Trans) {
		return false
	}

	for i := range b.Trans {
		if !b.Trans[i].Equals(other.Trans[i]) {
			return false
		}
	}

	return true
}

// Clone returns a copy of the block that shares no memory.
func (b Block) Clone() Block {
	trans := make([]Tx, len(b.Trans))
	for i, tx := range b.Trans {
		trans[i] = tx.Clone()
	}
	b.Trans = trans

	return b
}

// =============================================================================

// TimestampValid checks the block is no more than a minute older than its
// parent and no more than a minute ahead of the local clock.
func TimestampValid(candidate Block, previousBlock Block, now time.Time) bool {
	return candidate.Timestamp > previousBlock.Timestamp-TimestampTolerance &&
		candidate.Timestamp < now.Unix()+TimestampTolerance
}

// HashMatches checks the block hash is the hash of its content and that it
// has at least difficulty leading zero bits.
func HashMatches(b Block) bool {
	if b.CalculateHash() != b.Hash {
		return false
	}

	return HashSolved(b.Hash, b.Difficulty)
}

// HashSolved checks the hex hash has at least difficulty leading zero bits
// in its binary expansion. Each hex character contributes four bits.
func HashSolved(hash string, difficulty uint) bool {
	if difficulty == 0 {
		return true
	}

	var zeros uint
	for i := 0; i < len(hash) && zeros < difficulty; i++ {
		v, ok := nibble(hash[i])
		if !ok {
			return false
		}

		if v == 0 {
			zeros += 4
			continue
		}

		zeros += uint(bits.LeadingZeros8(v) - 4)
		break
	}

	return zeros >= difficulty
}

// =============================================================================

// headerPrefix encodes every hashed field except the trailing nonce.
func (b Block) headerPrefix() []byte {
	buf := make([]byte, 0, 8+4+len(b.PreviousHash)+8+sha256.Size+4+4)
	buf = binary.BigEndian.AppendUint64(buf, b.Index)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(b.PreviousHash)))
	buf = append(buf, b.PreviousHash...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(b.Timestamp))
	buf = append(buf, b.TransRoot()...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(b.Trans)))
	buf = binary.BigEndian.AppendUint32(buf, uint32(b.Difficulty))

	return buf
}

// hashHeader completes the preimage with the nonce and hashes it.
func hashHeader(prefix []byte, nonce uint64) [sha256.Size]byte {
	h := sha256.New()
	h.Write(prefix)

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	h.Write(n[:])

	var sum [sha256.Size]byte
	h.Sum(sum[:0])

	return sum
}

// leadingZeroBits counts the leading zero bits of the digest.
func leadingZeroBits(sum []byte) uint {
	var zeros uint
	for _, b := range sum {
		if b == 0 {
			zeros += 8
			continue
		}
		zeros += uint(bits.LeadingZeros8(b))
		break
	}
	return zeros
}

// nibble converts a hex character into its value.
func nibble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
