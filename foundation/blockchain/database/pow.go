package database

import (
	"context"
	"encoding/hex"
	"errors"
	"math"
	"runtime"
)

// powChunk is the number of nonces tried between cancellation checks.
const powChunk = 10_000

// ErrNonceExhausted is returned when every nonce was tried without success.
var ErrNonceExhausted = errors.New("nonce space exhausted")

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	PrevBlock  Block
	Trans      []Tx
	Difficulty uint
	Timestamp  int64
	EvHandler  func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic POW puzzle. The search starts at nonce 0 and
// terminates on success or when the context is cancelled.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	ev := args.EvHandler
	if ev == nil {
		ev = func(string, ...any) {}
	}

	nb := Block{
		Index:        args.PrevBlock.Index + 1,
		PreviousHash: args.PrevBlock.Hash,
		Timestamp:    args.Timestamp,
		Trans:        args.Trans,
		Difficulty:   args.Difficulty,
	}

	ev("database: POW: MINING: started: blk[%d] difficulty[%d] txs[%d]", nb.Index, nb.Difficulty, len(nb.Trans))
	defer ev("database: POW: MINING: completed: blk[%d]", nb.Index)

	for _, tx := range nb.Trans {
		ev("database: POW: MINING: tx[%s]", tx)
	}

	// Everything but the nonce is fixed for the whole search.
	prefix := nb.headerPrefix()

	var nonce uint64
	for {
		if err := ctx.Err(); err != nil {
			ev("database: POW: MINING: CANCELLED: attempts[%d]", nonce)
			return Block{}, err
		}

		end := nonce + powChunk
		if end < nonce {
			end = math.MaxUint64
		}

		for ; nonce < end; nonce++ {
			sum := hashHeader(prefix, nonce)
			if leadingZeroBits(sum[:]) < nb.Difficulty {
				continue
			}

			nb.Nonce = nonce
			nb.Hash = hex.EncodeToString(sum[:])

			ev("database: POW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: attempts[%d]", nb.PreviousHash, nb.Hash, nonce+1)
			return nb, nil
		}

		if nonce == math.MaxUint64 {
			return Block{}, ErrNonceExhausted
		}

		if nonce%1_000_000 == 0 {
			ev("database: POW: MINING: attempts[%d]", nonce)
		}

		runtime.Gosched()
	}
}
