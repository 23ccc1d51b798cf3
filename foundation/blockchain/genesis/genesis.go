// Package genesis maintains access to the genesis block every chain must
// start with.
package genesis

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
)

//go:embed genesis.json
var content []byte

// block is decoded once at package initialization. Callers receive clones.
var block database.Block

func init() {
	if err := json.Unmarshal(content, &block); err != nil {
		panic(fmt.Sprintf("genesis: decoding block: %s", err))
	}
}

// Block returns a copy of the genesis block.
func Block() database.Block {
	return block.Clone()
}

// Matches reports whether the block is exactly the genesis block.
func Matches(b database.Block) bool {
	return block.Equals(b)
}

// Address returns the address the genesis coinbase pays.
func Address() string {
	return block.Trans[0].Outputs[0].Address
}
