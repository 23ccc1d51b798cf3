package commands

import (
	"fmt"
	"io"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
)

// Verify downloads the chain of the node and replays it from genesis.
func Verify(c *Client, w io.Writer) error {
	var chain []database.Block
	if err := c.get("/v1/blocks", &chain); err != nil {
		return err
	}

	utxos, err := state.ValidateChain(chain)
	if err != nil {
		return err
	}

	tip := chain[len(chain)-1]
	fmt.Fprintf(w, "Tip: %d  Hash: %s\n", tip.Index, tip.Hash)
	fmt.Fprintf(w, "Work: %s  Next Difficulty: %d  Unspent Outputs: %d\n", database.CumulativeWork(chain), database.RequiredDifficulty(chain), utxos.Len())

	return nil
}
