package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
)

// Transactions prints a committed transaction after checking its merkle
// proof against the root of the block holding it.
func Transactions(args []string, c *Client, w io.Writer) error {
	if len(args) < 3 {
		return errors.New("missing transaction id")
	}

	var record state.TxRecord
	if err := c.get("/v1/transactions/"+args[2], &record); err != nil {
		return err
	}

	if err := record.Verify(); err != nil {
		return err
	}

	fmt.Fprintf(w, "Block: %d  Hash: %s\n", record.BlockIndex, record.BlockHash)
	fmt.Fprintf(w, "Root: %s  Proof: verified\n\n", record.TransRoot)

	for _, in := range record.Tx.Inputs {
		fmt.Fprintf(w, "In:  %s\n", in.OutPoint)
	}
	for i, out := range record.Tx.Outputs {
		fmt.Fprintf(w, "Out: %s:%d  Address: %s  Amount: %d\n", record.Tx.ID, i, out.Address, out.Amount)
	}

	return nil
}
