package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
)

// Balances prints the balance of every address holding unspent outputs, or
// of a single address when one is provided.
func Balances(args []string, c *Client, w io.Writer) error {
	var onlyAddr string
	if len(args) == 3 {
		onlyAddr = args[2]
	}

	var utxos []database.UTXO
	if err := c.get("/v1/outputs", &utxos); err != nil {
		return err
	}

	bals := make(map[string]uint64)
	for _, utxo := range utxos {
		if onlyAddr != "" && utxo.Address != onlyAddr {
			continue
		}
		bals[utxo.Address] += utxo.Amount
	}

	addrs := make([]string, 0, len(bals))
	for addr := range bals {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	fmt.Fprintf(w, "Unspent Outputs: %d\n\n", len(utxos))
	for _, addr := range addrs {
		fmt.Fprintf(w, "Address: %s  Balance: %d\n", addr, bals[addr])
	}

	return nil
}
