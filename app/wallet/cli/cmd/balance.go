package cmd

import (
	"fmt"
	"net/http"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

type outputs struct {
	Address string          `json:"address"`
	Balance uint64          `json:"balance"`
	Outputs []database.UTXO `json:"outputs"`
}

var verbose bool

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance",
	RunE:  balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List the unspent outputs.")
}

func balanceRun(cmd *cobra.Command, args []string) error {
	ks, err := loadKey()
	if err != nil {
		return err
	}

	var outs outputs
	if err := call(http.MethodGet, fmt.Sprintf("%s/v1/outputs/%s", url, ks.PublicKey()), nil, &outs); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "For Address:", outs.Address)
	fmt.Fprintln(w, outs.Balance)

	if verbose {
		for _, utxo := range outs.Outputs {
			fmt.Fprintf(w, "%s\t%d\n", utxo.OutPoint, utxo.Amount)
		}
	}

	return nil
}
