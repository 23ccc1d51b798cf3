package cmd

import (
	"fmt"
	"net/http"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

type payment struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
	Key     string `json:"key"`
}

var (
	to     string
	amount uint64
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send value to an address",
	RunE:  sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address to send to.")
	sendCmd.Flags().Uint64VarP(&amount, "amount", "m", 0, "Amount to send.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.MarkFlagRequired("amount")
}

func sendRun(cmd *cobra.Command, args []string) error {
	ks, err := loadKey()
	if err != nil {
		return err
	}

	pay := payment{
		Address: to,
		Amount:  amount,
		Key:     ks.Hex(),
	}

	var tx database.Tx
	if err := call(http.MethodPost, fmt.Sprintf("%s/v1/tx/send", url), pay, &tx); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), tx.ID)
	return nil
}
