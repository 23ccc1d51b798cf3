package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the address of the wallet",
	RunE:  addressRun,
}

func init() {
	rootCmd.AddCommand(addressCmd)
}

func addressRun(cmd *cobra.Command, args []string) error {
	ks, err := loadKey()
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), ks.PublicKey())
	return nil
}
