package cmd

import (
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Print the balance of the wallet or of an address",
	Args:  cobra.MaximumNArgs(1),
	RunE:  balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) error {
	var address string
	switch len(args) {
	case 1:
		address = args[0]

	default:
		privateKey, err := loadPrivateKey()
		if err != nil {
			return err
		}
		address = signature.PublicKeyToAddress(privateKey.PublicKey)
	}

	bal, err := newClient(url).balance(cmd.Context(), address)
	if err != nil {
		return err
	}

	fmt.Println("For Address:", bal.Address)
	fmt.Println(bal.Balance)
	for _, u := range bal.Unspent {
		fmt.Printf("  %s:%d  %s\n", u.TxID, u.Index, u.Value)
	}

	return nil
}
