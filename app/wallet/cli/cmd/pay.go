package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var newAddress bool

var payCmd = &cobra.Command{
	Use:   "pay",
	Short: "Ask the node to pay from its own wallets",
	RunE:  payRun,
}

func init() {
	rootCmd.AddCommand(payCmd)
	payCmd.Flags().StringVarP(&to, "to", "t", "", "Address to pay.")
	payCmd.Flags().StringVarP(&amount, "amount", "v", "", "Amount to send.")
	payCmd.Flags().BoolVar(&highPriority, "high", false, "Pay the high priority fee rate.")
	payCmd.Flags().BoolVar(&newAddress, "new-address", false, "Return the change to a new wallet of the node.")
	payCmd.MarkFlagRequired("to")
	payCmd.MarkFlagRequired("amount")
}

func payRun(cmd *cobra.Command, args []string) error {
	p := payment{
		To:           to,
		Amount:       amount,
		HighPriority: highPriority,
		NewAddress:   newAddress,
	}

	t, err := newClient(url).send(cmd.Context(), p)
	if err != nil {
		return err
	}

	fmt.Printf("transaction %s added to mempool: fee %s\n", t.ID, t.Fee)
	for _, out := range t.Outputs {
		fmt.Printf("  %s  %s\n", out.Address, out.Value)
	}

	return nil
}
