package cmd

import (
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/blockchain/utxo"
	"github.com/ardanlabs/utxochain/foundation/blockchain/wallet"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	to           string
	amount       string
	highPriority bool
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Sign a payment with the wallet key and submit it to the node",
	RunE:  sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address to pay.")
	sendCmd.Flags().StringVarP(&amount, "amount", "v", "", "Amount to send.")
	sendCmd.Flags().BoolVar(&highPriority, "high", false, "Pay the high priority fee rate.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.MarkFlagRequired("amount")
}

func sendRun(cmd *cobra.Command, args []string) error {
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}

	privateKey, err := loadPrivateKey()
	if err != nil {
		return err
	}
	w := wallet.FromKey(privateKey)

	ctx := cmd.Context()
	c := newClient(url)

	bal, err := c.balance(ctx, w.Address)
	if err != nil {
		return err
	}

	set, err := toSet(bal)
	if err != nil {
		return err
	}

	// Outputs spent by pending transactions can't be selected again.
	pending, err := c.mempool(ctx)
	if err != nil {
		return err
	}
	spent := make(map[utxo.Key]bool)
	for _, t := range pending {
		for _, in := range t.Inputs {
			spent[utxo.Key{TxID: in.TxID, Index: in.OutputIndex}] = true
		}
	}

	buildArgs := wallet.BuildArgs{
		To:            to,
		Amount:        value,
		HighPriority:  highPriority,
		ChangeAddress: signature.PublicKeyToAddress(privateKey.PublicKey),
	}

	dbTx, err := wallet.Build([]wallet.Wallet{w}, set, func(k utxo.Key) bool { return spent[k] }, buildArgs)
	if err != nil {
		return err
	}

	resp, err := c.submit(ctx, toTx(dbTx))
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s: fee %s\n", resp.Status, resp.ID, dbTx.Fee)
	return nil
}

// toSet rebuilds the unspent outputs of the address reported by the node.
func toSet(bal balance) (*utxo.Set, error) {
	set := utxo.New()
	for _, u := range bal.Unspent {
		value, err := decimal.NewFromString(u.Value)
		if err != nil {
			return nil, fmt.Errorf("unspent %s:%d: %w", u.TxID, u.Index, err)
		}
		set.Add(utxo.Key{TxID: u.TxID, Index: u.Index}, utxo.UTXO{Value: value, Address: bal.Address})
	}

	return set, nil
}
