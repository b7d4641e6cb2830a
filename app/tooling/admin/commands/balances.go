package commands

import (
	"fmt"
	"sort"

	"github.com/ardanlabs/utxochain/foundation/blockchain/storage"
	"github.com/shopspring/decimal"
)

// Balances prints the balance of every address holding unspent outputs in
// the persisted ledger, or of the address passed as argument.
func Balances(args []string, store *storage.Store) error {
	var onlyAddr string
	if len(args) > 3 {
		onlyAddr = args[3]
	}

	set, err := store.ReadUTXOs()
	if err != nil {
		return err
	}

	balances := make(map[string]decimal.Decimal)
	for _, e := range set.Entries() {
		if onlyAddr != "" && e.UTXO.Address != onlyAddr {
			continue
		}
		balances[e.UTXO.Address] = balances[e.UTXO.Address].Add(e.UTXO.Value)
	}

	addrs := make([]string, 0, len(balances))
	for addr := range balances {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	fmt.Printf("Unspent outputs: %d\n\n", set.Len())

	for _, addr := range addrs {
		fmt.Printf("Address: %s  Balance: %s\n", addr, balances[addr])
	}

	return nil
}
