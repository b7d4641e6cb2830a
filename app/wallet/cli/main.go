// Wallet is a command line client to manage a key and send payments
// through a node.
package main

import "github.com/ardanlabs/utxochain/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
