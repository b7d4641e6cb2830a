// Package commands contains the functionality for the admin commands.
package commands

import (
	"fmt"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/storage"
)

// Chain prints the header of every persisted block.
func Chain(args []string, store *storage.Store) error {
	blocks, err := store.ReadChain()
	if err != nil {
		return err
	}

	for _, b := range blocks {
		fmt.Printf("Height: %d  Hash: %s  Prev: %s  Time: %s  Trans: %d\n",
			b.Height, b.Hash, b.PrevHash, time.UnixMilli(b.Timestamp).UTC().Format(time.RFC3339), len(b.Trans))
	}

	return nil
}
