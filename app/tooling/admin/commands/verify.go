package commands

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage"
)

// Verify replays the persisted chain from genesis and compares the result
// against the persisted ledger.
func Verify(store *storage.Store, gen genesis.Genesis, evHandler func(v string, args ...any)) error {
	blocks, err := store.ReadChain()
	if err != nil {
		return err
	}

	result := database.Replay(blocks, gen, evHandler)
	if !result.Accepted() {
		fmt.Printf("Chain rejected: valid blocks %d of %d: %s\n", result.ValidPrefix(), len(blocks), result.Err)
		return result.Err
	}
	fmt.Printf("Chain accepted: blocks %d\n", len(blocks))

	stored, err := store.ReadUTXOs()
	switch {
	case errors.Is(err, storage.ErrNotFound):
		fmt.Println("No persisted ledger")
		return nil

	case err != nil:
		return err
	}

	if !stored.Equal(result.UTXOs) {
		return fmt.Errorf("persisted ledger has %d outputs, the chain produces %d", stored.Len(), result.UTXOs.Len())
	}
	fmt.Printf("Ledger matches: unspent outputs %d\n", stored.Len())

	return nil
}
