// This program performs administrative tasks against the persisted state
// of a stopped node.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ardanlabs/utxochain/app/tooling/admin/commands"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage/boltdb"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/utxochain/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

const usage = `usage: admin <command> <store path> [args]

commands:
  chain                    list the persisted blocks
  balances [address]       list the persisted unspent balances
  verify                   replay the persisted chain from genesis

A store path ending in .db is opened as a bolt file, anything else as a
disk folder.`

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	if len(os.Args) < 3 {
		fmt.Println(usage)
		return errors.New("missing arguments")
	}

	blobs, err := openBlobs(os.Args[2])
	if err != nil {
		return err
	}

	store := storage.New(blobs)
	defer store.Close()

	log.Infow("admin", "version", build, "command", os.Args[1], "store", os.Args[2])

	return processCommands(os.Args, store, log)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args []string, store *storage.Store, log *zap.SugaredLogger) error {
	switch args[1] {
	case "chain":
		if err := commands.Chain(args, store); err != nil {
			return fmt.Errorf("listing chain: %w", err)
		}

	case "balances":
		if err := commands.Balances(args, store); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}

	case "verify":
		gen, err := genesis.LoadOrDefault(genesisPath())
		if err != nil {
			return fmt.Errorf("loading genesis: %w", err)
		}

		ev := func(v string, args ...any) {
			log.Infow(fmt.Sprintf(v, args...))
		}

		if err := commands.Verify(store, gen, ev); err != nil {
			return fmt.Errorf("verifying chain: %w", err)
		}

	default:
		fmt.Println(usage)
		return fmt.Errorf("unknown command %q", args[1])
	}

	return nil
}

func openBlobs(path string) (storage.Blobs, error) {
	if strings.HasSuffix(path, ".db") {
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
		return boltdb.New(path)
	}

	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return disk.New(path)
}

func genesisPath() string {
	if path := os.Getenv("ADMIN_GENESIS_FILE"); path != "" {
		return path
	}
	return "zblock/genesis.json"
}
