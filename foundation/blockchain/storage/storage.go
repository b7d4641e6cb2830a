// Package storage handles all the lower level support for persisting the
// node's state as a small set of named blobs.
package storage

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/utxo"
	"github.com/shopspring/decimal"
)

// Names of the blobs a node persists.
const (
	BlobChain   = "chain"
	BlobUTXOs   = "utxo"
	BlobWallets = "wallets"
)

// ErrNotFound is returned when a blob has never been written.
var ErrNotFound = errors.New("blob not found")

// Blobs is the behavior required by a backend to read and write named blobs.
type Blobs interface {
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
	Close() error
}

// WalletRecord is the persisted form of a wallet.
type WalletRecord struct {
	Address    string `cbor:"1,keyasint"`
	PrivateKey []byte `cbor:"2,keyasint"`
}

// =============================================================================

// Store encodes the node's state into blobs kept by a backend.
type Store struct {
	blobs Blobs
}

// New constructs a store on top of the specified backend.
func New(blobs Blobs) *Store {
	return &Store{blobs: blobs}
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.blobs.Close()
}

// ReadChain reads the persisted chain. ErrNotFound is returned when no chain
// has been saved yet.
func (s *Store) ReadChain() ([]database.Block, error) {
	var data []database.BlockData
	if err := s.read(BlobChain, &data); err != nil {
		return nil, err
	}

	blocks, err := database.ToBlocks(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", BlobChain, err)
	}

	return blocks, nil
}

// WriteChain persists the chain.
func (s *Store) WriteChain(blocks []database.Block) error {
	return s.write(BlobChain, database.NewBlocksData(blocks))
}

// ReadUTXOs reads the persisted ledger of unspent outputs.
func (s *Store) ReadUTXOs() (*utxo.Set, error) {
	var data []utxoData
	if err := s.read(BlobUTXOs, &data); err != nil {
		return nil, err
	}

	entries := make([]utxo.Entry, len(data))
	for i, ud := range data {
		value, err := decimal.NewFromString(ud.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: entry %d: %w", BlobUTXOs, i, err)
		}

		entries[i] = utxo.Entry{
			Key:  utxo.Key{TxID: ud.TxID, Index: ud.Index},
			UTXO: utxo.UTXO{Value: value, Address: ud.Address},
		}
	}

	return utxo.NewFromEntries(entries), nil
}

// WriteUTXOs persists the ledger of unspent outputs.
func (s *Store) WriteUTXOs(set *utxo.Set) error {
	entries := set.Entries()

	data := make([]utxoData, len(entries))
	for i, e := range entries {
		data[i] = utxoData{
			TxID:    e.Key.TxID,
			Index:   e.Key.Index,
			Value:   e.UTXO.Value.String(),
			Address: e.UTXO.Address,
		}
	}

	return s.write(BlobUTXOs, data)
}

// ReadWallets reads the persisted wallet registry keyed by node port.
func (s *Store) ReadWallets() (map[int][]WalletRecord, error) {
	var wallets map[int][]WalletRecord
	if err := s.read(BlobWallets, &wallets); err != nil {
		return nil, err
	}

	if wallets == nil {
		wallets = make(map[int][]WalletRecord)
	}

	return wallets, nil
}

// WriteWallets persists the wallet registry.
func (s *Store) WriteWallets(wallets map[int][]WalletRecord) error {
	return s.write(BlobWallets, wallets)
}

// ChainHeight returns the number of blocks in the persisted chain. Zero is
// returned when no chain has been saved.
func (s *Store) ChainHeight() (int, error) {
	blocks, err := s.ReadChain()
	switch {
	case errors.Is(err, ErrNotFound):
		return 0, nil
	case err != nil:
		return 0, err
	}

	return len(blocks), nil
}

// =============================================================================

func (s *Store) read(name string, v any) error {
	data, err := s.blobs.Read(name)
	if err != nil {
		return err
	}

	if err := Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	return nil
}

func (s *Store) write(name string, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	return s.blobs.Write(name, data)
}
