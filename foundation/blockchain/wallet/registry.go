package wallet

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ardanlabs/utxochain/foundation/blockchain/storage"
)

// Registry maintains the wallets of every node port sharing a store.
type Registry struct {
	mu      sync.RWMutex
	wallets map[int][]Wallet
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		wallets: make(map[int][]Wallet),
	}
}

// Add registers the wallet for the port.
func (r *Registry) Add(port int, w Wallet) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.wallets[port] = append(r.wallets[port], w)
}

// Create generates a new wallet and registers it for the port.
func (r *Registry) Create(port int) (Wallet, error) {
	w, err := New()
	if err != nil {
		return Wallet{}, err
	}

	r.Add(port, w)

	return w, nil
}

// Ensure returns the first wallet of the port, creating one when the port
// has none. The boolean reports whether a wallet was created.
func (r *Registry) Ensure(port int) (Wallet, bool, error) {
	r.mu.RLock()
	wallets := r.wallets[port]
	r.mu.RUnlock()

	if len(wallets) > 0 {
		return wallets[0], false, nil
	}

	w, err := r.Create(port)
	if err != nil {
		return Wallet{}, false, err
	}

	return w, true, nil
}

// Wallets returns a copy of the wallets of the port.
func (r *Registry) Wallets(port int) []Wallet {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wallets := make([]Wallet, len(r.wallets[port]))
	copy(wallets, r.wallets[port])

	return wallets
}

// Addresses returns the addresses of the wallets of the port.
func (r *Registry) Addresses(port int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	addrs := make([]string, len(r.wallets[port]))
	for i, w := range r.wallets[port] {
		addrs[i] = w.Address
	}

	return addrs
}

// Ports returns the ports holding wallets in ascending order.
func (r *Registry) Ports() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ports := make([]int, 0, len(r.wallets))
	for port := range r.wallets {
		ports = append(ports, port)
	}
	sort.Ints(ports)

	return ports
}

// =============================================================================

// Load merges the wallets persisted in the store into the registry. Stored
// wallets come first, wallets only known in memory are kept after them.
func (r *Registry) Load(store *storage.Store) error {
	records, err := store.ReadWallets()
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil
	case err != nil:
		return err
	}

	wallets, err := fromRecords(records)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for port, inMemory := range r.wallets {
		stored := make(map[string]struct{}, len(wallets[port]))
		for _, w := range wallets[port] {
			stored[w.Address] = struct{}{}
		}

		for _, w := range inMemory {
			if _, exists := stored[w.Address]; !exists {
				wallets[port] = append(wallets[port], w)
			}
		}
	}

	r.wallets = wallets

	return nil
}

// Save merges the registry into the wallets persisted in the store. The
// ports held by this registry replace the stored ones, every other port
// stored by another node is kept.
func (r *Registry) Save(store *storage.Store) error {
	records, err := store.ReadWallets()
	switch {
	case errors.Is(err, storage.ErrNotFound):
		records = make(map[int][]storage.WalletRecord)
	case err != nil:
		return err
	}

	r.mu.RLock()
	for port, wallets := range r.wallets {
		recs := make([]storage.WalletRecord, len(wallets))
		for i, w := range wallets {
			recs[i] = storage.WalletRecord{Address: w.Address, PrivateKey: w.Bytes()}
		}
		records[port] = recs
	}
	r.mu.RUnlock()

	return store.WriteWallets(records)
}

func fromRecords(records map[int][]storage.WalletRecord) (map[int][]Wallet, error) {
	wallets := make(map[int][]Wallet, len(records))

	for port, recs := range records {
		for i, rec := range recs {
			w, err := FromBytes(rec.PrivateKey)
			if err != nil {
				return nil, fmt.Errorf("port %d: wallet %d: %w", port, i, err)
			}

			if w.Address != rec.Address {
				return nil, fmt.Errorf("port %d: wallet %d: address %s does not match key", port, i, rec.Address)
			}

			wallets[port] = append(wallets[port], w)
		}
	}

	return wallets, nil
}
