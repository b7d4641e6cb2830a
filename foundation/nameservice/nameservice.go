// Package nameservice reads the zblock/accounts folder and creates a name
// service lookup for the node addresses.
package nameservice

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

// keyExt is the extension of the private key files.
const keyExt = ".ecdsa"

// NameService maintains a map of addresses for name lookup.
type NameService struct {
	root      string
	addresses map[string]string
	keys      map[string]*ecdsa.PrivateKey
}

// New constructs a name service with the key files of the folder. A missing
// folder gives an empty name service.
func New(root string) (*NameService, error) {
	ns := NameService{
		root:      root,
		addresses: make(map[string]string),
		keys:      make(map[string]*ecdsa.PrivateKey),
	}

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if path.Ext(fileName) != keyExt {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return fmt.Errorf("%s: %w", fileName, err)
		}

		name := strings.TrimSuffix(path.Base(fileName), keyExt)
		ns.addresses[signature.PublicKeyToAddress(privateKey.PublicKey)] = name
		ns.keys[name] = privateKey

		return nil
	}

	if err := filepath.Walk(root, fn); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified address.
func (ns *NameService) Lookup(address string) string {
	name, exists := ns.addresses[address]
	if !exists {
		return address
	}
	return name
}

// PrivateKey returns the key loaded from the file with the specified name.
func (ns *NameService) PrivateKey(name string) (*ecdsa.PrivateKey, bool) {
	pk, exists := ns.keys[name]
	return pk, exists
}

// Create generates a key, writes it to the folder of the name service and
// registers it under the name.
func (ns *NameService) Create(name string) (*ecdsa.PrivateKey, error) {
	if _, exists := ns.keys[name]; exists {
		return nil, fmt.Errorf("name %q already exists", name)
	}

	privateKey, err := signature.GenerateKey()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(ns.root, 0755); err != nil {
		return nil, fmt.Errorf("creating folder: %w", err)
	}

	if err := crypto.SaveECDSA(filepath.Join(ns.root, name+keyExt), privateKey); err != nil {
		return nil, fmt.Errorf("saving key: %w", err)
	}

	ns.addresses[signature.PublicKeyToAddress(privateKey.PublicKey)] = name
	ns.keys[name] = privateKey

	return privateKey, nil
}

// Copy returns a copy of the map of addresses and names.
func (ns *NameService) Copy() map[string]string {
	cpy := make(map[string]string, len(ns.addresses))
	for address, name := range ns.addresses {
		cpy[address] = name
	}
	return cpy
}
