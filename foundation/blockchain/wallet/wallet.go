// Package wallet manages the key pairs owned by the users of a node and
// builds the signed transactions spending their outputs.
package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"sort"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/blockchain/utxo"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// Estimated sizes in bytes used to price a transaction.
const (
	inputSize  = 148
	outputSize = 34
	overhead   = 10
)

// Fee rates per estimated byte.
var (
	normalRate = decimal.RequireFromString("0.001")
	highRate   = decimal.RequireFromString("0.005")
)

// ErrNoWallets is returned when a port has no wallets to spend from.
var ErrNoWallets = errors.New("no wallets")

// =============================================================================

// Wallet is a key pair and the address derived from its public key.
type Wallet struct {
	PrivateKey *ecdsa.PrivateKey
	Address    string
}

// New generates a wallet with a fresh key pair.
func New() (Wallet, error) {
	privateKey, err := signature.GenerateKey()
	if err != nil {
		return Wallet{}, err
	}

	return FromKey(privateKey), nil
}

// FromKey constructs the wallet for an existing private key.
func FromKey(privateKey *ecdsa.PrivateKey) Wallet {
	return Wallet{
		PrivateKey: privateKey,
		Address:    signature.PublicKeyToAddress(privateKey.PublicKey),
	}
}

// FromBytes constructs the wallet for a serialized private key.
func FromBytes(key []byte) (Wallet, error) {
	privateKey, err := crypto.ToECDSA(key)
	if err != nil {
		return Wallet{}, fmt.Errorf("private key: %w", err)
	}

	return FromKey(privateKey), nil
}

// Bytes serializes the private key.
func (w Wallet) Bytes() []byte {
	return crypto.FromECDSA(w.PrivateKey)
}

// =============================================================================

// EstimateSize returns the estimated size in bytes of a transaction.
func EstimateSize(inputs int, outputs int) int {
	return inputs*inputSize + outputs*outputSize + overhead
}

// EstimateFee prices a transaction by its estimated size.
func EstimateFee(inputs int, outputs int, highPriority bool) decimal.Decimal {
	rate := normalRate
	if highPriority {
		rate = highRate
	}

	return rate.Mul(decimal.NewFromInt(int64(EstimateSize(inputs, outputs))))
}

// BuildArgs represents the set of arguments required to build a payment.
type BuildArgs struct {
	To            string
	Amount        decimal.Decimal
	HighPriority  bool
	ChangeAddress string
}

// Build selects outputs owned by the wallets, largest first and skipping the
// ones reported as spent, until the amount is covered. The payment output is
// added, the change and fee are computed and every input is signed by the
// key owning the output it spends.
func Build(wallets []Wallet, set *utxo.Set, spent func(utxo.Key) bool, args BuildArgs) (database.Tx, error) {
	if len(wallets) == 0 {
		return database.Tx{}, ErrNoWallets
	}

	if !args.Amount.IsPositive() {
		return database.Tx{}, fmt.Errorf("amount must be positive, got %s", args.Amount)
	}

	if !signature.ValidAddress(args.To) {
		return database.Tx{}, fmt.Errorf("invalid recipient address %q", args.To)
	}

	keys := make(map[string]*ecdsa.PrivateKey, len(wallets))
	var candidates []utxo.Entry
	for _, w := range wallets {
		if _, exists := keys[w.Address]; exists {
			continue
		}
		keys[w.Address] = w.PrivateKey
		candidates = append(candidates, set.ForAddress(w.Address)...)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].UTXO.Value.GreaterThan(candidates[j].UTXO.Value)
	})

	var inputs []database.Input
	collected := decimal.Zero
	for _, e := range candidates {
		if collected.GreaterThanOrEqual(args.Amount) {
			break
		}

		if spent != nil && spent(e.Key) {
			continue
		}

		inputs = append(inputs, database.Input{TxID: e.Key.TxID, OutputIndex: e.Key.Index})
		collected = collected.Add(e.UTXO.Value)
	}

	if collected.LessThan(args.Amount) {
		return database.Tx{}, fmt.Errorf("%w: balance %s, amount %s", database.ErrInsufficientFunds, collected, args.Amount)
	}

	tx := database.NewTx(inputs, []database.Output{{Value: args.Amount, Address: args.To}})

	changeAddress := args.ChangeAddress
	if changeAddress == "" {
		changeAddress = wallets[0].Address
	}

	fee := EstimateFee(len(inputs), len(tx.Outputs)+1, args.HighPriority)
	if err := database.ComputeChangeAndFee(&tx, set, fee, changeAddress); err != nil {
		return database.Tx{}, err
	}

	err := tx.Sign(func(in database.Input) (*ecdsa.PrivateKey, error) {
		u, exists := set.Get(in.Key())
		if !exists {
			return nil, fmt.Errorf("output %s is not unspent", in.Key())
		}

		privateKey, exists := keys[u.Address]
		if !exists {
			return nil, fmt.Errorf("no key for address %s", u.Address)
		}

		return privateKey, nil
	})
	if err != nil {
		return database.Tx{}, err
	}

	return tx, nil
}
