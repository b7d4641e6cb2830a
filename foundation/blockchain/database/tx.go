package database

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/blockchain/utxo"
	"github.com/shopspring/decimal"
)

// Sentinel source ids used by inputs that don't spend a prior output.
const (
	GenesisID     = "genesis"
	rewardPrefix  = "reward"
	SentinelIndex = -1
)

// RewardID returns the sentinel source id for the reward input of the
// block at the specified height.
func RewardID(height int) string {
	return rewardPrefix + strconv.Itoa(height)
}

// =============================================================================

// Input references the output being spent along with the proof the spender
// owns it.
type Input struct {
	TxID        string // Id of the transaction that created the output.
	OutputIndex int    // Position of the output in that transaction.
	Signature   []byte // Signature over the transaction canonical string.
	PublicKey   []byte // Uncompressed public key of the owner.
}

// Key returns the ledger key of the output being spent.
func (in Input) Key() utxo.Key {
	return utxo.Key{TxID: in.TxID, Index: in.OutputIndex}
}

// IsSentinel reports whether the input is a genesis or reward input.
func (in Input) IsSentinel() bool {
	if in.OutputIndex != SentinelIndex {
		return false
	}

	return in.TxID == GenesisID || strings.HasPrefix(in.TxID, rewardPrefix)
}

// SignatureString returns the signature as a hex string.
func (in Input) SignatureString() string {
	return signature.SignatureString(in.Signature)
}

// Output is a value assigned to an address.
type Output struct {
	Value   decimal.Decimal
	Address string
}

// =============================================================================

// Tx is a transfer of value from a set of unspent outputs to a set of new
// outputs. The difference between the inputs and outputs is the fee paid to
// the miner.
type Tx struct {
	Inputs  []Input
	Outputs []Output
	Fee     decimal.Decimal
	ID      string
}

// NewTx constructs a transaction and computes its id.
func NewTx(inputs []Input, outputs []Output) Tx {
	tx := Tx{
		Inputs:  inputs,
		Outputs: outputs,
		Fee:     decimal.Zero,
	}
	tx.ID = tx.computeID()

	return tx
}

// NewGenesisTx constructs the transaction paying the founder in the first
// block of the chain.
func NewGenesisTx(address string, value decimal.Decimal) Tx {
	inputs := []Input{{TxID: GenesisID, OutputIndex: SentinelIndex}}
	outputs := []Output{{Value: value, Address: address}}

	return NewTx(inputs, outputs)
}

// NewRewardTx constructs the unsigned transaction paying the miner of the
// block at the specified height.
func NewRewardTx(height int, address string, value decimal.Decimal) Tx {
	inputs := []Input{{TxID: RewardID(height), OutputIndex: SentinelIndex}}
	outputs := []Output{{Value: value, Address: address}}

	return NewTx(inputs, outputs)
}

// CanonicalString returns the string the transaction id and the signatures
// are computed over: every input's source id and output index followed by
// every output's value.
func (tx Tx) CanonicalString() string {
	var b strings.Builder

	for _, in := range tx.Inputs {
		b.WriteString(in.TxID)
		b.WriteString(strconv.Itoa(in.OutputIndex))
	}

	for _, out := range tx.Outputs {
		b.WriteString(out.Value.String())
	}

	return b.String()
}

// Hash implements the merkle Hashable interface. The leaf of a transaction
// is the sha256 of its canonical string.
func (tx Tx) Hash() ([]byte, error) {
	hash := sha256.Sum256([]byte(tx.CanonicalString()))
	return hash[:], nil
}

// VerifyID checks the id matches the content of the transaction.
func (tx Tx) VerifyID() error {
	if id := tx.computeID(); id != tx.ID {
		return fmt.Errorf("transaction id mismatch, got %s, exp %s", tx.ID, id)
	}

	return nil
}

// IsGenesis reports whether this is the founder transaction.
func (tx Tx) IsGenesis() bool {
	return len(tx.Inputs) == 1 && tx.Inputs[0].TxID == GenesisID && tx.Inputs[0].OutputIndex == SentinelIndex
}

// IsReward reports whether this is a miner reward transaction.
func (tx Tx) IsReward() bool {
	return len(tx.Inputs) == 1 && !tx.IsGenesis() && tx.Inputs[0].IsSentinel()
}

// OutputKey returns the ledger key for the output at the specified index.
func (tx Tx) OutputKey(index int) utxo.Key {
	return utxo.Key{TxID: tx.ID, Index: index}
}

// TotalOutput sums the value of all the outputs.
func (tx Tx) TotalOutput() decimal.Decimal {
	total := decimal.Zero
	for _, out := range tx.Outputs {
		total = total.Add(out.Value)
	}

	return total
}

// Sign signs every input with the key returned by the lookup function for
// that input. All inputs sign the same canonical string.
func (tx *Tx) Sign(keyFor func(in Input) (*ecdsa.PrivateKey, error)) error {
	data := tx.CanonicalString()

	for i := range tx.Inputs {
		privateKey, err := keyFor(tx.Inputs[i])
		if err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}

		sig, err := signature.Sign(data, privateKey)
		if err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}

		tx.Inputs[i].Signature = sig
		tx.Inputs[i].PublicKey = signature.PublicKeyBytes(privateKey.PublicKey)
	}

	return nil
}

// SignWith signs every input with the same private key.
func (tx *Tx) SignWith(privateKey *ecdsa.PrivateKey) error {
	return tx.Sign(func(Input) (*ecdsa.PrivateKey, error) {
		return privateKey, nil
	})
}

// String implements the Stringer interface for logging.
func (tx Tx) String() string {
	id := tx.ID
	if len(id) > 16 {
		id = id[:16]
	}

	return fmt.Sprintf("%s[in:%d out:%d value:%s fee:%s]", id, len(tx.Inputs), len(tx.Outputs), tx.TotalOutput(), tx.Fee)
}

// computeID hashes the canonical string.
func (tx Tx) computeID() string {
	return signature.Hash(tx.CanonicalString())
}
