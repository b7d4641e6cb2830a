package database

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/blockchain/utxo"
	"github.com/shopspring/decimal"
)

// Set of error variables for the consensus rules.
var (
	ErrChainRejected     = errors.New("chain rejected")
	ErrTxRejected        = errors.New("transaction rejected")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// feeReduction is the divisor applied to the fee while the change would be
// negative.
var feeReduction = decimal.NewFromInt(10)

// =============================================================================

// ValidateTransaction checks the structure of the transaction and verifies
// the signature of every input against its declared public key. Sentinel
// inputs carry no signature and are skipped.
func ValidateTransaction(tx Tx) error {
	if len(tx.Inputs) == 0 {
		return fmt.Errorf("%w: %s: no inputs", ErrTxRejected, tx.ID)
	}

	if len(tx.Outputs) == 0 {
		return fmt.Errorf("%w: %s: no outputs", ErrTxRejected, tx.ID)
	}

	for i, out := range tx.Outputs {
		if out.Value.IsNegative() {
			return fmt.Errorf("%w: %s: output %d has a negative value", ErrTxRejected, tx.ID, i)
		}
	}

	data := tx.CanonicalString()
	for i, in := range tx.Inputs {
		if in.IsSentinel() {
			continue
		}

		if err := signature.Verify(data, in.PublicKey, in.Signature); err != nil {
			return fmt.Errorf("%w: %s: input %d: %w", ErrTxRejected, tx.ID, i, err)
		}
	}

	return nil
}

// CheckInputs resolves every input of a signed transaction against the set.
// Each input must be unspent, owned by the address of the key that signed
// it and used once. The inputs must cover the outputs. The total value of
// the inputs is returned.
func CheckInputs(tx Tx, set *utxo.Set) (decimal.Decimal, error) {
	total := decimal.Zero
	seen := make(map[utxo.Key]struct{}, len(tx.Inputs))

	for i, in := range tx.Inputs {
		if in.IsSentinel() {
			return decimal.Zero, fmt.Errorf("%w: %s: input %d: sentinel input in a user transaction", ErrTxRejected, tx.ID, i)
		}

		key := in.Key()
		if _, exists := seen[key]; exists {
			return decimal.Zero, fmt.Errorf("%w: %s: input %d: output %s spent twice", ErrTxRejected, tx.ID, i, key)
		}
		seen[key] = struct{}{}

		u, exists := set.Get(key)
		if !exists {
			return decimal.Zero, fmt.Errorf("%w: %s: input %d: output %s is not unspent", ErrTxRejected, tx.ID, i, key)
		}

		if owner := signature.Address(in.PublicKey); owner != u.Address {
			return decimal.Zero, fmt.Errorf("%w: %s: input %d: output %s not owned by %s", ErrTxRejected, tx.ID, i, key, owner)
		}

		total = total.Add(u.Value)
	}

	if total.LessThan(tx.TotalOutput()) {
		return decimal.Zero, fmt.Errorf("%w: %s: outputs %s exceed inputs %s", ErrTxRejected, tx.ID, tx.TotalOutput(), total)
	}

	return total, nil
}

// ComputeChangeAndFee finalizes an unsigned transaction. The requested fee
// is reduced by a factor of ten while the change would be negative. A
// positive change is returned to the change address as a new output and the
// fee is kept. When the change is exactly zero no fee is paid. The id of the
// transaction is recomputed.
func ComputeChangeAndFee(tx *Tx, set *utxo.Set, requestedFee decimal.Decimal, changeAddress string) error {
	inputs := decimal.Zero
	for _, in := range tx.Inputs {
		u, exists := set.Get(in.Key())
		if !exists {
			return fmt.Errorf("%w: output %s is not unspent", ErrTxRejected, in.Key())
		}
		inputs = inputs.Add(u.Value)
	}

	outputs := tx.TotalOutput()
	if inputs.LessThan(outputs) {
		return fmt.Errorf("%w: inputs %s, outputs %s", ErrInsufficientFunds, inputs, outputs)
	}

	available := inputs.Sub(outputs)

	fee := requestedFee
	if fee.IsNegative() || available.IsZero() {
		fee = decimal.Zero
	}

	change := available.Sub(fee)
	for change.IsNegative() {
		fee = fee.Div(feeReduction)
		change = available.Sub(fee)
	}

	switch {
	case change.IsPositive():
		tx.Outputs = append(tx.Outputs, Output{Value: change, Address: changeAddress})
	default:
		fee = decimal.Zero
	}

	tx.Fee = fee
	tx.ID = tx.computeID()

	return nil
}

// ValidateBlock validates the transactions of the block against the set and
// applies them. The set is only changed when the whole block is valid.
//
// The first block must hold the genesis transaction alone, it registers its
// outputs once the id of the transaction checks out. For every
// other block the signatures of all user transactions are verified first,
// then every input is consumed and every output registered in order. The
// reward transaction must be last and can't pay more than the block reward
// plus the fees of the block.
func ValidateBlock(block Block, set *utxo.Set, gen genesis.Genesis, evHandler func(v string, args ...any)) error {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	if len(block.Trans) == 0 {
		return errors.New("block has no transactions")
	}

	if miner := MinerOf(block.Trans); block.MinerAddress != miner {
		return fmt.Errorf("miner address %q doesn't match the address paid %q", block.MinerAddress, miner)
	}

	isGenesis := len(block.Trans) == 1 && block.Trans[0].IsGenesis()
	if block.Height == 1 && !isGenesis {
		return errors.New("first block is not a genesis block")
	}

	// The genesis block only registers the founder output.
	if isGenesis {
		evHandler("database: ValidateBlock: validate: blk[%d]: genesis block", block.Height)

		if block.Height != 1 {
			return fmt.Errorf("genesis transaction in block %d", block.Height)
		}

		if err := block.Trans[0].VerifyID(); err != nil {
			return fmt.Errorf("%w: %w", ErrTxRejected, err)
		}

		work := set.Snapshot()
		registerOutputs(block.Trans[0], work)
		set.Replace(work)

		return nil
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: transaction signatures", block.Height)

	for i, tx := range block.Trans {
		if err := tx.VerifyID(); err != nil {
			return fmt.Errorf("%w: %w", ErrTxRejected, err)
		}

		if tx.IsReward() {
			if i != len(block.Trans)-1 {
				return fmt.Errorf("reward transaction %s is not the last transaction", tx.ID)
			}
			continue
		}

		if tx.IsGenesis() {
			return fmt.Errorf("genesis transaction in block %d", block.Height)
		}

		if err := ValidateTransaction(tx); err != nil {
			return err
		}
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: consume inputs and register outputs", block.Height)

	work := set.Snapshot()
	fees := decimal.Zero

	for _, tx := range block.Trans {
		if tx.IsReward() {
			if tx.Inputs[0].TxID != RewardID(block.Height) {
				return fmt.Errorf("reward transaction %s has input %s, exp %s", tx.ID, tx.Inputs[0].TxID, RewardID(block.Height))
			}

			limit := gen.Reward(block.Height).Add(fees)
			if tx.TotalOutput().GreaterThan(limit) {
				return fmt.Errorf("reward transaction %s pays %s, limit %s", tx.ID, tx.TotalOutput(), limit)
			}

			registerOutputs(tx, work)
			continue
		}

		inputs, err := CheckInputs(tx, work)
		if err != nil {
			return err
		}

		for _, in := range tx.Inputs {
			work.Remove(in.Key())
		}
		registerOutputs(tx, work)

		fees = fees.Add(inputs.Sub(tx.TotalOutput()))
	}

	set.Replace(work)

	return nil
}

// registerOutputs adds every output of the transaction to the set.
func registerOutputs(tx Tx, set *utxo.Set) {
	for i, out := range tx.Outputs {
		set.Add(tx.OutputKey(i), utxo.UTXO{Value: out.Value, Address: out.Address})
	}
}
