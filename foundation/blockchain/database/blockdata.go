package database

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BlockData represents what can be serialized to storage or sent over the
// network. Values are carried in their canonical string form.
type BlockData struct {
	Height     int      `cbor:"1,keyasint"`
	PrevHash   string   `cbor:"2,keyasint"`
	Timestamp  int64    `cbor:"3,keyasint"`
	Nonce      uint64   `cbor:"4,keyasint"`
	MerkleRoot string   `cbor:"5,keyasint"`
	Hash       string   `cbor:"6,keyasint"`
	Trans      []TxData `cbor:"7,keyasint"`
	Miner      string   `cbor:"8,keyasint,omitempty"`
}

// TxData is the serialized form of a transaction.
type TxData struct {
	ID      string       `cbor:"1,keyasint"`
	Inputs  []InputData  `cbor:"2,keyasint"`
	Outputs []OutputData `cbor:"3,keyasint"`
	Fee     string       `cbor:"4,keyasint"`
}

// InputData is the serialized form of an input.
type InputData struct {
	TxID        string `cbor:"1,keyasint"`
	OutputIndex int    `cbor:"2,keyasint"`
	Signature   []byte `cbor:"3,keyasint,omitempty"`
	PublicKey   []byte `cbor:"4,keyasint,omitempty"`
}

// OutputData is the serialized form of an output.
type OutputData struct {
	Value   string `cbor:"1,keyasint"`
	Address string `cbor:"2,keyasint"`
}

// =============================================================================

// NewBlockData constructs block data from a block.
func NewBlockData(block Block) BlockData {
	trans := make([]TxData, len(block.Trans))
	for i, tx := range block.Trans {
		trans[i] = NewTxData(tx)
	}

	return BlockData{
		Height:     block.Height,
		PrevHash:   block.PrevHash,
		Timestamp:  block.Timestamp,
		Nonce:      block.Nonce,
		MerkleRoot: block.MerkleRoot,
		Hash:       block.Hash,
		Trans:      trans,
		Miner:      block.MinerAddress,
	}
}

// ToBlock converts the block data back into a block. Every transaction id
// is checked against the transaction content.
func ToBlock(blockData BlockData) (Block, error) {
	trans := make([]Tx, len(blockData.Trans))
	for i, txData := range blockData.Trans {
		tx, err := ToTx(txData)
		if err != nil {
			return Block{}, fmt.Errorf("blk[%d]: tx[%d]: %w", blockData.Height, i, err)
		}
		trans[i] = tx
	}

	block := Block{
		Height:       blockData.Height,
		PrevHash:     blockData.PrevHash,
		Timestamp:    blockData.Timestamp,
		Nonce:        blockData.Nonce,
		MerkleRoot:   blockData.MerkleRoot,
		MinerAddress: blockData.Miner,
		Hash:         blockData.Hash,
		Trans:        trans,
	}

	return block, nil
}

// NewBlocksData converts a chain into its serialized form.
func NewBlocksData(blocks []Block) []BlockData {
	data := make([]BlockData, len(blocks))
	for i, block := range blocks {
		data[i] = NewBlockData(block)
	}

	return data
}

// ToBlocks converts serialized blocks back into a chain.
func ToBlocks(data []BlockData) ([]Block, error) {
	blocks := make([]Block, len(data))
	for i, blockData := range data {
		block, err := ToBlock(blockData)
		if err != nil {
			return nil, err
		}
		blocks[i] = block
	}

	return blocks, nil
}

// NewTxData constructs transaction data from a transaction.
func NewTxData(tx Tx) TxData {
	inputs := make([]InputData, len(tx.Inputs))
	for i, in := range tx.Inputs {
		inputs[i] = InputData{
			TxID:        in.TxID,
			OutputIndex: in.OutputIndex,
			Signature:   in.Signature,
			PublicKey:   in.PublicKey,
		}
	}

	outputs := make([]OutputData, len(tx.Outputs))
	for i, out := range tx.Outputs {
		outputs[i] = OutputData{
			Value:   out.Value.String(),
			Address: out.Address,
		}
	}

	return TxData{
		ID:      tx.ID,
		Inputs:  inputs,
		Outputs: outputs,
		Fee:     tx.Fee.String(),
	}
}

// ToTx converts transaction data back into a transaction. The id is
// recomputed and must match the declared id.
func ToTx(txData TxData) (Tx, error) {
	inputs := make([]Input, len(txData.Inputs))
	for i, in := range txData.Inputs {
		inputs[i] = Input{
			TxID:        in.TxID,
			OutputIndex: in.OutputIndex,
			Signature:   in.Signature,
			PublicKey:   in.PublicKey,
		}
	}

	outputs := make([]Output, len(txData.Outputs))
	for i, out := range txData.Outputs {
		value, err := decimal.NewFromString(out.Value)
		if err != nil {
			return Tx{}, fmt.Errorf("output %d: value %q: %w", i, out.Value, err)
		}
		outputs[i] = Output{Value: value, Address: out.Address}
	}

	fee := decimal.Zero
	if txData.Fee != "" {
		var err error
		if fee, err = decimal.NewFromString(txData.Fee); err != nil {
			return Tx{}, fmt.Errorf("fee %q: %w", txData.Fee, err)
		}
	}

	tx := Tx{
		Inputs:  inputs,
		Outputs: outputs,
		Fee:     fee,
		ID:      txData.ID,
	}

	if err := tx.VerifyID(); err != nil {
		return Tx{}, err
	}

	return tx, nil
}
