package public

import (
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/utxo"
	"github.com/ardanlabs/utxochain/foundation/nameservice"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type status struct {
	Status       string   `json:"status"`
	Port         int      `json:"port"`
	MinerAddress string   `json:"miner_address"`
	MinerName    string   `json:"miner_name"`
	Height       int      `json:"height"`
	LatestHash   string   `json:"latest_hash"`
	Mempool      int      `json:"mempool"`
	Peers        int      `json:"peers"`
	KnownPeers   []string `json:"known_peers"`
}

type input struct {
	TxID        string `json:"tx_id" validate:"required"`
	OutputIndex int    `json:"output_index" validate:"gte=0"`
	Signature   string `json:"signature,omitempty" validate:"required"`
	PublicKey   string `json:"public_key,omitempty" validate:"required"`
}

type output struct {
	Value   string `json:"value" validate:"required,numeric"`
	Address string `json:"address" validate:"required,address"`
	Name    string `json:"name,omitempty"`
}

type tx struct {
	ID      string   `json:"id" validate:"required,len=64,hexadecimal"`
	Inputs  []input  `json:"inputs" validate:"required,min=1,dive"`
	Outputs []output `json:"outputs" validate:"required,min=1,dive"`
	Fee     string   `json:"fee,omitempty"`
}

type block struct {
	Height     int    `json:"height"`
	Hash       string `json:"hash"`
	PrevHash   string `json:"prev_hash"`
	Timestamp  int64  `json:"timestamp"`
	Nonce      uint64 `json:"nonce"`
	MerkleRoot string `json:"merkle_root"`
	Miner      string `json:"miner"`
	MinerName  string `json:"miner_name,omitempty"`
	Trans      []tx   `json:"trans"`
}

type unspent struct {
	TxID  string `json:"tx_id"`
	Index int    `json:"index"`
	Value string `json:"value"`
}

type balance struct {
	Address string    `json:"address"`
	Name    string    `json:"name"`
	Balance string    `json:"balance"`
	Unspent []unspent `json:"unspent"`
}

type walletInfo struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

type send struct {
	To           string `json:"to" validate:"required,address"`
	Amount       string `json:"amount" validate:"required,numeric"`
	HighPriority bool   `json:"high_priority"`
	NewAddress   bool   `json:"new_address"`
}

// =============================================================================

func toTx(dbTx database.Tx, ns *nameservice.NameService) tx {
	inputs := make([]input, len(dbTx.Inputs))
	for i, in := range dbTx.Inputs {
		inputs[i] = input{
			TxID:        in.TxID,
			OutputIndex: in.OutputIndex,
		}
		if !in.IsSentinel() {
			inputs[i].Signature = in.SignatureString()
			inputs[i].PublicKey = hexutil.Encode(in.PublicKey)
		}
	}

	outputs := make([]output, len(dbTx.Outputs))
	for i, out := range dbTx.Outputs {
		outputs[i] = output{
			Value:   out.Value.String(),
			Address: out.Address,
			Name:    ns.Lookup(out.Address),
		}
	}

	return tx{
		ID:      dbTx.ID,
		Inputs:  inputs,
		Outputs: outputs,
		Fee:     dbTx.Fee.String(),
	}
}

func toTxs(dbTrans []database.Tx, ns *nameservice.NameService) []tx {
	trans := make([]tx, len(dbTrans))
	for i, dbTx := range dbTrans {
		trans[i] = toTx(dbTx, ns)
	}
	return trans
}

func toBlock(dbBlock database.Block, ns *nameservice.NameService) block {
	return block{
		Height:     dbBlock.Height,
		Hash:       dbBlock.Hash,
		PrevHash:   dbBlock.PrevHash,
		Timestamp:  dbBlock.Timestamp,
		Nonce:      dbBlock.Nonce,
		MerkleRoot: dbBlock.MerkleRoot,
		Miner:      dbBlock.MinerAddress,
		MinerName:  ns.Lookup(dbBlock.MinerAddress),
		Trans:      toTxs(dbBlock.Trans, ns),
	}
}

func toUnspent(entries []utxo.Entry) []unspent {
	out := make([]unspent, len(entries))
	for i, e := range entries {
		out[i] = unspent{
			TxID:  e.Key.TxID,
			Index: e.Key.Index,
			Value: e.UTXO.Value.String(),
		}
	}
	return out
}

// toDatabaseTx converts a submitted transaction. The id is recomputed from
// the inputs and outputs and must match the submitted one.
func toDatabaseTx(t tx) (database.Tx, error) {
	txData := database.TxData{
		ID:      t.ID,
		Inputs:  make([]database.InputData, len(t.Inputs)),
		Outputs: make([]database.OutputData, len(t.Outputs)),
	}

	for i, in := range t.Inputs {
		sig, err := hexutil.Decode(in.Signature)
		if err != nil {
			return database.Tx{}, fmt.Errorf("input %d: signature: %w", i, err)
		}

		pub, err := hexutil.Decode(in.PublicKey)
		if err != nil {
			return database.Tx{}, fmt.Errorf("input %d: public key: %w", i, err)
		}

		txData.Inputs[i] = database.InputData{
			TxID:        in.TxID,
			OutputIndex: in.OutputIndex,
			Signature:   sig,
			PublicKey:   pub,
		}
	}

	for i, out := range t.Outputs {
		txData.Outputs[i] = database.OutputData{
			Value:   out.Value,
			Address: out.Address,
		}
	}

	return database.ToTx(txData)
}
