// Package p2p implements the peer to peer transport: framed messages sent
// over a TCP stream per peer, the listener accepting peers and the sweep
// discovering them.
package p2p

import (
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
)

// Kind identifies the type of message carried by a frame.
type Kind uint8

// Set of message kinds understood by a node.
const (
	KindTx Kind = iota + 1
	KindBlock
	KindChainRequest
	KindChainSnapshot
)

// String implements the Stringer interface for logging.
func (k Kind) String() string {
	switch k {
	case KindTx:
		return "tx"
	case KindBlock:
		return "block"
	case KindChainRequest:
		return "chain-request"
	case KindChainSnapshot:
		return "chain-snapshot"
	}

	return "unknown"
}

// Message is one of the four messages exchanged between nodes: TxMessage,
// BlockMessage, ChainRequest or ChainSnapshot.
type Message interface {
	Kind() Kind
	message()
}

// TxMessage carries a transaction to add to the mempool.
type TxMessage struct {
	Tx database.Tx
}

// BlockMessage carries a newly mined block.
type BlockMessage struct {
	Block database.Block
}

// ChainRequest asks the peer to reply with its chain.
type ChainRequest struct{}

// ChainSnapshot carries a full chain.
type ChainSnapshot struct {
	Blocks []database.Block
}

// Kind implements the Message interface.
func (TxMessage) Kind() Kind { return KindTx }

// Kind implements the Message interface.
func (BlockMessage) Kind() Kind { return KindBlock }

// Kind implements the Message interface.
func (ChainRequest) Kind() Kind { return KindChainRequest }

// Kind implements the Message interface.
func (ChainSnapshot) Kind() Kind { return KindChainSnapshot }

func (TxMessage) message()     {}
func (BlockMessage) message()  {}
func (ChainRequest) message()  {}
func (ChainSnapshot) message() {}
