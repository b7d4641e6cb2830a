package worker

import (
	"errors"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/p2p"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
)

// These methods implement the p2p.Handler interface.

// HandleConnect asks every new peer for its chain.
func (w *Worker) HandleConnect(conn *p2p.Conn) {
	w.evHandler("worker: HandleConnect: %s: request chain", conn)

	w.transport.Send(conn, p2p.ChainRequest{})
}

// HandleMessage dispatches a message received from a peer.
func (w *Worker) HandleMessage(conn *p2p.Conn, msg p2p.Message) {
	switch m := msg.(type) {
	case p2p.TxMessage:
		w.handleTx(conn, m)

	case p2p.BlockMessage:
		w.handleBlock(conn, m)

	case p2p.ChainRequest:
		w.evHandler("worker: HandleMessage: %s: send chain", conn)
		w.transport.Send(conn, p2p.ChainSnapshot{Blocks: w.state.QueryChain()})

	case p2p.ChainSnapshot:
		w.handleChain(conn, m)

	default:
		w.evHandler("worker: HandleMessage: %s: unexpected message %T", conn, msg)
	}
}

// =============================================================================

func (w *Worker) handleTx(conn *p2p.Conn, m p2p.TxMessage) {
	err := w.state.ProcessPeerTransaction(m.Tx)
	switch {
	case err == nil:
		w.evHandler("worker: handleTx: %s: tx[%s]: accepted", conn, m.Tx)

	case errors.Is(err, state.ErrAlreadySeen):

	default:
		w.evHandler("worker: handleTx: %s: tx[%s]: REJECTED: %s", conn, m.Tx, err)
	}
}

func (w *Worker) handleBlock(conn *p2p.Conn, m p2p.BlockMessage) {
	err := w.state.ProcessProposedBlock(m.Block)
	switch {
	case err == nil:
		w.evHandler("worker: handleBlock: %s: blk[%d]: accepted", conn, m.Block.Height)

	case errors.Is(err, state.ErrAlreadySeen):

	case errors.Is(err, database.ErrChainForked):

		// The block doesn't extend the local chain. The chain of the peer
		// decides which node is behind.
		w.evHandler("worker: handleBlock: %s: blk[%d]: %s: request chain", conn, m.Block.Height, err)
		w.transport.Send(conn, p2p.ChainRequest{})

	default:
		w.evHandler("worker: handleBlock: %s: blk[%d]: REJECTED: %s", conn, m.Block.Height, err)
	}
}

func (w *Worker) handleChain(conn *p2p.Conn, m p2p.ChainSnapshot) {
	decision, err := w.state.ProcessPeerChain(m.Blocks)
	if err != nil {
		w.evHandler("worker: handleChain: %s: blocks[%d]: %s: %s", conn, len(m.Blocks), decision, err)
		return
	}

	switch decision {
	case state.ChainBehind:
		w.evHandler("worker: handleChain: %s: peer is behind: send chain", conn)
		w.transport.Send(conn, p2p.ChainSnapshot{Blocks: w.state.QueryChain()})

	case state.ChainAdopted:
		w.evHandler("worker: handleChain: %s: adopted chain: blocks[%d]", conn, len(m.Blocks))
		w.SignalStartMining()
	}
}
