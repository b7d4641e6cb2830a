// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ardanlabs/utxochain/business/web/errs"
	"github.com/ardanlabs/utxochain/foundation/blockchain/peer"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/events"
	"github.com/ardanlabs/utxochain/foundation/nameservice"
	"github.com/ardanlabs/utxochain/foundation/web"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Peers provides the view of the peer connections.
type Peers interface {
	PeerCount() int
	KnownPeers() []peer.Peer
}

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	Peers Peers
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Hub
}

// Events handles a web socket to provide events to a client. The topic query
// parameter limits the events to a comma separated list of components.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	var topics []string
	if topic := r.URL.Query().Get("topic"); topic != "" {
		topics = strings.Split(topic, ",")
	}

	ch, err := h.Evts.Subscribe(v.TraceID, topics...)
	if err != nil {
		return err
	}
	defer func() {
		if dropped, err := h.Evts.Unsubscribe(v.TraceID); err == nil && dropped > 0 {
			h.Log.Infow("events", "traceid", v.TraceID, "dropped", dropped)
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Status returns a summary of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	ns := h.State.QueryStatus()

	st := status{
		Status:       ns.Status,
		Port:         ns.Port,
		MinerAddress: ns.MinerAddress,
		MinerName:    h.NS.Lookup(ns.MinerAddress),
		Height:       ns.Height,
		LatestHash:   ns.LatestHash,
		Mempool:      ns.Mempool,
		KnownPeers:   []string{},
	}

	if h.Peers != nil {
		st.Peers = h.Peers.PeerCount()
		for _, p := range h.Peers.KnownPeers() {
			st.KnownPeers = append(st.KnownPeers, p.String())
		}
	}

	return web.Respond(ctx, w, st, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Chain returns every block of the local chain.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	dbBlocks := h.State.QueryChain()

	blocks := make([]block, len(dbBlocks))
	for i, dbBlock := range dbBlocks {
		blocks[i] = toBlock(dbBlock, h.NS)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// Block returns the block at the specified height or the latest block.
func (h Handlers) Block(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	height := state.QueryLatest

	if param := web.Param(r, "height"); param != "latest" {
		var err error
		if height, err = strconv.Atoi(param); err != nil || height < 1 {
			return errs.NewTrusted(fmt.Errorf("invalid height %q", param), http.StatusBadRequest)
		}
	}

	dbBlock, err := h.State.QueryBlock(height)
	if err != nil {
		return errs.NewTrusted(err, http.StatusNotFound)
	}

	return web.Respond(ctx, w, toBlock(dbBlock, h.NS), http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, toTxs(h.State.QueryMempool(), h.NS), http.StatusOK)
}

// Balance returns the balance and the unspent outputs of an address.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := web.Param(r, "address")
	if !signature.ValidAddress(address) {
		return errs.NewTrusted(fmt.Errorf("invalid address %q", address), http.StatusBadRequest)
	}

	value, entries := h.State.QueryBalance(address)

	bal := balance{
		Address: address,
		Name:    h.NS.Lookup(address),
		Balance: value.String(),
		Unspent: toUnspent(entries),
	}

	return web.Respond(ctx, w, bal, http.StatusOK)
}

// History returns the mined transactions of an address.
func (h Handlers) History(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := web.Param(r, "address")
	if !signature.ValidAddress(address) {
		return errs.NewTrusted(fmt.Errorf("invalid address %q", address), http.StatusBadRequest)
	}

	return web.Respond(ctx, w, toTxs(h.State.QueryHistory(address), h.NS), http.StatusOK)
}

// SubmitTransaction adds a signed transaction to the mempool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var submitted tx
	if err := web.Decode(r, &submitted); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	dbTx, err := toDatabaseTx(submitted)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("submit tran", "traceid", v.TraceID, "tx", dbTx)

	if err := h.State.SubmitTransaction(dbTx); err != nil {
		return err
	}

	resp := struct {
		Status string `json:"status"`
		ID     string `json:"id"`
	}{
		Status: "transaction added to mempool",
		ID:     dbTx.ID,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Wallets returns the wallets of this node with their balances.
func (h Handlers) Wallets(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	balances := h.State.QueryWallets()

	wallets := make([]walletInfo, 0, len(balances))
	for address, value := range balances {
		wallets = append(wallets, walletInfo{Address: address, Balance: value.String()})
	}

	return web.Respond(ctx, w, wallets, http.StatusOK)
}

// Send builds a payment from the wallets of this node and submits it.
func (h Handlers) Send(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req send
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return errs.NewTrusted(fmt.Errorf("amount %q must be a positive number", req.Amount), http.StatusBadRequest)
	}

	h.Log.Infow("send from wallet", "traceid", v.TraceID, "to", req.To, "amount", amount, "high_priority", req.HighPriority)

	dbTx, err := h.State.SendFromWallet(req.To, amount, req.HighPriority, req.NewAddress)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, toTx(dbTx, h.NS), http.StatusOK)
}
