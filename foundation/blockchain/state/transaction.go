package state

import (
	"fmt"
	"math/rand"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/wallet"
	"github.com/shopspring/decimal"
)

// SubmitTransaction accepts a signed transaction from a wallet for inclusion.
// Accepted transactions are shared with the peers.
func (s *State) SubmitTransaction(tx database.Tx) error {
	if err := s.acceptTransaction(tx, false); err != nil {
		return err
	}

	s.Worker.SignalShareTx(tx)
	s.Worker.SignalStartMining()

	return nil
}

// ProcessPeerTransaction accepts a transaction gossiped by a peer. A
// transaction already accepted is ignored so gossip stops at this node.
func (s *State) ProcessPeerTransaction(tx database.Tx) error {
	if s.seenTxs.Contains(tx.ID) {
		return fmt.Errorf("tx %s: %w", tx.ID, ErrAlreadySeen)
	}

	if err := s.acceptTransaction(tx, true); err != nil {
		return err
	}

	s.Worker.SignalShareTx(tx)
	s.Worker.SignalStartMining()

	return nil
}

// acceptTransaction validates the transaction and adds it to the mempool
// while holding the state lock, so the ledger and the pending spends it was
// checked against can't change before it is pooled. The id doesn't cover the
// signatures, it is marked as seen only once the transaction is pooled.
func (s *State) acceptTransaction(tx database.Tx, fromPeer bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fromPeer && s.seenTxs.Contains(tx.ID) {
		return fmt.Errorf("tx %s: %w", tx.ID, ErrAlreadySeen)
	}

	if err := s.validateTransaction(tx); err != nil {
		return err
	}

	if err := s.upsertMempool(tx); err != nil {
		return err
	}

	s.seenTxs.Add(tx.ID)

	return nil
}

// SendFromWallet builds, signs and submits a payment from the wallets of this
// node. With newAddress set a new wallet is created and receives the change,
// otherwise a random wallet of the node does.
func (s *State) SendFromWallet(to string, amount decimal.Decimal, highPriority bool, newAddress bool) (database.Tx, error) {
	change, err := s.changeWallet(newAddress)
	if err != nil {
		return database.Tx{}, err
	}

	s.evHandler("state: SendFromWallet: to[%s]: amount[%s]: change[%s]", to, amount, change.Address)

	args := wallet.BuildArgs{
		To:            to,
		Amount:        amount,
		HighPriority:  highPriority,
		ChangeAddress: change.Address,
	}

	tx, err := wallet.Build(s.wallets.Wallets(s.port), s.db.UTXOSnapshot(), s.mempool.Spends, args)
	if err != nil {
		return database.Tx{}, err
	}

	if err := s.SubmitTransaction(tx); err != nil {
		return database.Tx{}, err
	}

	return tx, nil
}

// =============================================================================

// validateTransaction checks the signatures and the structure of the
// transaction. User transactions can't spend sentinel inputs. The state lock
// must be held.
func (s *State) validateTransaction(tx database.Tx) error {
	if err := tx.VerifyID(); err != nil {
		return fmt.Errorf("%w: %w", database.ErrTxRejected, err)
	}

	if tx.IsGenesis() || tx.IsReward() {
		return fmt.Errorf("%w: %s: only blocks can carry sentinel inputs", database.ErrTxRejected, tx.ID)
	}

	if err := database.ValidateTransaction(tx); err != nil {
		return err
	}

	// Resubmitting a pending transaction replaces it.
	if s.mempool.Contains(tx.ID) {
		return nil
	}

	for _, in := range tx.Inputs {
		if s.mempool.Spends(in.Key()) {
			return fmt.Errorf("%w: %s: output %s is spent by a pending transaction", database.ErrTxRejected, tx.ID, in.Key())
		}
	}

	return nil
}

// changeWallet returns the wallet receiving the change of a payment.
func (s *State) changeWallet(newAddress bool) (wallet.Wallet, error) {
	if newAddress {
		return s.wallets.Create(s.port)
	}

	wallets := s.wallets.Wallets(s.port)
	if len(wallets) == 0 {
		return wallet.Wallet{}, fmt.Errorf("port %d: %w", s.port, wallet.ErrNoWallets)
	}

	return wallets[rand.Intn(len(wallets))], nil
}
