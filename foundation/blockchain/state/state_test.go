package state_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/utxochain/foundation/blockchain/utxo"
	"github.com/ardanlabs/utxochain/foundation/blockchain/wallet"
	"github.com/shopspring/decimal"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const testPort = 8080

func ifErrFailNow(t *testing.T, err error) {
	if err != nil {
		t.Error(err)
		t.FailNow()
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testGenesis() genesis.Genesis {
	gen := genesis.Default()
	gen.Difficulty = 1
	gen.TransPerBlock = 1
	return gen
}

// recorder counts the signals the state sends to its worker.
type recorder struct {
	mu        sync.Mutex
	cancels   int
	starts    int
	sharedTx  []database.Tx
	sharedBlk []database.Block
}

func (r *recorder) Shutdown() {}

func (r *recorder) SignalStartMining() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
}

func (r *recorder) SignalCancelMining() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels++
}

func (r *recorder) SignalShareTx(tx database.Tx) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sharedTx = append(r.sharedTx, tx)
}

func (r *recorder) SignalShareBlock(block database.Block) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sharedBlk = append(r.sharedBlk, block)
}

// node is a state with its miner wallet and the worker recording signals.
type node struct {
	*state.State
	miner  wallet.Wallet
	store  *storage.Store
	worker *recorder
}

func newNode(t *testing.T, store *storage.Store) node {
	t.Helper()

	return newNodeWithGenesis(t, store, testGenesis())
}

func newNodeWithGenesis(t *testing.T, store *storage.Store, gen genesis.Genesis) node {
	t.Helper()

	miner, err := wallet.New()
	ifErrFailNow(t, err)

	registry := wallet.NewRegistry()
	registry.Add(testPort, miner)

	if store == nil {
		store = storage.New(memory.New())
	}

	st, err := state.New(state.Config{
		MinerAddress:    miner.Address,
		Port:            testPort,
		Genesis:         gen,
		Store:           store,
		Wallets:         registry,
		SelectStrategy:  "fee",
		MineEmptyBlocks: true,
	})
	ifErrFailNow(t, err)

	w := recorder{}
	st.Worker = &w

	ifErrFailNow(t, st.Bootstrap())

	return node{State: st, miner: miner, store: store, worker: &w}
}

func mineBlocks(t *testing.T, n node, count int) {
	t.Helper()

	for i := 0; i < count; i++ {
		if _, err := n.MineNewBlock(context.Background()); err != nil {
			t.Fatalf("\t%s\tShould be able to mine a block: %s", failed, err)
		}
	}
}

// pay builds and signs a transaction spending the entry. The amount goes to
// the address, the fee is left over and the rest returns as change.
func pay(t *testing.T, w wallet.Wallet, from utxo.Entry, to string, amount string, fee string) database.Tx {
	t.Helper()

	change := from.UTXO.Value.Sub(dec(amount)).Sub(dec(fee))

	tx := database.NewTx(
		[]database.Input{{TxID: from.Key.TxID, OutputIndex: from.Key.Index}},
		[]database.Output{{Value: dec(amount), Address: to}, {Value: change, Address: w.Address}},
	)
	ifErrFailNow(t, tx.SignWith(w.PrivateKey))

	return tx
}

func blockHashes(blocks []database.Block) []string {
	hashes := make([]string, len(blocks))
	for i, block := range blocks {
		hashes[i] = block.Hash
	}
	return hashes
}

func newAddress(t *testing.T) string {
	t.Helper()

	pk, err := signature.GenerateKey()
	ifErrFailNow(t, err)

	return signature.PublicKeyToAddress(pk.PublicKey)
}

// =============================================================================

func Test_MineAndPay(t *testing.T) {
	t.Log("Given the need to mine blocks and pay from a wallet.")
	{
		t.Logf("\tTest 0:\tWhen mining the genesis block and paying 5 coins.")
		{
			n := newNode(t, nil)

			block, err := n.MineNewBlock(context.Background())
			ifErrFailNow(t, err)

			if block.Height != 1 || block.PrevHash != "0" {
				t.Fatalf("\t%s\tShould mine the genesis block first: height[%d] prev[%s]", failed, block.Height, block.PrevHash)
			}
			t.Logf("\t%s\tShould mine the genesis block first.", success)

			if bal, _ := n.QueryBalance(n.miner.Address); !bal.Equal(dec("25")) {
				t.Fatalf("\t%s\tShould pay the genesis reward to the miner: got %s", failed, bal)
			}
			t.Logf("\t%s\tShould pay the genesis reward to the miner.", success)

			mineBlocks(t, n, 1)

			to := newAddress(t)
			tx, err := n.SendFromWallet(to, dec("5"), false, false)
			ifErrFailNow(t, err)

			if !tx.Fee.Equal(dec("0.226")) {
				t.Fatalf("\t%s\tShould estimate the fee from the size: got %s", failed, tx.Fee)
			}
			t.Logf("\t%s\tShould estimate the fee from the size.", success)

			if n.QueryMempoolLength() != 1 || len(n.worker.sharedTx) != 1 || n.worker.starts != 1 {
				t.Fatalf("\t%s\tShould pool and share the transaction: mempool[%d] shared[%d]", failed, n.QueryMempoolLength(), len(n.worker.sharedTx))
			}
			t.Logf("\t%s\tShould pool and share the transaction.", success)

			if _, err := n.SendFromWallet(to, dec("5"), false, false); !errors.Is(err, database.ErrInsufficientFunds) {
				t.Fatalf("\t%s\tShould not reuse outputs spent by pending transactions: %v", failed, err)
			}
			t.Logf("\t%s\tShould not reuse outputs spent by pending transactions.", success)

			block, err = n.MineNewBlock(context.Background())
			ifErrFailNow(t, err)

			if len(block.Trans) != 2 || !block.Trans[1].IsReward() {
				t.Fatalf("\t%s\tShould mine the payment with the reward last: trans[%d]", failed, len(block.Trans))
			}
			t.Logf("\t%s\tShould mine the payment with the reward last.", success)

			if n.QueryMempoolLength() != 0 {
				t.Fatalf("\t%s\tShould remove the mined transaction from the mempool.", failed)
			}
			t.Logf("\t%s\tShould remove the mined transaction from the mempool.", success)

			toBal, _ := n.QueryBalance(to)
			minerBal, _ := n.QueryBalance(n.miner.Address)
			if !toBal.Equal(dec("5")) || !minerBal.Equal(dec("24")) {
				t.Fatalf("\t%s\tShould move the value and pay the fee to the miner: to[%s] miner[%s]", failed, toBal, minerBal)
			}
			t.Logf("\t%s\tShould move the value and pay the fee to the miner.", success)

			if history := n.QueryHistory(to); len(history) != 1 || history[0].ID != tx.ID {
				t.Fatalf("\t%s\tShould list the payment in the history of the recipient.", failed)
			}
			t.Logf("\t%s\tShould list the payment in the history of the recipient.", success)
		}

		t.Logf("\tTest 1:\tWhen paying from a new address.")
		{
			n := newNode(t, nil)
			mineBlocks(t, n, 1)

			tx, err := n.SendFromWallet(newAddress(t), dec("1"), true, true)
			ifErrFailNow(t, err)

			wallets := n.QueryWallets()
			if len(wallets) != 2 {
				t.Fatalf("\t%s\tShould create a wallet for the change: got %d wallets", failed, len(wallets))
			}
			t.Logf("\t%s\tShould create a wallet for the change.", success)

			change := tx.Outputs[len(tx.Outputs)-1]
			if change.Address == n.miner.Address {
				t.Fatalf("\t%s\tShould send the change to the new wallet.", failed)
			}
			if _, exists := wallets[change.Address]; !exists {
				t.Fatalf("\t%s\tShould send the change to the new wallet.", failed)
			}
			t.Logf("\t%s\tShould send the change to the new wallet.", success)
		}

		t.Logf("\tTest 2:\tWhen a full batch of two transactions is pending.")
		{
			gen := testGenesis()
			gen.TransPerBlock = 2

			n := newNodeWithGenesis(t, nil, gen)
			mineBlocks(t, n, 2)

			_, entries := n.QueryBalance(n.miner.Address)
			if len(entries) != 2 {
				t.Fatalf("\t%s\tShould own the genesis and the reward outputs: got %d", failed, len(entries))
			}

			tx1 := pay(t, n.miner, entries[0], newAddress(t), "5", "0.01")
			tx2 := pay(t, n.miner, entries[1], newAddress(t), "1", "0.02")

			ifErrFailNow(t, n.SubmitTransaction(tx1))
			ifErrFailNow(t, n.SubmitTransaction(tx2))

			block, err := n.MineNewBlock(context.Background())
			ifErrFailNow(t, err)

			if len(block.Trans) != 3 {
				t.Fatalf("\t%s\tShould mine both transactions and the reward: trans[%d]", failed, len(block.Trans))
			}

			mined := map[string]bool{block.Trans[0].ID: true, block.Trans[1].ID: true}
			if !mined[tx1.ID] || !mined[tx2.ID] {
				t.Fatalf("\t%s\tShould mine both transactions and the reward.", failed)
			}
			t.Logf("\t%s\tShould mine both transactions and the reward.", success)

			reward := block.Trans[2]
			if exp := gen.Reward(3).Add(dec("0.03")); !reward.IsReward() || !reward.TotalOutput().Equal(exp) {
				t.Fatalf("\t%s\tShould pay the reward plus the fees last: got %s", failed, reward.TotalOutput())
			}
			t.Logf("\t%s\tShould pay the reward plus the fees last.", success)

			if n.QueryMempoolLength() != 0 {
				t.Fatalf("\t%s\tShould empty the mempool.", failed)
			}
			t.Logf("\t%s\tShould empty the mempool.", success)
		}

		t.Logf("\tTest 3:\tWhen a transaction spends an output that doesn't exist.")
		{
			n := newNode(t, nil)
			mineBlocks(t, n, 1)

			missing := utxo.Entry{
				Key:  utxo.Key{TxID: signature.Hash("missing"), Index: 0},
				UTXO: utxo.UTXO{Value: dec("10"), Address: n.miner.Address},
			}
			tx := pay(t, n.miner, missing, newAddress(t), "1", "0.1")

			if err := n.SubmitTransaction(tx); !errors.Is(err, database.ErrTxRejected) {
				t.Fatalf("\t%s\tShould refuse the submitted transaction: %v", failed, err)
			}
			t.Logf("\t%s\tShould refuse the submitted transaction.", success)

			if err := n.ProcessPeerTransaction(tx); !errors.Is(err, database.ErrTxRejected) {
				t.Fatalf("\t%s\tShould refuse the gossiped transaction: %v", failed, err)
			}
			t.Logf("\t%s\tShould refuse the gossiped transaction.", success)

			if n.QueryMempoolLength() != 0 || len(n.worker.sharedTx) != 0 {
				t.Fatalf("\t%s\tShould leave the mempool empty.", failed)
			}
			t.Logf("\t%s\tShould leave the mempool empty.", success)
		}
	}
}

func Test_ProposedBlock(t *testing.T) {
	t.Log("Given the need to accept blocks mined by peers.")
	{
		t.Logf("\tTest 0:\tWhen a peer proposes the next block.")
		{
			a := newNode(t, nil)
			b := newNode(t, nil)

			mineBlocks(t, a, 2)

			if _, err := b.ProcessPeerChain(a.QueryChain()); err != nil {
				t.Fatalf("\t%s\tShould adopt the longer chain: %s", failed, err)
			}

			block, err := a.MineNewBlock(context.Background())
			ifErrFailNow(t, err)

			if err := b.ProcessProposedBlock(block); err != nil {
				t.Fatalf("\t%s\tShould accept the next block: %s", failed, err)
			}
			t.Logf("\t%s\tShould accept the next block.", success)

			if b.worker.cancels == 0 || len(b.worker.sharedBlk) != 1 {
				t.Fatalf("\t%s\tShould cancel mining and share the block.", failed)
			}
			t.Logf("\t%s\tShould cancel mining and share the block.", success)

			if err := b.ProcessProposedBlock(block); !errors.Is(err, state.ErrAlreadySeen) {
				t.Fatalf("\t%s\tShould ignore a block already seen: %v", failed, err)
			}
			t.Logf("\t%s\tShould ignore a block already seen.", success)

			mineBlocks(t, a, 2)
			latest, _ := a.RetrieveLatestBlock()

			if err := b.ProcessProposedBlock(latest); !errors.Is(err, database.ErrChainForked) {
				t.Fatalf("\t%s\tShould refuse a block that skips heights: %v", failed, err)
			}
			t.Logf("\t%s\tShould refuse a block that skips heights.", success)
		}

		t.Logf("\tTest 1:\tWhen a peer proposes an invalid block.")
		{
			a := newNode(t, nil)
			b := newNode(t, nil)

			mineBlocks(t, a, 1)
			_, err := b.ProcessPeerChain(a.QueryChain())
			ifErrFailNow(t, err)

			block, err := a.MineNewBlock(context.Background())
			ifErrFailNow(t, err)

			block.Trans[0].Outputs[0].Value = dec("1000")
			block.Hash = block.Hash + "x"

			if err := b.ProcessProposedBlock(block); err == nil {
				t.Fatalf("\t%s\tShould refuse a tampered block.", failed)
			}
			t.Logf("\t%s\tShould refuse a tampered block.", success)

			if b.QueryStatus().Height != 1 {
				t.Fatalf("\t%s\tShould leave the chain unchanged.", failed)
			}
			t.Logf("\t%s\tShould leave the chain unchanged.", success)
		}

		t.Logf("\tTest 2:\tWhen blocks arrive out of order or with a borrowed hash.")
		{
			a := newNode(t, nil)
			b := newNode(t, nil)

			mineBlocks(t, a, 1)
			_, err := b.ProcessPeerChain(a.QueryChain())
			ifErrFailNow(t, err)

			blk2, err := a.MineNewBlock(context.Background())
			ifErrFailNow(t, err)
			blk3, err := a.MineNewBlock(context.Background())
			ifErrFailNow(t, err)

			if err := b.ProcessProposedBlock(blk3); !errors.Is(err, database.ErrChainForked) {
				t.Fatalf("\t%s\tShould refuse the block ahead of the chain: %v", failed, err)
			}
			t.Logf("\t%s\tShould refuse the block ahead of the chain.", success)

			forged := blk2
			forged.Trans = []database.Tx{database.NewRewardTx(2, b.miner.Address, dec("1000"))}
			if err := b.ProcessProposedBlock(forged); err == nil {
				t.Fatalf("\t%s\tShould refuse a block carrying the hash of another block.", failed)
			}
			t.Logf("\t%s\tShould refuse a block carrying the hash of another block.", success)

			if err := b.ProcessProposedBlock(blk2); err != nil {
				t.Fatalf("\t%s\tShould accept the block whose hash was borrowed: %v", failed, err)
			}
			t.Logf("\t%s\tShould accept the block whose hash was borrowed.", success)

			if err := b.ProcessProposedBlock(blk3); err != nil {
				t.Fatalf("\t%s\tShould accept the block refused earlier once it extends the chain: %v", failed, err)
			}
			t.Logf("\t%s\tShould accept the block refused earlier once it extends the chain.", success)

			if b.QueryStatus().LatestHash != blk3.Hash {
				t.Fatalf("\t%s\tShould end on the same tip as the miner.", failed)
			}
			t.Logf("\t%s\tShould end on the same tip as the miner.", success)
		}
	}
}

func Test_PeerChain(t *testing.T) {
	t.Log("Given the need to converge on the longest valid chain.")
	{
		t.Logf("\tTest 0:\tWhen comparing chains of different lengths.")
		{
			a := newNode(t, nil)
			b := newNode(t, nil)
			c := newNode(t, nil)

			mineBlocks(t, a, 3)
			mineBlocks(t, c, 1)

			decision, err := b.ProcessPeerChain(a.QueryChain())
			ifErrFailNow(t, err)

			if decision != state.ChainAdopted || b.QueryStatus().LatestHash != a.QueryStatus().LatestHash {
				t.Fatalf("\t%s\tShould adopt the longer chain: %s", failed, decision)
			}
			t.Logf("\t%s\tShould adopt the longer chain.", success)

			if bal, _ := b.QueryBalance(a.miner.Address); !bal.Equal(dec("29")) {
				t.Fatalf("\t%s\tShould rebuild the ledger from the chain: got %s", failed, bal)
			}
			t.Logf("\t%s\tShould rebuild the ledger from the chain.", success)

			if decision, _ := a.ProcessPeerChain(b.QueryChain()); decision != state.ChainIgnored {
				t.Fatalf("\t%s\tShould ignore a chain of the same length: %s", failed, decision)
			}
			t.Logf("\t%s\tShould ignore a chain of the same length.", success)

			if decision, _ := a.ProcessPeerChain(c.QueryChain()); decision != state.ChainBehind {
				t.Fatalf("\t%s\tShould report a shorter chain as behind: %s", failed, decision)
			}
			t.Logf("\t%s\tShould report a shorter chain as behind.", success)
		}

		t.Logf("\tTest 1:\tWhen a longer chain carries an invalid block.")
		{
			a := newNode(t, nil)
			b := newNode(t, nil)

			mineBlocks(t, a, 3)
			mineBlocks(t, b, 1)

			beforeHashes := blockHashes(b.QueryChain())
			beforeUTXOs := b.QueryUTXOs()

			chain := a.QueryChain()
			chain[1].Trans[0].Outputs[0].Value = dec("1000")

			decision, err := b.ProcessPeerChain(chain)
			if decision != state.ChainRejected || !errors.Is(err, database.ErrChainRejected) {
				t.Fatalf("\t%s\tShould reject the chain: %s: %v", failed, decision, err)
			}
			t.Logf("\t%s\tShould reject the chain.", success)

			if !slices.Equal(blockHashes(b.QueryChain()), beforeHashes) {
				t.Fatalf("\t%s\tShould keep the local chain.", failed)
			}
			t.Logf("\t%s\tShould keep the local chain.", success)

			if !b.QueryUTXOs().Equal(beforeUTXOs) {
				t.Fatalf("\t%s\tShould keep the local ledger.", failed)
			}
			t.Logf("\t%s\tShould keep the local ledger.", success)
		}
	}
}

func Test_PeerTransaction(t *testing.T) {
	t.Log("Given the need to accept transactions gossiped by peers.")
	{
		t.Logf("\tTest 0:\tWhen a peer shares a payment.")
		{
			a := newNode(t, nil)
			b := newNode(t, nil)

			mineBlocks(t, a, 1)
			_, err := b.ProcessPeerChain(a.QueryChain())
			ifErrFailNow(t, err)

			tx, err := a.SendFromWallet(newAddress(t), dec("3"), false, false)
			ifErrFailNow(t, err)

			if err := b.ProcessPeerTransaction(tx); err != nil {
				t.Fatalf("\t%s\tShould accept the payment: %s", failed, err)
			}
			t.Logf("\t%s\tShould accept the payment.", success)

			if len(b.worker.sharedTx) != 1 || b.QueryMempoolLength() != 1 {
				t.Fatalf("\t%s\tShould pool and relay the payment.", failed)
			}
			t.Logf("\t%s\tShould pool and relay the payment.", success)

			if err := b.ProcessPeerTransaction(tx); !errors.Is(err, state.ErrAlreadySeen) {
				t.Fatalf("\t%s\tShould ignore a payment already seen: %v", failed, err)
			}
			t.Logf("\t%s\tShould ignore a payment already seen.", success)

			forged := database.NewRewardTx(5, b.miner.Address, dec("100"))
			if err := b.ProcessPeerTransaction(forged); !errors.Is(err, database.ErrTxRejected) {
				t.Fatalf("\t%s\tShould refuse a transaction with sentinel inputs: %v", failed, err)
			}
			t.Logf("\t%s\tShould refuse a transaction with sentinel inputs.", success)
		}

		t.Logf("\tTest 1:\tWhen a copy with a broken signature arrives first.")
		{
			a := newNode(t, nil)
			b := newNode(t, nil)

			mineBlocks(t, a, 1)
			_, err := b.ProcessPeerChain(a.QueryChain())
			ifErrFailNow(t, err)

			tx, err := a.SendFromWallet(newAddress(t), dec("3"), false, false)
			ifErrFailNow(t, err)

			broken := tx
			broken.Inputs = make([]database.Input, len(tx.Inputs))
			copy(broken.Inputs, tx.Inputs)
			broken.Inputs[0].Signature = append([]byte{}, tx.Inputs[0].Signature...)
			broken.Inputs[0].Signature[5] ^= 0x01

			if err := b.ProcessPeerTransaction(broken); !errors.Is(err, database.ErrTxRejected) {
				t.Fatalf("\t%s\tShould refuse the broken copy: %v", failed, err)
			}
			t.Logf("\t%s\tShould refuse the broken copy.", success)

			if err := b.ProcessPeerTransaction(tx); err != nil {
				t.Fatalf("\t%s\tShould still accept the valid transaction: %v", failed, err)
			}
			t.Logf("\t%s\tShould still accept the valid transaction.", success)

			if b.QueryMempoolLength() != 1 {
				t.Fatalf("\t%s\tShould pool the valid transaction.", failed)
			}
			t.Logf("\t%s\tShould pool the valid transaction.", success)
		}

		t.Logf("\tTest 2:\tWhen conflicting spends arrive at the same time.")
		{
			a := newNode(t, nil)
			b := newNode(t, nil)

			mineBlocks(t, a, 1)
			_, err := b.ProcessPeerChain(a.QueryChain())
			ifErrFailNow(t, err)

			_, entries := a.QueryBalance(a.miner.Address)
			if len(entries) != 1 {
				t.Fatalf("\t%s\tShould own the genesis output: got %d", failed, len(entries))
			}

			const spenders = 8

			trans := make([]database.Tx, spenders)
			for i := range trans {
				trans[i] = pay(t, a.miner, entries[0], newAddress(t), "1", "0.01")
			}

			var wg sync.WaitGroup
			var mu sync.Mutex
			accepted := 0

			wg.Add(spenders)
			for _, tx := range trans {
				go func(tx database.Tx) {
					defer wg.Done()

					if err := b.ProcessPeerTransaction(tx); err == nil {
						mu.Lock()
						accepted++
						mu.Unlock()
					}
				}(tx)
			}
			wg.Wait()

			if accepted != 1 || b.QueryMempoolLength() != 1 {
				t.Fatalf("\t%s\tShould pool exactly one of the spends: accepted[%d] mempool[%d]", failed, accepted, b.QueryMempoolLength())
			}
			t.Logf("\t%s\tShould pool exactly one of the spends.", success)
		}
	}
}

func Test_Persistence(t *testing.T) {
	t.Log("Given the need to restart a node from its store.")
	{
		t.Logf("\tTest 0:\tWhen saving and bootstrapping again.")
		{
			store := storage.New(memory.New())

			a := newNode(t, store)
			mineBlocks(t, a, 3)
			ifErrFailNow(t, a.Save())

			b := newNode(t, store)

			if b.QueryStatus().LatestHash != a.QueryStatus().LatestHash {
				t.Fatalf("\t%s\tShould replay the persisted chain.", failed)
			}
			t.Logf("\t%s\tShould replay the persisted chain.", success)

			if bal, _ := b.QueryBalance(a.miner.Address); !bal.Equal(dec("29")) {
				t.Fatalf("\t%s\tShould rebuild the ledger: got %s", failed, bal)
			}
			t.Logf("\t%s\tShould rebuild the ledger.", success)

			if _, exists := b.QueryWallets()[a.miner.Address]; !exists {
				t.Fatalf("\t%s\tShould load the persisted wallets.", failed)
			}
			t.Logf("\t%s\tShould load the persisted wallets.", success)
		}

		t.Logf("\tTest 1:\tWhen the persisted chain carries an invalid block.")
		{
			store := storage.New(memory.New())

			a := newNode(t, store)
			mineBlocks(t, a, 3)

			chain := a.QueryChain()
			chain[2].Trans[0].Outputs[0].Value = dec("1000")
			ifErrFailNow(t, store.WriteChain(chain))

			b := newNode(t, store)

			if h := b.QueryStatus().Height; h != 2 {
				t.Fatalf("\t%s\tShould keep the valid prefix: got height %d", failed, h)
			}
			t.Logf("\t%s\tShould keep the valid prefix.", success)
		}
	}
}
