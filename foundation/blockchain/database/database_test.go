package database_test

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"testing"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/blockchain/utxo"
	"github.com/shopspring/decimal"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testGenesis() genesis.Genesis {
	gen := genesis.Default()
	gen.Difficulty = 1
	return gen
}

func newKey(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()

	pk, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a key: %s", err)
	}

	return pk, signature.PublicKeyToAddress(pk.PublicKey)
}

func mine(t *testing.T, prev *database.Block, trans []database.Tx) database.Block {
	t.Helper()

	block, err := database.POW(context.Background(), database.POWArgs{
		PrevBlock:  prev,
		Difficulty: testGenesis().Difficulty,
		Trans:      trans,
	})
	if err != nil {
		t.Fatalf("Should be able to mine a block: %s", err)
	}

	return block
}

// spend builds and signs a transaction paying value to the address from
// the first output of the source transaction.
func spend(t *testing.T, set *utxo.Set, pk *ecdsa.PrivateKey, source database.Tx, to string, value string, fee string) database.Tx {
	t.Helper()

	from := signature.PublicKeyToAddress(pk.PublicKey)
	tx := database.NewTx(
		[]database.Input{{TxID: source.ID, OutputIndex: 0}},
		[]database.Output{{Value: dec(value), Address: to}},
	)

	if err := database.ComputeChangeAndFee(&tx, set, dec(fee), from); err != nil {
		t.Fatalf("Should be able to compute change and fee: %s", err)
	}

	if err := tx.SignWith(pk); err != nil {
		t.Fatalf("Should be able to sign the transaction: %s", err)
	}

	return tx
}

// =============================================================================

func TestCanonicalString(t *testing.T) {
	tx := database.NewGenesisTx("addrA", dec("25"))

	if got := tx.CanonicalString(); got != "genesis-125" {
		t.Logf("got: %s", got)
		t.Fatalf("Should get the canonical string of the genesis transaction.")
	}

	if tx.ID != signature.Hash("genesis-125") {
		t.Fatalf("Should compute the id from the canonical string.")
	}

	tx = database.NewTx(
		[]database.Input{{TxID: "ab", OutputIndex: 0}, {TxID: "cd", OutputIndex: 3}},
		[]database.Output{{Value: dec("1.50"), Address: "x"}, {Value: dec("0.226"), Address: "y"}},
	)

	if got := tx.CanonicalString(); got != "ab0cd31.50.226" {
		t.Logf("got: %s", got)
		t.Fatalf("Should get the canonical string of a user transaction.")
	}

	reward := database.NewRewardTx(5, "miner", dec("2"))
	if !reward.IsReward() || reward.IsGenesis() || reward.Inputs[0].TxID != "reward5" {
		t.Fatalf("Should construct a reward transaction.")
	}
}

func TestComputeChangeAndFee(t *testing.T) {
	type table struct {
		name    string
		input   string
		value   string
		fee     string
		expFee  string
		expOuts int
		expErr  error
	}

	tt := []table{
		{name: "change", input: "25", value: "10", fee: "0.5", expFee: "0.5", expOuts: 2},
		{name: "exact", input: "10", value: "10", fee: "0.5", expFee: "0", expOuts: 1},
		{name: "reduced", input: "10", value: "9.98", fee: "0.226", expFee: "0.00226", expOuts: 2},
		{name: "zero", input: "10", value: "9.9", fee: "0.1", expFee: "0", expOuts: 1},
		{name: "insufficient", input: "5", value: "10", fee: "0.1", expErr: database.ErrInsufficientFunds},
	}

	t.Log("Given the need to finalize a transaction with change and fee.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen spending %s of %s with fee %s.", testID, tst.value, tst.input, tst.fee)
			{
				f := func(t *testing.T) {
					set := utxo.New()
					set.Add(utxo.Key{TxID: "src", Index: 0}, utxo.UTXO{Value: dec(tst.input), Address: "alice"})

					tx := database.NewTx(
						[]database.Input{{TxID: "src", OutputIndex: 0}},
						[]database.Output{{Value: dec(tst.value), Address: "bob"}},
					)
					id := tx.ID

					err := database.ComputeChangeAndFee(&tx, set, dec(tst.fee), "alice")
					if tst.expErr != nil {
						if !errors.Is(err, tst.expErr) {
							t.Fatalf("\t%s\tTest %d:\tShould get error %v, got %v.", failed, testID, tst.expErr, err)
						}
						t.Logf("\t%s\tTest %d:\tShould get error %v.", success, testID, tst.expErr)
						return
					}

					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to compute change: %s", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to compute change.", success, testID)

					if !tx.Fee.Equal(dec(tst.expFee)) {
						t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, tx.Fee)
						t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.expFee)
						t.Fatalf("\t%s\tTest %d:\tShould get the right fee.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get the right fee.", success, testID)

					if len(tx.Outputs) != tst.expOuts {
						t.Fatalf("\t%s\tTest %d:\tShould get %d outputs, got %d.", failed, testID, tst.expOuts, len(tx.Outputs))
					}
					t.Logf("\t%s\tTest %d:\tShould get %d outputs.", success, testID, tst.expOuts)

					if !tx.TotalOutput().Add(tx.Fee).Equal(dec(tst.input)) && tst.expOuts == 2 {
						t.Fatalf("\t%s\tTest %d:\tShould balance inputs with outputs and fee.", failed, testID)
					}

					if tst.expOuts == 2 && tx.ID == id {
						t.Fatalf("\t%s\tTest %d:\tShould recompute the transaction id.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould keep the transaction id current.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func TestValidateTransaction(t *testing.T) {
	t.Log("Given the need to validate transaction signatures.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling a signed transaction.", testID)
		{
			pk, addr := newKey(t)

			set := utxo.New()
			source := database.NewGenesisTx(addr, dec("25"))
			set.Add(source.OutputKey(0), utxo.UTXO{Value: dec("25"), Address: addr})

			tx := spend(t, set, pk, source, "bob", "10", "0.5")

			if err := database.ValidateTransaction(tx); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to validate the signature: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to validate the signature.", success, testID)

			if _, err := database.CheckInputs(tx, set); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould resolve the inputs: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould resolve the inputs.", success, testID)

			tampered := tx
			tampered.Outputs = append([]database.Output{}, tx.Outputs...)
			tampered.Outputs[0].Value = dec("20")
			if err := database.ValidateTransaction(tampered); !errors.Is(err, database.ErrTxRejected) {
				t.Fatalf("\t%s\tTest %d:\tShould reject a tampered transaction.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a tampered transaction.", success, testID)

			other, _ := newKey(t)
			stolen := database.NewTx([]database.Input{{TxID: source.ID, OutputIndex: 0}}, []database.Output{{Value: dec("25"), Address: "thief"}})
			if err := stolen.SignWith(other); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to sign: %s", failed, testID, err)
			}
			if _, err := database.CheckInputs(stolen, set); !errors.Is(err, database.ErrTxRejected) {
				t.Fatalf("\t%s\tTest %d:\tShould reject spending an output owned by another key.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject spending an output owned by another key.", success, testID)

			missing := database.NewTx([]database.Input{{TxID: "nope", OutputIndex: 0}}, []database.Output{{Value: dec("1"), Address: "bob"}})
			if err := missing.SignWith(pk); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to sign: %s", failed, testID, err)
			}
			if _, err := database.CheckInputs(missing, set); !errors.Is(err, database.ErrTxRejected) {
				t.Fatalf("\t%s\tTest %d:\tShould reject spending a missing output.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject spending a missing output.", success, testID)
		}
	}
}

func TestValidateBlock(t *testing.T) {
	gen := testGenesis()

	t.Log("Given the need to validate blocks against the ledger.")
	{
		pk, founder := newKey(t)
		_, miner := newKey(t)

		genBlock := mine(t, nil, []database.Tx{database.NewGenesisTx(founder, gen.GenesisReward)})

		testID := 0
		t.Logf("\tTest %d:\tWhen applying the genesis block.", testID)
		{
			set := utxo.New()
			if err := database.ValidateBlock(genBlock, set, gen, nil); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the genesis block: %s", failed, testID, err)
			}

			if !set.Balance(founder).Equal(dec("25")) || set.Len() != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould pay the founder 25.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould pay the founder 25.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen applying a block spending the genesis output.", testID)
		{
			set := utxo.New()
			database.ValidateBlock(genBlock, set, gen, nil)

			tx := spend(t, set, pk, genBlock.Trans[0], "bob", "10", "0.5")
			reward := database.NewRewardTx(2, miner, gen.Reward(2).Add(tx.Fee))
			block := mine(t, &genBlock, []database.Tx{tx, reward})

			if err := block.ValidateHeader(&genBlock, gen.Difficulty, nil); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould validate the header: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould validate the header.", success, testID)

			if err := database.ValidateBlock(block, set, gen, nil); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the block: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould accept the block.", success, testID)

			if set.Contains(genBlock.Trans[0].OutputKey(0)) {
				t.Fatalf("\t%s\tTest %d:\tShould consume the spent output.", failed, testID)
			}

			checks := map[string]string{"bob": "10", founder: "14.5", miner: "2.5"}
			for addr, exp := range checks {
				if got := set.Balance(addr); !got.Equal(dec(exp)) {
					t.Fatalf("\t%s\tTest %d:\tShould get balance %s for %s, got %s.", failed, testID, exp, addr, got)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould move the value to the right addresses.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a block spends the same output twice.", testID)
		{
			set := utxo.New()
			database.ValidateBlock(genBlock, set, gen, nil)
			before := set.Snapshot()

			tx1 := spend(t, set, pk, genBlock.Trans[0], "bob", "10", "0.5")
			tx2 := spend(t, set, pk, genBlock.Trans[0], "carol", "12", "0.5")
			reward := database.NewRewardTx(2, miner, gen.Reward(2))
			block := mine(t, &genBlock, []database.Tx{tx1, tx2, reward})

			if err := database.ValidateBlock(block, set, gen, nil); !errors.Is(err, database.ErrTxRejected) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the block: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the block.", success, testID)

			if !set.Equal(before) {
				t.Fatalf("\t%s\tTest %d:\tShould leave the ledger unchanged.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould leave the ledger unchanged.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the reward pays more than allowed.", testID)
		{
			set := utxo.New()
			database.ValidateBlock(genBlock, set, gen, nil)

			reward := database.NewRewardTx(2, miner, dec("1000"))
			block := mine(t, &genBlock, []database.Tx{reward})

			if err := database.ValidateBlock(block, set, gen, nil); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject the block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the block.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the block names a miner other than the one paid.", testID)
		{
			set := utxo.New()
			database.ValidateBlock(genBlock, set, gen, nil)

			block := mine(t, &genBlock, []database.Tx{database.NewRewardTx(2, miner, gen.Reward(2))})
			if block.MinerAddress != miner {
				t.Fatalf("\t%s\tTest %d:\tShould record the rewarded address as the miner.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould record the rewarded address as the miner.", success, testID)

			block.MinerAddress = founder
			if err := database.ValidateBlock(block, set, gen, nil); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject the block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the block.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the first block is not a genesis block.", testID)
		{
			first := mine(t, nil, []database.Tx{database.NewRewardTx(1, miner, gen.Reward(1))})

			set := utxo.New()
			if err := database.ValidateBlock(first, set, gen, nil); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject the block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the block.", success, testID)

			db := database.New(gen, nil)
			if err := db.ApplyBlock(first); err == nil || db.Height() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould not apply the block to an empty chain.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not apply the block to an empty chain.", success, testID)

			if res := database.Replay([]database.Block{first}, gen, nil); res.Accepted() {
				t.Fatalf("\t%s\tTest %d:\tShould reject the chain on replay as well.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the chain on replay as well.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the genesis transaction doesn't match its id.", testID)
		{
			genTx := database.NewGenesisTx(founder, gen.GenesisReward)
			genTx.Outputs = []database.Output{{Value: dec("1000"), Address: founder}}
			block := mine(t, nil, []database.Tx{genTx})

			set := utxo.New()
			if err := database.ValidateBlock(block, set, gen, nil); !errors.Is(err, database.ErrTxRejected) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the block: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the block.", success, testID)

			if set.Len() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the ledger empty.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould leave the ledger empty.", success, testID)
		}
	}
}

func TestReplay(t *testing.T) {
	gen := testGenesis()

	t.Log("Given the need to replay a chain from genesis.")
	{
		pk, founder := newKey(t)
		_, miner := newKey(t)

		b1 := mine(t, nil, []database.Tx{database.NewGenesisTx(founder, gen.GenesisReward)})

		set := utxo.New()
		database.ValidateBlock(b1, set, gen, nil)
		tx := spend(t, set, pk, b1.Trans[0], "bob", "10", "0.5")
		b2 := mine(t, &b1, []database.Tx{tx, database.NewRewardTx(2, miner, gen.Reward(2).Add(tx.Fee))})
		b3 := mine(t, &b2, []database.Tx{database.NewRewardTx(3, miner, gen.Reward(3))})

		testID := 0
		t.Logf("\tTest %d:\tWhen the chain is valid.", testID)
		{
			res := database.Replay([]database.Block{b1, b2, b3}, gen, nil)
			if !res.Accepted() || res.ValidPrefix() != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould accept the chain: %v", failed, testID, res.Err)
			}
			t.Logf("\t%s\tTest %d:\tShould accept the chain.", success, testID)

			if !res.UTXOs.Balance(miner).Equal(dec("4.5")) {
				t.Fatalf("\t%s\tTest %d:\tShould rebuild the ledger.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould rebuild the ledger.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a block in the chain was tampered with.", testID)
		{
			bad := b2
			bad.Trans = append([]database.Tx{}, b2.Trans...)
			bad.Trans[1] = database.NewRewardTx(2, "thief", gen.Reward(2))

			res := database.Replay([]database.Block{b1, bad, b3}, gen, nil)
			if res.Accepted() || !errors.Is(res.Err, database.ErrChainRejected) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the chain.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the chain.", success, testID)

			if res.ValidPrefix() != 1 || !res.UTXOs.Balance(founder).Equal(dec("25")) {
				t.Fatalf("\t%s\tTest %d:\tShould keep the valid prefix, got %d blocks.", failed, testID, res.ValidPrefix())
			}
			t.Logf("\t%s\tTest %d:\tShould keep the valid prefix.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the chain doesn't start with a genesis block.", testID)
		{
			res := database.Replay([]database.Block{b2, b3}, gen, nil)
			if res.Accepted() || res.ValidPrefix() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould reject the chain.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the chain.", success, testID)
		}
	}
}

func TestPOW(t *testing.T) {
	t.Log("Given the need to mine blocks.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen solving the puzzle.", testID)
		{
			trans := []database.Tx{database.NewGenesisTx("addrA", dec("25"))}

			block, err := database.POW(context.Background(), database.POWArgs{Difficulty: 2, Trans: trans})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mine: %s", failed, testID, err)
			}

			if block.Hash[:2] != "00" || block.Hash != block.ComputeHash() {
				t.Fatalf("\t%s\tTest %d:\tShould get a solved hash: %s", failed, testID, block.Hash)
			}
			t.Logf("\t%s\tTest %d:\tShould get a solved hash.", success, testID)

			if block.PrevHash != "0" || block.Height != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould mine the first block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould mine the first block.", success, testID)

			exp := database.BlockHash(block.PrevHash, block.Timestamp, block.MerkleRoot, block.Nonce)
			if exp != block.Hash {
				t.Fatalf("\t%s\tTest %d:\tShould hash the concatenated header fields.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould hash the concatenated header fields.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen mining is cancelled.", testID)
		{
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			trans := []database.Tx{database.NewGenesisTx("addrA", dec("25"))}

			_, err := database.POW(ctx, database.POWArgs{Difficulty: 64, Trans: trans})
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("\t%s\tTest %d:\tShould stop mining when cancelled, got %v.", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould stop mining when cancelled.", success, testID)
		}
	}
}
