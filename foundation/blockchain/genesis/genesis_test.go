package genesis_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/shopspring/decimal"
)

func Test_Reward(t *testing.T) {
	gen := genesis.Default()

	table := []struct {
		height int
		exp    string
	}{
		{height: 1, exp: "2"},
		{height: 2, exp: "2"},
		{height: 1000, exp: "2"},
		{height: 1001, exp: "1"},
		{height: 2001, exp: "0.5"},
		{height: 3001, exp: "0.25"},
	}

	for _, tst := range table {
		got := gen.Reward(tst.height)
		if !got.Equal(decimal.RequireFromString(tst.exp)) {
			t.Logf("got: %s", got)
			t.Logf("exp: %s", tst.exp)
			t.Fatalf("Should get the right reward for height %d.", tst.height)
		}
	}
}

func Test_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.json")
	content := `{"chain_id": 7, "difficulty": 2, "mining_reward": "4"}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Should be able to write the genesis file: %s", err)
	}

	gen, err := genesis.Load(path)
	if err != nil {
		t.Fatalf("Should be able to load the genesis file: %s", err)
	}

	if gen.ChainID != 7 || gen.Difficulty != 2 || !gen.MiningReward.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("Should get the values from the file: %+v", gen)
	}

	if gen.TransPerBlock != 2 || !gen.GenesisReward.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("Should keep the defaults for missing fields: %+v", gen)
	}
}

func Test_LoadOrDefault(t *testing.T) {
	gen, err := genesis.LoadOrDefault(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Should get defaults for a missing file: %s", err)
	}

	if gen.Difficulty != 6 || gen.HalvingInterval != 1000 {
		t.Fatalf("Should get the default parameters: %+v", gen)
	}

	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(path, []byte(`{"trans_per_block": 0}`), 0600); err != nil {
		t.Fatalf("Should be able to write the genesis file: %s", err)
	}

	if _, err := genesis.LoadOrDefault(path); err == nil {
		t.Fatalf("Should reject invalid parameters.")
	}
}
