// Package genesis maintains access to the genesis file and the consensus
// parameters every node on the network must share.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date            time.Time       `json:"date"`
	ChainID         uint16          `json:"chain_id"`         // The chain id represents an unique id for this running instance.
	TransPerBlock   int             `json:"trans_per_block"`  // The maximum number of user transactions that can be in a block.
	Difficulty      int             `json:"difficulty"`       // Number of leading hex zeros needed to solve the work problem.
	MiningReward    decimal.Decimal `json:"mining_reward"`    // Reward for mining a block before any halving.
	GenesisReward   decimal.Decimal `json:"genesis_reward"`   // Value paid to the founder in the genesis block.
	HalvingInterval int             `json:"halving_interval"` // Number of blocks between reward halvings.
}

// Default returns the parameters used when no genesis file is provided.
func Default() Genesis {
	return Genesis{
		Date:            time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		ChainID:         1,
		TransPerBlock:   2,
		Difficulty:      6,
		MiningReward:    decimal.NewFromInt(2),
		GenesisReward:   decimal.NewFromInt(25),
		HalvingInterval: 1000,
	}
}

// =============================================================================

// Load opens and consumes the genesis file. Fields missing from the file
// keep their default values.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis: %w", err)
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// LoadOrDefault loads the genesis file if it exists, otherwise the default
// parameters are returned.
func LoadOrDefault(path string) (Genesis, error) {
	genesis, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	return genesis, err
}

// Validate checks the parameters are usable.
func (g Genesis) Validate() error {
	switch {
	case g.TransPerBlock < 1:
		return errors.New("genesis: trans_per_block must be positive")
	case g.Difficulty < 0 || g.Difficulty > 64:
		return errors.New("genesis: difficulty must be between 0 and 64")
	case g.MiningReward.IsNegative():
		return errors.New("genesis: mining_reward can't be negative")
	case !g.GenesisReward.IsPositive():
		return errors.New("genesis: genesis_reward must be positive")
	case g.HalvingInterval < 1:
		return errors.New("genesis: halving_interval must be positive")
	}

	return nil
}

// Reward returns the mining reward for a block at the specified height. The
// reward is halved once for every completed halving interval of blocks
// preceding it.
func (g Genesis) Reward(height int) decimal.Decimal {
	reward := g.MiningReward
	if height < 2 {
		return reward
	}

	two := decimal.NewFromInt(2)
	for halvings := (height - 1) / g.HalvingInterval; halvings > 0; halvings-- {
		reward = reward.Div(two)
		if reward.IsZero() {
			break
		}
	}

	return reward
}
