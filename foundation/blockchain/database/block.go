package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/merkle"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/shopspring/decimal"
)

// ErrChainForked is returned when a block doesn't extend the local tip.
var ErrChainForked = errors.New("block does not extend the chain tip")

// powCheckInterval is the number of hash attempts performed between checks
// for a cancellation of the mining operation.
const powCheckInterval = 4096

// =============================================================================

// Block represents a group of transactions batched together.
type Block struct {
	Height       int    // Position in the chain, the genesis block is 1.
	PrevHash     string // Hash of the previous block in the chain.
	Timestamp    int64  // Time the block was mined in unix milliseconds.
	Nonce        uint64 // Value identified to solve the hash solution.
	MerkleRoot   string // Merkle tree root hash for the transactions in this block.
	MinerAddress string // Address paid by the reward or genesis transaction.
	Trans        []Tx
	Hash         string
}

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	PrevBlock  *Block // Nil when mining the genesis block.
	Difficulty int
	Trans      []Tx
	EvHandler  func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic POW puzzel.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	ev := args.EvHandler
	if ev == nil {
		ev = func(string, ...any) {}
	}

	// When mining the first block, the previous block's hash will be zero.
	prevHash := signature.ZeroHash
	height := 1
	if args.PrevBlock != nil {
		prevHash = args.PrevBlock.Hash
		height = args.PrevBlock.Height + 1
	}

	// Construct a merkle tree from the transaction for this block. The root
	// of this tree will be part of the block to be mined.
	root, err := ComputeMerkleRoot(args.Trans)
	if err != nil {
		return Block{}, err
	}

	nb := Block{
		Height:       height,
		PrevHash:     prevHash,
		Timestamp:    time.Now().UTC().UnixMilli(),
		Nonce:        0, // Will be identified by the POW algorithm.
		MerkleRoot:   root,
		MinerAddress: MinerOf(args.Trans),
		Trans:        args.Trans,
	}

	// Peform the proof of work mining operation.
	if err := nb.performPOW(ctx, args.Difficulty, ev); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// NewGenesisBlock mines the first block of a chain paying the founder.
func NewGenesisBlock(ctx context.Context, founder string, value decimal.Decimal, difficulty int, ev func(v string, args ...any)) (Block, error) {
	return POW(ctx, POWArgs{
		Difficulty: difficulty,
		Trans:      []Tx{NewGenesisTx(founder, value)},
		EvHandler:  ev,
	})
}

// performPOW does the work of mining to find a valid hash for a specified
// block. Pointer semantics are being used since a nonce is being discovered.
func (b *Block) performPOW(ctx context.Context, difficulty int, ev func(v string, args ...any)) error {
	ev("database: PerformPOW: MINING: started: blk[%d]", b.Height)
	defer ev("database: PerformPOW: MINING: completed: blk[%d]", b.Height)

	// Log the transactions that are a part of this potential block.
	for _, tx := range b.Trans {
		ev("database: PerformPOW: MINING: tx[%s]", tx)
	}

	// Loop until we find a solution or the operation is cancelled.
	for b.Nonce = 0; ; b.Nonce++ {
		if b.Nonce%powCheckInterval == 0 {
			if ctx.Err() != nil {
				ev("database: PerformPOW: MINING: CANCELLED: attempts[%d]", b.Nonce)
				return ctx.Err()
			}
		}

		if b.Nonce > 0 && b.Nonce%1_000_000 == 0 {
			ev("database: PerformPOW: MINING: attempts[%d]", b.Nonce)
		}

		// Hash the block and check if we have solved the puzzle.
		hash := b.ComputeHash()
		if !isHashSolved(difficulty, hash) {
			continue
		}

		b.Hash = hash

		ev("database: PerformPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: attempts[%d]", b.PrevHash, hash, b.Nonce+1)

		return nil
	}
}

// MinerOf returns the address paid by the last transaction when it is the
// reward or the genesis transaction. The miner address is not part of the
// block hash, blocks are validated against this value instead.
func MinerOf(trans []Tx) string {
	if len(trans) == 0 {
		return ""
	}

	last := trans[len(trans)-1]
	if (!last.IsReward() && !last.IsGenesis()) || len(last.Outputs) == 0 {
		return ""
	}

	return last.Outputs[0].Address
}

// ComputeHash returns the hash of the block header fields.
func (b Block) ComputeHash() string {
	return BlockHash(b.PrevHash, b.Timestamp, b.MerkleRoot, b.Nonce)
}

// ValidateHeader checks the block header against the previous block in the
// chain. A nil previous block means this block must be the genesis block.
func (b Block) ValidateHeader(prev *Block, difficulty int, evHandler func(v string, args ...any)) error {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	nextHeight, prevHash := 1, signature.ZeroHash
	if prev != nil {
		nextHeight, prevHash = prev.Height+1, prev.Hash
	}

	evHandler("database: ValidateHeader: validate: blk[%d]: check: block number is the next number", b.Height)

	if b.Height != nextHeight {
		return fmt.Errorf("%w: this block is not the next number, got %d, exp %d", ErrChainForked, b.Height, nextHeight)
	}

	evHandler("database: ValidateHeader: validate: blk[%d]: check: parent hash does match parent block", b.Height)

	if b.PrevHash != prevHash {
		return fmt.Errorf("%w: parent block hash doesn't match our known parent, got %s, exp %s", ErrChainForked, b.PrevHash, prevHash)
	}

	evHandler("database: ValidateHeader: validate: blk[%d]: check: block hash has been solved", b.Height)

	hash := b.ComputeHash()
	if hash != b.Hash {
		return fmt.Errorf("block hash doesn't match the header, got %s, exp %s", b.Hash, hash)
	}

	if !isHashSolved(difficulty, hash) {
		return fmt.Errorf("%s invalid block hash", hash)
	}

	if prev != nil {
		evHandler("database: ValidateHeader: validate: blk[%d]: check: block's timestamp is not before parent block's timestamp", b.Height)

		if b.Timestamp < prev.Timestamp {
			parentTime := time.UnixMilli(prev.Timestamp)
			blockTime := time.UnixMilli(b.Timestamp)
			return fmt.Errorf("block timestamp is before parent block, parent %s, block %s", parentTime, blockTime)
		}
	}

	evHandler("database: ValidateHeader: validate: blk[%d]: check: merkle root does match transactions", b.Height)

	root, err := ComputeMerkleRoot(b.Trans)
	if err != nil {
		return err
	}

	if b.MerkleRoot != root {
		return fmt.Errorf("merkle root does not match transactions, got %s, exp %s", b.MerkleRoot, root)
	}

	return nil
}

// =============================================================================

// BlockHash returns the sha256 hex of the concatenated header fields.
func BlockHash(prevHash string, timestamp int64, merkleRoot string, nonce uint64) string {
	var b strings.Builder
	b.WriteString(prevHash)
	b.WriteString(strconv.FormatInt(timestamp, 10))
	b.WriteString(merkleRoot)
	b.WriteString(strconv.FormatUint(nonce, 10))

	return signature.Hash(b.String())
}

// ComputeMerkleRoot returns the merkle root for the set of transactions.
func ComputeMerkleRoot(trans []Tx) (string, error) {
	tree, err := merkle.NewTree(trans)
	if err != nil {
		return "", err
	}

	return tree.RootHex(), nil
}

// isHashSolved checks the hash to make sure it complies with
// the POW rules. We need to match a difficulty number of 0's.
func isHashSolved(difficulty int, hash string) bool {
	if len(hash) != 64 || difficulty > len(hash) {
		return false
	}

	return strings.Count(hash[:difficulty], "0") == difficulty
}
