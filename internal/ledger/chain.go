package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/thanhnp/pow-ledger/internal/models"
)

// DefaultDifficulty is the number of leading zero hex characters required
// when nothing else is configured
const DefaultDifficulty = 2

// ErrInvalidDifficulty is returned for a difficulty outside 0..MaxDifficulty
var ErrInvalidDifficulty = errors.New("invalid difficulty")

// DefaultGenesisTransactions returns the marker payload of the genesis block
func DefaultGenesisTransactions() []string {
	return []string{"Genesis Block"}
}

// Validation failure reasons
const (
	ReasonHashMismatch = "stored hash does not match recomputed hash"
	ReasonBrokenLink   = "previous hash does not match predecessor hash"
)

// ValidationError describes the first block that failed validation
type ValidationError struct {
	Index  uint64
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("block %d: %s", e.Index, e.Reason)
}

// BlockHandler is called with a copy of every block appended to a chain
type BlockHandler func(block *models.Block)

// Option configures a Chain
type Option func(*Chain)

// WithGenesisTransactions overrides the genesis marker payload
func WithGenesisTransactions(txs []string) Option {
	return func(c *Chain) {
		c.genesisTxs = append([]string{}, txs...)
	}
}

// WithClock sets the time source used for genesis and mining timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Chain) {
		if now != nil {
			c.now = now
		}
	}
}

// Chain is an append-only sequence of proof-of-work blocks.
//
// Appends are serialized: only one proof-of-work search runs at a time.
// Readers never wait for mining, they see the chain as of the last
// completed append.
type Chain struct {
	appendMu sync.Mutex

	mu         sync.RWMutex
	blocks     []*Block
	handlers   []BlockHandler
	difficulty int
	genesisTxs []string
	now        func() time.Time
}

// New creates a chain holding only its genesis block. The genesis block is
// hashed once and is not mined.
func New(difficulty int, opts ...Option) (*Chain, error) {
	if difficulty < 0 || difficulty > MaxDifficulty {
		return nil, fmt.Errorf("%w: %d (must be between 0 and %d)", ErrInvalidDifficulty, difficulty, MaxDifficulty)
	}

	c := &Chain{
		difficulty: difficulty,
		genesisTxs: DefaultGenesisTransactions(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	genesis := NewBlock(0, c.now(), c.genesisTxs, GenesisPreviousHash)
	c.blocks = []*Block{genesis}
	return c, nil
}

// Difficulty returns the fixed difficulty of the chain
func (c *Chain) Difficulty() int {
	return c.difficulty
}

// Len returns the number of blocks including genesis
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}

// Tip returns a copy of the latest block
func (c *Chain) Tip() *models.Block {
	return c.tip().View()
}

// Block returns a copy of the block at index
func (c *Chain) Block(index uint64) (*models.Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if index >= uint64(len(c.blocks)) {
		return nil, false
	}
	return c.blocks[index].View(), true
}

// BlockByHash returns a copy of the block with the given hash
func (c *Chain) BlockByHash(hash string) (*models.Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := len(c.blocks) - 1; i >= 0; i-- {
		if c.blocks[i].Hash == hash {
			return c.blocks[i].View(), true
		}
	}
	return nil, false
}

// OnBlockAppended registers a handler for newly appended blocks. Handlers
// run on the appending goroutine after the block is visible to readers.
func (c *Chain) OnBlockAppended(handler BlockHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

// Append mines a block holding transactions and appends it. It runs until
// the proof-of-work search succeeds.
func (c *Chain) Append(transactions []string) *models.Block {
	// a background context is never done and the difficulty was checked in New
	block, _ := c.AppendContext(context.Background(), transactions)
	return block
}

// AppendContext is Append with a cancellable proof-of-work search. When ctx
// is done before a nonce is found the chain is left unchanged and the
// context error is returned.
func (c *Chain) AppendContext(ctx context.Context, transactions []string) (*models.Block, error) {
	c.appendMu.Lock()
	defer c.appendMu.Unlock()

	tip := c.tip()
	candidate := NewBlock(tip.Index+1, c.now(), transactions, tip.Hash)

	seal, err := Mine(ctx, *candidate, c.difficulty, c.now)
	if err != nil {
		return nil, fmt.Errorf("failed to mine block %d: %w", candidate.Index, err)
	}
	candidate.seal(seal)

	c.mu.Lock()
	c.blocks = append(c.blocks, candidate)
	handlers := c.handlers
	c.mu.Unlock()

	for _, h := range handlers {
		h(candidate.View())
	}
	return candidate.View(), nil
}

// Verify walks the chain from block 1 and returns a *ValidationError for
// the first block whose hash does not recompute or whose previous hash
// does not match its predecessor. Genesis is not checked.
func (c *Chain) Verify() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := 1; i < len(c.blocks); i++ {
		current := c.blocks[i]
		previous := c.blocks[i-1]

		if current.Hash != current.Recompute() {
			return &ValidationError{Index: current.Index, Reason: ReasonHashMismatch}
		}
		if current.PreviousHash != previous.Hash {
			return &ValidationError{Index: current.Index, Reason: ReasonBrokenLink}
		}
	}
	return nil
}

// Validate reports whether every block passes Verify's checks
func (c *Chain) Validate() bool {
	return c.Verify() == nil
}

// Snapshot returns detached copies of all blocks in order
func (c *Chain) Snapshot() []models.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Block, len(c.blocks))
	for i, b := range c.blocks {
		out[i] = *b.View()
	}
	return out
}

func (c *Chain) tip() *Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[len(c.blocks)-1]
}
