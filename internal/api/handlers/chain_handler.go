package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thanhnp/pow-ledger/internal/api/middleware"
	"github.com/thanhnp/pow-ledger/internal/ledger"
	"github.com/thanhnp/pow-ledger/internal/models"
	"github.com/thanhnp/pow-ledger/internal/registry"
)

// ChainDefaults are applied to chains created without explicit settings
type ChainDefaults struct {
	Difficulty          int
	GenesisTransactions []string
}

// ChainHandler handles chain lifecycle, append, validate and snapshot
type ChainHandler struct {
	registry      *registry.Registry
	defaults      ChainDefaults
	miningTimeout time.Duration
}

// NewChainHandler creates a new ChainHandler. A zero miningTimeout lets a
// proof-of-work search run for as long as the request stays open.
func NewChainHandler(reg *registry.Registry, defaults ChainDefaults, miningTimeout time.Duration) *ChainHandler {
	return &ChainHandler{
		registry:      reg,
		defaults:      defaults,
		miningTimeout: miningTimeout,
	}
}

type createChainRequest struct {
	Difficulty          *int      `json:"difficulty"`
	GenesisTransactions *[]string `json:"genesis_transactions"`
}

type appendRequest struct {
	Transactions []string `json:"transactions"`
}

func summarize(id string, chain *ledger.Chain) models.ChainSummary {
	return models.ChainSummary{
		ID:         id,
		Difficulty: chain.Difficulty(),
		Length:     chain.Len(),
		TipHash:    chain.Tip().Hash,
	}
}

// Create creates a new chain
// POST /api/v1/chains
func (h *ChainHandler) Create(c *gin.Context) {
	var req createChainRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	difficulty := h.defaults.Difficulty
	if req.Difficulty != nil {
		difficulty = *req.Difficulty
	}
	genesis := h.defaults.GenesisTransactions
	if req.GenesisTransactions != nil {
		genesis = *req.GenesisTransactions
	}

	entry, err := h.registry.Create(difficulty, ledger.WithGenesisTransactions(genesis))
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidDifficulty) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, summarize(entry.ID, entry.Chain))
}

// List returns every registered chain
// GET /api/v1/chains
func (h *ChainHandler) List(c *gin.Context) {
	ids := h.registry.IDs()
	out := make([]models.ChainSummary, 0, len(ids))
	for _, id := range ids {
		entry, err := h.registry.Get(id)
		if err != nil {
			// removed concurrently
			continue
		}
		out = append(out, summarize(id, entry.Chain))
	}
	c.JSON(http.StatusOK, out)
}

// Get returns a chain summary
// GET /api/v1/chains/:chain
func (h *ChainHandler) Get(c *gin.Context) {
	entry := middleware.ChainEntry(c)
	c.JSON(http.StatusOK, summarize(entry.ID, entry.Chain))
}

// Delete removes a chain
// DELETE /api/v1/chains/:chain
func (h *ChainHandler) Delete(c *gin.Context) {
	entry := middleware.ChainEntry(c)
	if err := h.registry.Remove(entry.ID); err != nil {
		if errors.Is(err, registry.ErrChainNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Chain not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// Append mines a new block with the given transactions
// POST /api/v1/chains/:chain/blocks
func (h *ChainHandler) Append(c *gin.Context) {
	entry := middleware.ChainEntry(c)

	var req appendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx := c.Request.Context()
	if h.miningTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.miningTimeout)
		defer cancel()
	}

	start := time.Now()
	block, err := entry.Chain.AppendContext(ctx, req.Transactions)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Mining timed out"})
		case errors.Is(err, context.Canceled):
			log.Printf("[%s] Mining cancelled by client", entry.ID)
			c.Status(http.StatusServiceUnavailable)
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	log.Printf("[%s] Mined block %d nonce=%d in %v", entry.ID, block.Index, block.Nonce, time.Since(start))
	block.Chain = entry.ID
	c.JSON(http.StatusCreated, block)
}

// Snapshot returns every block of the chain in order
// GET /api/v1/chains/:chain/blocks
func (h *ChainHandler) Snapshot(c *gin.Context) {
	entry := middleware.ChainEntry(c)
	blocks := entry.Chain.Snapshot()
	for i := range blocks {
		blocks[i].Chain = entry.ID
	}
	c.JSON(http.StatusOK, blocks)
}

// Validate checks hash recomputation and linkage of the chain
// GET /api/v1/chains/:chain/validate
func (h *ChainHandler) Validate(c *gin.Context) {
	entry := middleware.ChainEntry(c)

	err := entry.Chain.Verify()
	if err == nil {
		c.JSON(http.StatusOK, models.ValidationResult{Valid: true})
		return
	}

	var verr *ledger.ValidationError
	if !errors.As(err, &verr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	index := verr.Index
	c.JSON(http.StatusOK, models.ValidationResult{Valid: false, Index: &index, Reason: verr.Reason})
}
