package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/thanhnp/pow-ledger/internal/api/middleware"
	"github.com/thanhnp/pow-ledger/internal/models"
	"github.com/thanhnp/pow-ledger/internal/storage"
)

// BlockHandler serves block lookups. The block index is filled
// asynchronously, so a miss or a stale tip falls back to the chain itself.
type BlockHandler struct {
	blockStore *storage.BlockStore
}

// NewBlockHandler creates a new BlockHandler
func NewBlockHandler(blockStore *storage.BlockStore) *BlockHandler {
	return &BlockHandler{
		blockStore: blockStore,
	}
}

func fromChain(c *gin.Context, block *models.Block) *models.Block {
	block.Chain = middleware.ChainEntry(c).ID
	return block
}

// GetByHash returns a block by its hash
// GET /api/v1/chains/:chain/blocks/:hash
func (h *BlockHandler) GetByHash(c *gin.Context) {
	chain := c.Param("chain")
	hash := c.Param("hash")

	block, err := h.blockStore.GetByHash(chain, hash)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if block == nil {
		if b, ok := middleware.ChainEntry(c).Chain.BlockByHash(hash); ok {
			block = fromChain(c, b)
		}
	}

	if block == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Block not found"})
		return
	}

	c.JSON(http.StatusOK, block)
}

// GetByHeight returns a block by its height
// GET /api/v1/chains/:chain/blocks/height/:height
func (h *BlockHandler) GetByHeight(c *gin.Context) {
	chain := c.Param("chain")
	heightStr := c.Param("height")

	height, err := strconv.ParseUint(heightStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid height"})
		return
	}

	block, err := h.blockStore.GetByHeight(chain, height)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if block == nil {
		if b, ok := middleware.ChainEntry(c).Chain.Block(height); ok {
			block = fromChain(c, b)
		}
	}

	if block == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Block not found"})
		return
	}

	c.JSON(http.StatusOK, block)
}

// GetLatest returns the chain tip
// GET /api/v1/chains/:chain/blocks/latest
func (h *BlockHandler) GetLatest(c *gin.Context) {
	chain := c.Param("chain")

	block, err := h.blockStore.GetLatest(chain)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// the index may lag behind the chain
	if tip := middleware.ChainEntry(c).Chain.Tip(); block == nil || block.Index < tip.Index {
		block = fromChain(c, tip)
	}

	c.JSON(http.StatusOK, block)
}
