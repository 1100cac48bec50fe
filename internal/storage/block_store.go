package storage

import (
	"encoding/json"
	"fmt"

	"github.com/thanhnp/pow-ledger/internal/models"
)

// BlockStore indexes ledger blocks by hash and by height
type BlockStore struct {
	db   *PebbleDB
	tips *TipStore
}

// NewBlockStore creates a new BlockStore
func NewBlockStore(db *PebbleDB, tips *TipStore) *BlockStore {
	return &BlockStore{db: db, tips: tips}
}

// blockKey creates a key for the blocks column family
func blockKey(chain, hash string) []byte {
	return []byte(fmt.Sprintf("%s:%s", chain, hash))
}

// blockHeightKey creates a key for the blocks_by_height column family
func blockHeightKey(chain string, height uint64) []byte {
	return []byte(fmt.Sprintf("%s:%020d", chain, height))
}

func chainPrefix(chain string) []byte {
	return []byte(chain + ":")
}

// Save stores a block and its height index entry atomically
func (s *BlockStore) Save(block *models.Block) error {
	return s.SaveBatch([]*models.Block{block})
}

// SaveBatch saves multiple blocks in a single batch operation
func (s *BlockStore) SaveBatch(blocks []*models.Block) error {
	batch := s.db.NewBatch()
	defer batch.Destroy()

	for _, block := range blocks {
		data, err := json.Marshal(block)
		if err != nil {
			return fmt.Errorf("failed to marshal block: %w", err)
		}

		if err := s.db.PutBatch(batch, CFBlocks, blockKey(block.Chain, block.Hash), data); err != nil {
			return err
		}
		if err := s.db.PutBatch(batch, CFBlocksByHeight, blockHeightKey(block.Chain, block.Index), []byte(block.Hash)); err != nil {
			return err
		}
	}

	return s.db.WriteBatch(batch)
}

// GetByHash retrieves a block by its hash
func (s *BlockStore) GetByHash(chain, hash string) (*models.Block, error) {
	data, err := s.db.Get(CFBlocks, blockKey(chain, hash))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var block models.Block
	if err := json.Unmarshal(data, &block); err != nil {
		return nil, fmt.Errorf("failed to unmarshal block: %w", err)
	}
	return &block, nil
}

// GetByHeight retrieves a block by its height
func (s *BlockStore) GetByHeight(chain string, height uint64) (*models.Block, error) {
	hashData, err := s.db.Get(CFBlocksByHeight, blockHeightKey(chain, height))
	if err != nil {
		return nil, err
	}
	if hashData == nil {
		return nil, nil
	}

	return s.GetByHash(chain, string(hashData))
}

// GetLatest retrieves the highest indexed block for a chain
func (s *BlockStore) GetLatest(chain string) (*models.Block, error) {
	height, err := s.tips.GetTipHeight(chain)
	if err != nil {
		return nil, err
	}
	if height < 0 {
		return nil, nil
	}

	return s.GetByHeight(chain, uint64(height))
}

// List returns every indexed block of a chain in height order
func (s *BlockStore) List(chain string) ([]*models.Block, error) {
	iter, err := s.db.NewPrefixIterator(CFBlocksByHeight, chainPrefix(chain))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var blocks []*models.Block
	for ; iter.Valid(); iter.Next() {
		block, err := s.GetByHash(chain, string(iter.Value()))
		if err != nil {
			return nil, err
		}
		if block != nil {
			blocks = append(blocks, block)
		}
	}
	return blocks, nil
}

// DeleteChain removes every block and the tip record of a chain
func (s *BlockStore) DeleteChain(chain string) error {
	iter, err := s.db.NewPrefixIterator(CFBlocksByHeight, chainPrefix(chain))
	if err != nil {
		return err
	}
	defer iter.Close()

	batch := s.db.NewBatch()
	defer batch.Destroy()

	for ; iter.Valid(); iter.Next() {
		// Key is chain:height, Value the block hash
		if err := s.db.DeleteBatch(batch, CFBlocksByHeight, iter.Key()); err != nil {
			return err
		}
		if err := s.db.DeleteBatch(batch, CFBlocks, blockKey(chain, string(iter.Value()))); err != nil {
			return err
		}
	}

	if err := s.db.WriteBatch(batch); err != nil {
		return err
	}
	return s.tips.DeleteTip(chain)
}
