package storage

import (
	"fmt"
	"strconv"
)

// TipStore records the highest indexed block height per chain
type TipStore struct {
	db *PebbleDB
}

// NewTipStore creates a new TipStore
func NewTipStore(db *PebbleDB) *TipStore {
	return &TipStore{db: db}
}

// GetTipHeight returns the highest indexed height for a chain, or -1 if
// nothing has been indexed yet
func (s *TipStore) GetTipHeight(chain string) (int64, error) {
	data, err := s.db.Get(CFTips, []byte(chain))
	if err != nil {
		return 0, err
	}
	if data == nil {
		return -1, nil
	}

	height, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse tip height: %w", err)
	}

	return height, nil
}

// SetTipHeight sets the highest indexed height for a chain
func (s *TipStore) SetTipHeight(chain string, height int64) error {
	return s.db.Put(CFTips, []byte(chain), []byte(strconv.FormatInt(height, 10)))
}

// DeleteTip forgets the tip of a chain
func (s *TipStore) DeleteTip(chain string) error {
	return s.db.Delete(CFTips, []byte(chain))
}
