package storage

// Stores holds every store backed by one database
type Stores struct {
	DB         *PebbleDB
	BlockStore *BlockStore
	TipStore   *TipStore
}

// NewStores creates all stores using the given database
func NewStores(db *PebbleDB) *Stores {
	tips := NewTipStore(db)
	return &Stores{
		DB:         db,
		BlockStore: NewBlockStore(db, tips),
		TipStore:   tips,
	}
}

// Close closes the database
func (s *Stores) Close() error {
	return s.DB.Close()
}
