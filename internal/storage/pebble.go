package storage

import (
	"bytes"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// Key prefixes (simulating column families)
const (
	PrefixBlocks         = "blk:"
	PrefixBlocksByHeight = "bht:"
	PrefixTips           = "tip:"
)

// Column family name to prefix mapping
var cfPrefixes = map[string]string{
	CFBlocks:         PrefixBlocks,
	CFBlocksByHeight: PrefixBlocksByHeight,
	CFTips:           PrefixTips,
}

// Column family names
const (
	CFBlocks         = "blocks"
	CFBlocksByHeight = "blocks_by_height"
	CFTips           = "tips"
)

// DefaultCacheSize is the block cache size used when none is configured
const DefaultCacheSize = 64 << 20

// PebbleDB wraps an in-memory Pebble database. Nothing is written to disk;
// the index lives as long as the process.
type PebbleDB struct {
	db *pebble.DB
}

// WriteBatch wraps Pebble's batch for atomic writes
type WriteBatch struct {
	batch *pebble.Batch
	db    *PebbleDB
}

// Iterator wraps Pebble's iterator
type Iterator struct {
	iter     *pebble.Iterator
	cfPrefix []byte // column family prefix, stripped from keys
}

// NewPebbleDB opens an in-memory PebbleDB with a block cache of cacheSize bytes
func NewPebbleDB(cacheSize int64) (*PebbleDB, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	cache := pebble.NewCache(cacheSize)
	defer cache.Unref()

	opts := &pebble.Options{
		FS:           vfs.NewMem(),
		Cache:        cache,
		MaxOpenFiles: 500,
	}

	db, err := pebble.Open("ledger-index", opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &PebbleDB{db: db}, nil
}

// Close closes the database
func (p *PebbleDB) Close() error {
	return p.db.Close()
}

// prefixKey creates a prefixed key for the given column family
func (p *PebbleDB) prefixKey(cf string, key []byte) ([]byte, error) {
	prefix, ok := cfPrefixes[cf]
	if !ok {
		return nil, fmt.Errorf("column family not found: %s", cf)
	}
	return append([]byte(prefix), key...), nil
}

// Put stores a key-value pair in the specified column family
func (p *PebbleDB) Put(cf string, key, value []byte) error {
	prefixedKey, err := p.prefixKey(cf, key)
	if err != nil {
		return err
	}
	return p.db.Set(prefixedKey, value, pebble.NoSync)
}

// Get retrieves a value from the specified column family. A missing key
// yields nil, nil.
func (p *PebbleDB) Get(cf string, key []byte) ([]byte, error) {
	prefixedKey, err := p.prefixKey(cf, key)
	if err != nil {
		return nil, err
	}

	value, closer, err := p.db.Get(prefixedKey)
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	defer closer.Close()

	// Copy the value since it's only valid until closer.Close()
	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

// Delete removes a key from the specified column family
func (p *PebbleDB) Delete(cf string, key []byte) error {
	prefixedKey, err := p.prefixKey(cf, key)
	if err != nil {
		return err
	}
	return p.db.Delete(prefixedKey, pebble.NoSync)
}

// NewBatch creates a new write batch
func (p *PebbleDB) NewBatch() *WriteBatch {
	return &WriteBatch{
		batch: p.db.NewBatch(),
		db:    p,
	}
}

// WriteBatch writes a batch to the database
func (p *PebbleDB) WriteBatch(batch *WriteBatch) error {
	return batch.batch.Commit(pebble.NoSync)
}

// PutBatch adds a put operation to the batch
func (p *PebbleDB) PutBatch(batch *WriteBatch, cf string, key, value []byte) error {
	prefixedKey, err := p.prefixKey(cf, key)
	if err != nil {
		return err
	}
	return batch.batch.Set(prefixedKey, value, nil)
}

// DeleteBatch adds a delete operation to the batch
func (p *PebbleDB) DeleteBatch(batch *WriteBatch, cf string, key []byte) error {
	prefixedKey, err := p.prefixKey(cf, key)
	if err != nil {
		return err
	}
	return batch.batch.Delete(prefixedKey, nil)
}

// Destroy closes the batch and releases resources
func (b *WriteBatch) Destroy() {
	b.batch.Close()
}

// NewPrefixIterator creates an iterator over the keys of a column family
// that start with prefix
func (p *PebbleDB) NewPrefixIterator(cf string, prefix []byte) (*Iterator, error) {
	cfPrefix, ok := cfPrefixes[cf]
	if !ok {
		return nil, fmt.Errorf("column family not found: %s", cf)
	}

	cfPrefixBytes := []byte(cfPrefix)
	fullPrefix := append(append([]byte{}, cfPrefixBytes...), prefix...)
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: fullPrefix,
		UpperBound: prefixUpperBound(fullPrefix),
	})
	if err != nil {
		return nil, err
	}

	iter.First()
	return &Iterator{iter: iter, cfPrefix: cfPrefixBytes}, nil
}

// prefixUpperBound returns the upper bound for prefix iteration
func prefixUpperBound(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}

// Valid returns true if the iterator is positioned at a valid key
func (i *Iterator) Valid() bool {
	return i.iter.Valid()
}

// Next advances the iterator to the next key
func (i *Iterator) Next() bool {
	return i.iter.Next()
}

// Key returns the current key without the column family prefix
func (i *Iterator) Key() []byte {
	key := i.iter.Key()
	if len(key) > len(i.cfPrefix) && bytes.HasPrefix(key, i.cfPrefix) {
		return key[len(i.cfPrefix):]
	}
	return key
}

// Value returns a copy of the current value
func (i *Iterator) Value() []byte {
	return append([]byte{}, i.iter.Value()...)
}

// Close closes the iterator
func (i *Iterator) Close() error {
	return i.iter.Close()
}
