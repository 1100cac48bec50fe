package registry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/thanhnp/pow-ledger/internal/indexer"
	"github.com/thanhnp/pow-ledger/internal/ledger"
	"github.com/thanhnp/pow-ledger/internal/models"
	"github.com/thanhnp/pow-ledger/internal/notifier"
	"github.com/thanhnp/pow-ledger/internal/storage"
)

// ErrChainNotFound is returned for an unknown chain handle
var ErrChainNotFound = errors.New("chain not found")

// Entry is one registered chain and its indexer
type Entry struct {
	ID      string
	Chain   *ledger.Chain
	Indexer *indexer.Indexer
}

// Registry owns independent chains keyed by a UUID handle. Every chain
// publishes appended blocks to the shared hub, and its indexer copies them
// into the shared stores.
type Registry struct {
	ctx    context.Context
	hub    *notifier.Hub
	stores *storage.Stores

	mu      sync.RWMutex
	entries map[string]*Entry
}

// New creates an empty Registry. Indexers run until ctx is done or Close
// is called.
func New(ctx context.Context, hub *notifier.Hub, stores *storage.Stores) *Registry {
	return &Registry{
		ctx:     ctx,
		hub:     hub,
		stores:  stores,
		entries: make(map[string]*Entry),
	}
}

// Create builds a new chain and starts indexing it
func (r *Registry) Create(difficulty int, opts ...ledger.Option) (*Entry, error) {
	chain, err := ledger.New(difficulty, opts...)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	chain.OnBlockAppended(func(block *models.Block) {
		block.Chain = id
		r.hub.Publish(id, block)
	})

	ix := indexer.NewIndexer(id, chain, r.hub, r.stores)
	if err := ix.Start(r.ctx); err != nil {
		return nil, fmt.Errorf("failed to start indexer: %w", err)
	}

	entry := &Entry{ID: id, Chain: chain, Indexer: ix}

	r.mu.Lock()
	r.entries[id] = entry
	r.mu.Unlock()

	log.Printf("[%s] Chain created with difficulty %d", id, difficulty)
	return entry, nil
}

// Get returns the chain registered under id
func (r *Registry) Get(id string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChainNotFound, id)
	}
	return entry, nil
}

// IDs returns every registered handle in sorted order
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Remove unregisters a chain, stops its indexer and drops its index
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	entry, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrChainNotFound, id)
	}

	if err := entry.Indexer.Stop(); err != nil {
		return fmt.Errorf("failed to stop indexer: %w", err)
	}
	if err := r.stores.BlockStore.DeleteChain(id); err != nil {
		return fmt.Errorf("failed to delete chain index: %w", err)
	}

	log.Printf("[%s] Chain removed", id)
	return nil
}

// BlockStore returns the shared block index
func (r *Registry) BlockStore() *storage.BlockStore {
	return r.stores.BlockStore
}

// Close stops every indexer
func (r *Registry) Close() error {
	r.mu.RLock()
	entries := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	var errs []error
	for _, e := range entries {
		if err := e.Indexer.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
