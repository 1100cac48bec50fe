package indexer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/thanhnp/pow-ledger/internal/models"
	"github.com/thanhnp/pow-ledger/internal/notifier"
	"github.com/thanhnp/pow-ledger/internal/storage"
)

// QueueSize is the number of appended blocks that may wait for indexing
const QueueSize = 256

// RetryDelay is the pause before a failed index write is retried
var RetryDelay = time.Second

// ErrNotRunning is returned by Flush when the indexer is stopped
var ErrNotRunning = errors.New("indexer not running")

// Source is the chain an Indexer reads its backlog from
type Source interface {
	Snapshot() []models.Block
}

// item is either a block to index or a flush request
type item struct {
	block *models.Block
	ack   chan struct{}
}

// Indexer copies a chain's blocks into the block store so they can be
// looked up by hash and height. On start it backfills everything above the
// stored tip, then follows the notifier.
type Indexer struct {
	chain      string
	source     Source
	notifier   notifier.BlockNotifier
	blockStore *storage.BlockStore
	tipStore   *storage.TipStore

	mu          sync.Mutex
	running     bool
	unsubscribe func()
	queue       chan item
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}

	lastIndexed int64
}

// NewIndexer creates an Indexer for one chain
func NewIndexer(chain string, source Source, n notifier.BlockNotifier, stores *storage.Stores) *Indexer {
	return &Indexer{
		chain:       chain,
		source:      source,
		notifier:    n,
		blockStore:  stores.BlockStore,
		tipStore:    stores.TipStore,
		lastIndexed: -1,
	}
}

// Start begins indexing in the background
func (ix *Indexer) Start(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.running {
		return nil
	}

	tip, err := ix.tipStore.GetTipHeight(ix.chain)
	if err != nil {
		return fmt.Errorf("failed to read tip height: %w", err)
	}
	ix.lastIndexed = tip

	ix.queue = make(chan item, QueueSize)
	ix.done = make(chan struct{})
	ix.ctx, ix.cancel = context.WithCancel(ctx)
	ix.running = true

	// Register before taking the backlog snapshot so no block falls between
	ix.unsubscribe = ix.notifier.OnBlockConnected(ix.handleBlockConnected)

	go ix.run(ix.ctx, ix.queue, ix.done)
	return nil
}

// Stop unregisters from the notifier, stops indexing and waits for the
// worker to exit
func (ix *Indexer) Stop() error {
	ix.mu.Lock()
	if !ix.running {
		ix.mu.Unlock()
		return nil
	}
	ix.running = false
	ix.cancel()
	unsubscribe := ix.unsubscribe
	ix.unsubscribe = nil
	done := ix.done
	ix.mu.Unlock()

	unsubscribe()

	<-done
	return nil
}

// Flush blocks until every block queued before the call is indexed
func (ix *Indexer) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	if !ix.enqueue(item{ack: ack}) {
		return ErrNotRunning
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LastIndexed returns the highest indexed height, -1 before the first block
func (ix *Indexer) LastIndexed() int64 {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.lastIndexed
}

func (ix *Indexer) handleBlockConnected(chain string, block *models.Block) {
	if chain != ix.chain {
		return
	}
	if !ix.enqueue(item{block: block}) {
		log.Printf("[%s] Indexer stopping, block %d left for backfill", ix.chain, block.Index)
	}
}

func (ix *Indexer) enqueue(it item) bool {
	ix.mu.Lock()
	if !ix.running {
		ix.mu.Unlock()
		return false
	}
	queue, ctx := ix.queue, ix.ctx
	ix.mu.Unlock()

	select {
	case queue <- it:
		return true
	case <-ctx.Done():
		return false
	}
}

func (ix *Indexer) run(ctx context.Context, queue <-chan item, done chan<- struct{}) {
	defer close(done)

	ix.backfill(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[%s] Indexer stopped at height %d", ix.chain, ix.LastIndexed())
			return
		case it := <-queue:
			if it.ack != nil {
				close(it.ack)
				continue
			}
			if int64(it.block.Index) <= ix.LastIndexed() {
				continue
			}
			ix.indexWithRetry(ctx, []*models.Block{it.block})
		}
	}
}

// backfill indexes every block of the source above the stored tip
func (ix *Indexer) backfill(ctx context.Context) {
	snapshot := ix.source.Snapshot()
	from := ix.LastIndexed() + 1
	if from >= int64(len(snapshot)) {
		return
	}

	log.Printf("[%s] Backfilling blocks %d to %d", ix.chain, from, len(snapshot)-1)

	pending := make([]*models.Block, 0, int64(len(snapshot))-from)
	for i := from; i < int64(len(snapshot)); i++ {
		b := snapshot[i]
		pending = append(pending, &b)
	}
	ix.indexWithRetry(ctx, pending)
}

func (ix *Indexer) indexWithRetry(ctx context.Context, blocks []*models.Block) {
	for {
		err := ix.index(blocks)
		if err == nil {
			return
		}
		log.Printf("[%s] Failed to index blocks %d-%d: %v", ix.chain, blocks[0].Index, blocks[len(blocks)-1].Index, err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(RetryDelay):
		}
	}
}

func (ix *Indexer) index(blocks []*models.Block) error {
	for _, b := range blocks {
		b.Chain = ix.chain
	}
	if err := ix.blockStore.SaveBatch(blocks); err != nil {
		return err
	}

	tip := int64(blocks[len(blocks)-1].Index)
	if err := ix.tipStore.SetTipHeight(ix.chain, tip); err != nil {
		return err
	}

	ix.mu.Lock()
	ix.lastIndexed = tip
	ix.mu.Unlock()
	return nil
}
