package notifier

import (
	"sync"

	"github.com/thanhnp/pow-ledger/internal/models"
)

// BlockHandler is called when a block is appended to a chain
type BlockHandler func(chain string, block *models.Block)

// BlockNotifier defines the interface for block notification sources
type BlockNotifier interface {
	// OnBlockConnected registers a handler for new blocks and returns a
	// func that unregisters it
	OnBlockConnected(handler BlockHandler) (unsubscribe func())
}

type subscription struct {
	id      uint64
	handler BlockHandler
}

// Hub fans appended blocks out to registered handlers
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
}

// NewHub creates an empty Hub
func NewHub() *Hub {
	return &Hub{}
}

// OnBlockConnected registers a handler for new blocks. Calling the returned
// func removes it; further calls are no-ops.
func (h *Hub) OnBlockConnected(handler BlockHandler) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	h.subs = append(h.subs, subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(id) })
	}
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, s := range h.subs {
		if s.id == id {
			// copy so a Publish holding the old slice is unaffected
			subs := make([]subscription, 0, len(h.subs)-1)
			subs = append(subs, h.subs[:i]...)
			h.subs = append(subs, h.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered handlers
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish calls every handler in registration order. Each handler gets its
// own copy of the block.
func (h *Hub) Publish(chain string, block *models.Block) {
	h.mu.RLock()
	subs := h.subs
	h.mu.RUnlock()

	for _, s := range subs {
		s.handler(chain, block.Clone())
	}
}
