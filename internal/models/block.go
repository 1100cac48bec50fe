package models

import (
	"time"
)

// Block is the read-only view of a ledger block handed to callers
type Block struct {
	Index        uint64    `json:"index"`
	Timestamp    time.Time `json:"timestamp"`
	Transactions []string  `json:"transactions"`
	Hash         string    `json:"hash"`
	PreviousHash string    `json:"previous_hash"`
	Nonce        uint64    `json:"nonce"`
	Chain        string    `json:"chain,omitempty"` // chain handle, set by the registry
}

// Clone returns a deep copy so the caller can never reach shared state
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	out := *b
	out.Transactions = append([]string{}, b.Transactions...)
	return &out
}
