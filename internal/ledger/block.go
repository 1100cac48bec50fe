package ledger

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/thanhnp/pow-ledger/internal/models"
)

// TimestampLayout is the timestamp encoding used in the digest input.
// Changing it changes every block hash.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

// GenesisPreviousHash is the previous hash sentinel of block 0
const GenesisPreviousHash = "0"

const fieldSeparator = '|'

// Block is one ledger entry. Nonce, Timestamp and Hash only change while
// the block is being mined; once appended to a Chain it is frozen.
type Block struct {
	Index        uint64
	Timestamp    time.Time
	Transactions []string
	PreviousHash string
	Nonce        uint64
	Hash         string
}

// NewBlock builds a block with nonce 0 and its hash already computed
func NewBlock(index uint64, timestamp time.Time, transactions []string, previousHash string) *Block {
	b := &Block{
		Index:        index,
		Timestamp:    timestamp.UTC(),
		Transactions: append([]string{}, transactions...),
		PreviousHash: previousHash,
	}
	b.Hash = b.Digest(0)
	return b
}

// Digest hashes the block fields together with the given nonce.
//
// The input is index|timestamp|transactions|previous_hash|nonce with
// integers in base 10, the timestamp in UTC with a fixed nine digit
// fraction, and transactions as a JSON array of strings.
func (b *Block) Digest(nonce uint64) string {
	return HashHex(b.serialize(nonce))
}

// Recompute returns the digest for the stored nonce
func (b *Block) Recompute() string {
	return b.Digest(b.Nonce)
}

// View returns a detached read-only copy of the block
func (b *Block) View() *models.Block {
	return &models.Block{
		Index:        b.Index,
		Timestamp:    b.Timestamp,
		Transactions: append([]string{}, b.Transactions...),
		Hash:         b.Hash,
		PreviousHash: b.PreviousHash,
		Nonce:        b.Nonce,
	}
}

func (b *Block) seal(s Seal) {
	b.Nonce = s.Nonce
	b.Timestamp = s.Timestamp
	b.Hash = s.Hash
}

func (b *Block) serialize(nonce uint64) []byte {
	buf := new(bytes.Buffer)
	buf.WriteString(strconv.FormatUint(b.Index, 10))
	buf.WriteByte(fieldSeparator)
	buf.WriteString(b.Timestamp.UTC().Format(TimestampLayout))
	buf.WriteByte(fieldSeparator)
	writeTransactions(buf, b.Transactions)
	buf.WriteByte(fieldSeparator)
	buf.WriteString(b.PreviousHash)
	buf.WriteByte(fieldSeparator)
	buf.WriteString(strconv.FormatUint(nonce, 10))
	return buf.Bytes()
}

// writeTransactions encodes txs as a compact JSON array without HTML escaping
func writeTransactions(buf *bytes.Buffer, txs []string) {
	if len(txs) == 0 {
		buf.WriteString("[]")
		return
	}
	var enc bytes.Buffer
	e := json.NewEncoder(&enc)
	e.SetEscapeHTML(false)
	// a []string always encodes
	_ = e.Encode(txs)
	buf.Write(bytes.TrimSuffix(enc.Bytes(), []byte{'\n'}))
}
