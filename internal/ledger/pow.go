package ledger

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"
)

// MaxDifficulty is the length of a hex encoded SHA-256 digest
const MaxDifficulty = sha256.Size * 2

// cancelCheckInterval is how many attempts run between context checks
const cancelCheckInterval = 1024

// Seal is the outcome of a successful proof-of-work search
type Seal struct {
	Nonce     uint64
	Timestamp time.Time
	Hash      string
}

// MeetsDifficulty reports whether hash starts with difficulty '0' characters
func MeetsDifficulty(hash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	if difficulty > len(hash) {
		return false
	}
	for i := 0; i < difficulty; i++ {
		if hash[i] != '0' {
			return false
		}
	}
	return true
}

// Mine searches nonces from 0 upward until the candidate's digest meets the
// difficulty. The first attempt keeps the candidate's timestamp; every
// later attempt re-stamps it with now() before hashing, so the sealed
// timestamp is the moment of success.
//
// The search has no upper bound. It stops early only when ctx is done, in
// which case ctx.Err() is returned. The candidate itself is never modified.
func Mine(ctx context.Context, candidate Block, difficulty int, now func() time.Time) (Seal, error) {
	if difficulty < 0 || difficulty > MaxDifficulty {
		return Seal{}, fmt.Errorf("%w: %d", ErrInvalidDifficulty, difficulty)
	}
	if now == nil {
		now = time.Now
	}

	work := candidate
	work.Nonce = 0
	hash := work.Digest(work.Nonce)

	for !MeetsDifficulty(hash, difficulty) {
		if work.Nonce%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Seal{}, err
			}
		}
		work.Nonce++
		work.Timestamp = now().UTC()
		hash = work.Digest(work.Nonce)
	}

	return Seal{
		Nonce:     work.Nonce,
		Timestamp: work.Timestamp,
		Hash:      hash,
	}, nil
}
