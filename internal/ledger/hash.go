package ledger

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// HashHex returns the lowercase hex SHA-256 digest of data.
func HashHex(data []byte) string {
	return hex.EncodeToString(chainhash.HashB(data))
}
