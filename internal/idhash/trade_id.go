package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(asset|entry_time|exit_time|seq)
// seq is the trade's position in the run's ledger, so partial closes of the
// same position at the same bar still get distinct IDs.
// Returns the base58-encoded hash (43 or 44 characters).
func ComputeTradeID(
	asset string,
	entryTime int64,
	exitTime int64,
	seq int,
) string {
	data := fmt.Sprintf("%s|%d|%d|%d",
		asset,
		entryTime,
		exitTime,
		seq,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
