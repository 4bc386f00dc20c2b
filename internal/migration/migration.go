package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Migration describes one versioned migration script, either found on disk
// or read back from the ledger table.
type Migration struct {
	Version   string    // "1", "1.1" or "20240101120000", taken from Name
	Extension string    // "sql", the file suffix without the dot
	Name      string    // "V1__create_users.sql", the literal file name
	Checksum  string    // SHA-256 hex digest of the file contents
	AppliedAt time.Time // zero for local files; set for ledger rows
}

// Applied reports whether the descriptor came from the ledger.
func (m Migration) Applied() bool {
	return !m.AppliedAt.IsZero()
}

// ComputeChecksum returns the SHA-256 hex digest of the given script bytes.
func ComputeChecksum(data []byte) string {
	h := sha256.Sum256(data)

	return hex.EncodeToString(h[:])
}
