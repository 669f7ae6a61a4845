package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Fingerprint identifies an immutable dataset by schema and shape
type Fingerprint Hash

// String returns the string representation
func (f Fingerprint) String() string { return Hash(f).String() }

// IsEmpty checks if the fingerprint is empty
func (f Fingerprint) IsEmpty() bool { return Hash(f).IsEmpty() }

// ComputeFingerprint builds a deterministic fingerprint from ordered column
// descriptors and the row count. Column order is part of the identity.
func ComputeFingerprint(columns []string, types []string, rows int) Fingerprint {
	var data strings.Builder
	for i, col := range columns {
		data.WriteString(col)
		data.WriteString("|")
		if i < len(types) {
			data.WriteString(types[i])
		}
		data.WriteString(";")
	}
	data.WriteString(fmt.Sprintf("rows=%d", rows))
	return Fingerprint(NewHash([]byte(data.String())))
}
