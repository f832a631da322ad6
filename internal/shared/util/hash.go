package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashOrgKey returns a filesystem-safe identifier for an organization ID.
func HashOrgKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
