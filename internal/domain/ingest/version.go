package ingest

import (
	"crypto/sha256"
	"encoding/hex"
)

// sourceVersionLen is the number of hex characters kept from the digest.
const sourceVersionLen = 12

// SourceVersion derives the version tag for an archive from its bytes.
// Identical bytes always produce the same tag.
func SourceVersion(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:sourceVersionLen]
}
