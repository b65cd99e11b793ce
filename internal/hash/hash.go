// Package hash computes content digests used for change detection.
//
// The digest is not a security boundary: it only has to make accidental
// collisions negligible and match the digest the remote store computes for
// the same value, byte for byte.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Sum returns the lowercase hex SHA-256 digest of value.
//
// The value is normalized before hashing so that local and remote digests
// are comparable regardless of platform: line endings are converted to LF
// and the text is Unicode NFC normalized. Sum never fails, including on
// empty input.
func Sum(value string) string {
	normalized := normalize(value)
	digest := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(digest[:])
}

// normalize applies the canonical form shared with the remote store.
func normalize(value string) string {
	value = strings.ReplaceAll(value, "\r\n", "\n")
	return norm.NFC.String(value)
}
