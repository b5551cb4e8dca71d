// Package checksum computes content digests used for snapshot sync and
// HTTP entity tags.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag returns a strong entity tag for a digest produced by Sum.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// Match reports whether an If-Match header value accepts sum. Tags may be
// quoted or bare. "*" accepts any current representation; weak tags never
// match.
func Match(header, sum string) bool {
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" || tag == ETag(sum) || tag == sum {
			return true
		}
	}
	return false
}
