package query

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/text/unicode/norm"
)

// cacheKeyDomain separates query cache keys from other digests.
const cacheKeyDomain = "objgraph/query-cache/v1"

// cacheKey hashes parts with domain separation. Every part is NFC
// normalized and terminated by a null byte.
func cacheKey(kind string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(cacheKeyDomain))
	h.Write([]byte{0x00})
	h.Write([]byte(kind))
	h.Write([]byte{0x00})
	for _, p := range parts {
		h.Write([]byte(norm.NFC.String(p)))
		h.Write([]byte{0x00})
	}
	return hex.EncodeToString(h.Sum(nil))
}
