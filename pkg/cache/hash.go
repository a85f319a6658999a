package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// hashKey builds the key of one cached stage result as "<stage>:<sha256>".
// The digest covers the content hash (a font file or a prepared image) and
// the JSON form of the stage options, so changing a font size, a box size
// or a palette seed never reuses a stale entry.
func hashKey(stage, content string, opts any) string {
	h := sha256.New()
	h.Write([]byte(content))
	h.Write([]byte{0})
	// Key option structs only hold numbers, which always marshal.
	data, _ := json.Marshal(opts)
	h.Write(data)
	return stage + ":" + hex.EncodeToString(h.Sum(nil))
}

// Hash returns the hex SHA-256 of data. The runner uses it on the pixels of
// the prepared image so identical pictures share one palette entry.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
