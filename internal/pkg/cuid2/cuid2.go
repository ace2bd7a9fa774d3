// Package cuid2 generates prefixed, time-sortable row identifiers like
// "run_0CL2KwaB3cD5eF7gH9iJ1k". The leading base62 timestamp keeps B-tree
// index inserts mostly append-only; the random tail comes from crypto/rand.
package cuid2

import (
	"crypto/rand"
	"time"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const (
	timestampLen = 6
	randomLen    = 18
)

// New returns a prefixed id: "<prefix>_<timestamp><random>"
func New(prefix string) string {
	buf := make([]byte, 0, len(prefix)+1+timestampLen+randomLen)
	buf = append(buf, prefix...)
	buf = append(buf, '_')
	buf = appendTimestamp(buf, time.Now().Unix())
	buf = appendRandom(buf, randomLen)
	return string(buf)
}

// appendTimestamp encodes Unix seconds as a fixed-width base62 string, so
// ids generated later sort lexicographically after earlier ones
func appendTimestamp(buf []byte, seconds int64) []byte {
	var enc [timestampLen]byte
	for i := timestampLen - 1; i >= 0; i-- {
		enc[i] = alphabet[seconds%62]
		seconds /= 62
	}
	return append(buf, enc[:]...)
}

// appendRandom appends n uniformly distributed base62 characters. Byte
// values are rejection-sampled: 256 is not a multiple of 62, so the top of
// the byte range is discarded instead of folded in.
func appendRandom(buf []byte, n int) []byte {
	// 62*4 = 248 is the largest multiple of 62 below 256
	const limit = 62 * 4

	raw := make([]byte, n+n/2)
	for added := 0; added < n; {
		if _, err := rand.Read(raw); err != nil {
			panic("cuid2: read random bytes: " + err.Error())
		}
		for _, b := range raw {
			if b >= limit {
				continue
			}
			buf = append(buf, alphabet[b%62])
			added++
			if added == n {
				break
			}
		}
	}
	return buf
}
