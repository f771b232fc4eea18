package session

import (
	"crypto/rand"

	"github.com/pkg/errors"
)

const (
	tokenLength   = 64
	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// NewToken returns an opaque bearer token: 64 characters drawn uniformly
// from the alphanumeric alphabet. It carries no claims; it only names a
// session.
func NewToken() (string, error) {
	// 248 is the largest multiple of len(tokenAlphabet) that fits a byte;
	// values at or above it are discarded to keep the draw uniform.
	const limit = 248

	out := make([]byte, 0, tokenLength)
	buf := make([]byte, tokenLength)
	for len(out) < tokenLength {
		if _, err := rand.Read(buf); err != nil {
			return "", errors.Wrap(err, "reading random bytes")
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == tokenLength {
				break
			}
		}
	}
	return string(out), nil
}
