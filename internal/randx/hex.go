// Package randx generates the random identifiers used for upload sessions
// and staging keys.
package randx

import (
	"crypto/rand"
	"encoding/hex"
)

// HexString returns a random hexadecimal string built from size random
// bytes (so the returned string is 2*size characters long).
func HexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
