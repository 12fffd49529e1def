// Package digestx computes the SHA-256 content digest that keys every
// Artifact in the catalog. Hashing is always streaming — the full payload
// is never buffered into memory, even for in-memory convenience callers.
package digestx

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"regexp"
	"strings"

	"github.com/evidencevault/vault/internal/apperr"
)

// Size is the number of hex characters in a normalized digest.
const Size = 64

var hexPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Result is the outcome of hashing a stream: its lowercase hex digest and
// the number of bytes observed while doing so.
type Result struct {
	Digest    string
	SizeBytes int64
}

// HashStream consumes r exactly once and returns its SHA-256 digest and
// byte count. Any read error discards partial hash state and is reported
// as apperr.KindStorage, since the caller treats I/O failures here as
// object-store trouble rather than a validation problem.
func HashStream(r io.Reader) (Result, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindStorage, err, "reading stream for digest")
	}
	return Result{Digest: hex.EncodeToString(h.Sum(nil)), SizeBytes: n}, nil
}

// HashBuffer is the in-memory counterpart of HashStream for callers that
// already hold the payload (e.g. unit tests, small admin bodies): it hashes
// b directly and returns the same Result HashStream would for those bytes.
func HashBuffer(b []byte) Result {
	sum := sha256.Sum256(b)
	return Result{Digest: hex.EncodeToString(sum[:]), SizeBytes: int64(len(b))}
}

// IsValidDigest reports whether s is exactly 64 lowercase hex characters.
func IsValidDigest(s string) bool {
	return hexPattern.MatchString(s)
}

// Normalize strips a leading "0x"/"0X" prefix and lowercases s. It does not
// validate the result; callers should follow with IsValidDigest.
func Normalize(s string) string {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	return strings.ToLower(s)
}
