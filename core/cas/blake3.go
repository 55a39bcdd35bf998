package cas

import (
	"encoding/hex"
	"fmt"
	"io"
	"regexp"

	"github.com/zeebo/blake3"
)

// digestPattern matches a lowercase hex BLAKE3-256 digest (64 characters).
var digestPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Digest computes the BLAKE3-256 digest of data as lowercase hex.
func Digest(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// DigestReader computes the BLAKE3-256 digest of everything read from r.
func DigestReader(r io.Reader) (string, error) {
	h := blake3.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to hash stream: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ValidDigest reports whether s is a well-formed digest.
func ValidDigest(s string) bool {
	return digestPattern.MatchString(s)
}
