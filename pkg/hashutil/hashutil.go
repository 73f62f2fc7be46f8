package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"lukechampine.com/blake3"
)

type HashAlgo string

const (
	HashAlgoSHA256 = "sha256"
	HashAlgoBLAKE3 = "blake3"
)

// HashBytes returns the hash of bytes as a hex string using the specified algorithm.
// Supported algorithms: "sha256" and "blake3".
func HashBytes(data []byte, algo HashAlgo) (string, error) {
	switch algo {
	case HashAlgoSHA256:
		return hashBytesSha256(data), nil
	case HashAlgoBLAKE3:
		return hashBytesBlake3(data), nil
	default:
		return "", fmt.Errorf("unsupported hash algorithm: %s", algo)
	}
}

// Fingerprint returns the first n upper-case hex characters of the blake3
// digest of s. n is clamped to the digest length; n <= 0 yields "".
//
// The result depends only on s, so it is safe to derive user-visible
// placeholder values from it.
func Fingerprint(s string, n int) string {
	if n <= 0 {
		return ""
	}
	digest := hashBytesBlake3([]byte(s))
	if n > len(digest) {
		n = len(digest)
	}
	return strings.ToUpper(digest[:n])
}

// FingerprintByte returns the first byte of the blake3 digest of s.
func FingerprintByte(s string) byte {
	sum := blake3.Sum256([]byte(s))
	return sum[0]
}

func hashBytesSha256(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func hashBytesBlake3(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}
