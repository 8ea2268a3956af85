package security

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// MaxDocumentSize bounds the content accepted for hashing. Hashing is
// synchronous and not cancellable, so oversized documents are rejected
// up front rather than stalling a request.
const MaxDocumentSize = 25 << 20

// DigestLength is the length of a hex-encoded SHA-256 digest.
const DigestLength = 64

// HashDocument returns the hex-encoded SHA-256 digest of document content.
// No normalization is applied; callers choose the canonical byte
// representation before hashing.
func HashDocument(content []byte) (string, error) {
	if len(content) > MaxDocumentSize {
		return "", fmt.Errorf("document exceeds maximum size of %d bytes", MaxDocumentSize)
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:]), nil
}

// HashDocumentString hashes the UTF-8 bytes of a document string.
func HashDocumentString(content string) (string, error) {
	return HashDocument([]byte(content))
}

// VerifyIntegrity reports whether data hashes to the expected hex digest.
func VerifyIntegrity(data []byte, expectedHash string) bool {
	actual, err := HashDocument(data)
	if err != nil {
		return false
	}
	return actual == expectedHash
}

// IsValidDigest reports whether s looks like a hex-encoded SHA-256 digest.
func IsValidDigest(s string) bool {
	if len(s) != DigestLength {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
