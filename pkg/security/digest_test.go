package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashDocumentDeterministic(t *testing.T) {
	content := []byte("prescription: amoxicillin 500mg, 3x daily, 7 days")

	first, err := HashDocument(content)
	assert.NoError(t, err)
	second, err := HashDocument(content)
	assert.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, DigestLength)
}

func TestHashDocumentSingleByteMutation(t *testing.T) {
	content := []byte("consultation report for patient 42")
	original, err := HashDocument(content)
	assert.NoError(t, err)

	for i := range content {
		mutated := append([]byte(nil), content...)
		mutated[i] ^= 0x01
		digest, err := HashDocument(mutated)
		assert.NoError(t, err)
		assert.NotEqual(t, original, digest)
	}
}

func TestHashDocumentStringMatchesBytes(t *testing.T) {
	s := "exam request: complete blood count"
	fromString, err := HashDocumentString(s)
	assert.NoError(t, err)
	fromBytes, err := HashDocument([]byte(s))
	assert.NoError(t, err)
	assert.Equal(t, fromBytes, fromString)
}

func TestHashDocumentSizeLimit(t *testing.T) {
	oversized := make([]byte, MaxDocumentSize+1)
	_, err := HashDocument(oversized)
	assert.Error(t, err)
}

func TestVerifyIntegrity(t *testing.T) {
	content := []byte("certificate content")
	digest, err := HashDocument(content)
	assert.NoError(t, err)

	assert.True(t, VerifyIntegrity(content, digest))
	assert.False(t, VerifyIntegrity([]byte("tampered content"), digest))
}

func TestIsValidDigest(t *testing.T) {
	digest, _ := HashDocument([]byte("x"))
	assert.True(t, IsValidDigest(digest))
	assert.False(t, IsValidDigest("abc123"))
	assert.False(t, IsValidDigest(digest[:63]+"g"))
	assert.False(t, IsValidDigest(""))
}
