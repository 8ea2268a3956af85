package security

import "errors"

// Crypto failure kinds. Messages stay generic so no key material or
// file paths ever reach API responses or logs.
var (
	ErrMalformedKey       = errors.New("malformed key material")
	ErrMalformedCert      = errors.New("malformed certificate")
	ErrPassphraseMismatch = errors.New("private key passphrase mismatch")
	ErrUnsupportedKeySize = errors.New("unsupported key size")
	ErrSignatureDecode    = errors.New("signature decode failure")
	ErrKeyNotFound        = errors.New("no signing key material found")
)
