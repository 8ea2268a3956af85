package security

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"

	"github.com/youmark/pkcs8"
)

// minKeyBits is the smallest RSA modulus accepted for signing. Regulatory
// guidance for clinical document signatures requires 2048-bit keys.
const minKeyBits = 2048

// AlgorithmRSASHA256 tags PKCS#1 v1.5 signatures, AlgorithmRSAPSSSHA256
// tags the PSS variant used for signature records.
const (
	AlgorithmRSASHA256    = "RSA-SHA256"
	AlgorithmRSAPSSSHA256 = "RSA-PSS-SHA256"
)

var pssOptions = &rsa.PSSOptions{
	SaltLength: rsa.PSSSaltLengthAuto, // maximum salt when signing
	Hash:       crypto.SHA256,
}

// Sign produces an RSA-PSS signature over the hex digest string. PSS is
// probabilistic: two signatures over the same digest differ and both verify.
// The digest's UTF-8 bytes are signed, matching what verifiers recompute.
func Sign(digestHex, privateKeyPEM, passphrase string) ([]byte, error) {
	priv, err := ParsePrivateKey(privateKeyPEM, passphrase)
	if err != nil {
		return nil, err
	}

	hashed := sha256.Sum256([]byte(digestHex))
	sig, err := rsa.SignPSS(rand.Reader, priv, crypto.SHA256, hashed[:], pssOptions)
	if err != nil {
		return nil, fmt.Errorf("%w: signing failed", ErrMalformedKey)
	}
	return sig, nil
}

// ContainerEnvelope is the lightweight structure embedded into rendered
// output by the PDF rendering layer. It is deliberately not a PKCS#7/CMS
// container; full CMS support is a known gap.
type ContainerEnvelope struct {
	Certificate string `json:"certificate"`
	Signature   string `json:"signature"`
	Digest      string `json:"digest"`
	Algorithm   string `json:"algorithm"`
}

// SignForContainer signs raw document bytes with PKCS#1 v1.5 padding, which
// the widest range of external verifiers understands, and wraps the result
// with the signing certificate for embedding by a rendering collaborator.
func SignForContainer(documentBytes []byte, certificatePEM, privateKeyPEM string) ([]byte, error) {
	priv, err := ParsePrivateKey(privateKeyPEM, "")
	if err != nil {
		return nil, err
	}

	digest, err := HashDocument(documentBytes)
	if err != nil {
		return nil, err
	}

	hashed := sha256.Sum256(documentBytes)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, hashed[:])
	if err != nil {
		return nil, fmt.Errorf("%w: signing failed", ErrMalformedKey)
	}

	envelope := ContainerEnvelope{
		Certificate: certificatePEM,
		Signature:   base64.StdEncoding.EncodeToString(sig),
		Digest:      digest,
		Algorithm:   AlgorithmRSASHA256,
	}
	return json.Marshal(envelope)
}

// ParsePrivateKey decodes a PEM private key, decrypting PKCS#8 blocks with
// the supplied passphrase. Failure kinds are distinct: malformed material,
// passphrase mismatch, and undersized keys each map to their own error.
func ParsePrivateKey(privateKeyPEM, passphrase string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(privateKeyPEM))
	if block == nil {
		return nil, ErrMalformedKey
	}

	var (
		priv *rsa.PrivateKey
		err  error
	)

	switch block.Type {
	case "ENCRYPTED PRIVATE KEY":
		// Not even valid ASN.1 means the material is broken, not the
		// passphrase.
		var raw asn1.RawValue
		if _, aerr := asn1.Unmarshal(block.Bytes, &raw); aerr != nil {
			return nil, ErrMalformedKey
		}
		priv, err = pkcs8.ParsePKCS8PrivateKeyRSA(block.Bytes, []byte(passphrase))
		if err != nil {
			return nil, ErrPassphraseMismatch
		}
	case "RSA PRIVATE KEY":
		priv, err = x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, ErrMalformedKey
		}
	default:
		key, perr := x509.ParsePKCS8PrivateKey(block.Bytes)
		if perr != nil {
			return nil, ErrMalformedKey
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA key", ErrMalformedKey)
		}
		priv = rsaKey
	}

	if priv.N.BitLen() < minKeyBits {
		return nil, fmt.Errorf("%w: %d bits, need at least %d", ErrUnsupportedKeySize, priv.N.BitLen(), minKeyBits)
	}
	return priv, nil
}
