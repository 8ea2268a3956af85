package security

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// VerificationResult reports the outcome of signature verification.
// CryptoVerified distinguishes a full cryptographic pass from the weaker
// structural check used when no public key is available; the two are never
// conflated.
type VerificationResult struct {
	IsValid        bool   `json:"is_valid"`
	CryptoVerified bool   `json:"crypto_verified"`
	Reason         string `json:"reason,omitempty"`
}

// VerifySignature checks a stored digest and signature. When expectedDigest
// is non-empty it must match the stored digest byte for byte. When a public
// key or certificate PEM is supplied the signature is verified over the
// digest string using the padding scheme named by algorithm (the record's
// signature_algorithm tag); otherwise only the signature's structure is
// checked.
func VerifySignature(storedDigest string, signature []byte, expectedDigest, publicKeyPEM, algorithm string) VerificationResult {
	if expectedDigest != "" && storedDigest != expectedDigest {
		return VerificationResult{IsValid: false, Reason: "digest mismatch"}
	}

	if publicKeyPEM == "" {
		if len(signature) == 0 {
			return VerificationResult{IsValid: false, Reason: "empty signature"}
		}
		return VerificationResult{
			IsValid:        true,
			CryptoVerified: false,
			Reason:         "format valid, cryptographic verification skipped",
		}
	}

	pub, err := ParsePublicKey(publicKeyPEM)
	if err != nil {
		return VerificationResult{IsValid: false, Reason: "invalid public key"}
	}

	hashed := sha256.Sum256([]byte(storedDigest))
	switch algorithm {
	case AlgorithmRSAPSSSHA256:
		err = rsa.VerifyPSS(pub, crypto.SHA256, hashed[:], signature, pssOptions)
	case AlgorithmRSASHA256, "":
		// Externally produced signatures default to PKCS#1 v1.5.
		err = rsa.VerifyPKCS1v15(pub, crypto.SHA256, hashed[:], signature)
	default:
		return VerificationResult{IsValid: false, Reason: fmt.Sprintf("unsupported signature algorithm %q", algorithm)}
	}
	if err != nil {
		return VerificationResult{IsValid: false, Reason: "signature verification failed"}
	}

	return VerificationResult{IsValid: true, CryptoVerified: true, Reason: "signature verified"}
}

// VerifyContainerSignature checks a PKCS#1 v1.5 signature produced by
// SignForContainer against the raw document bytes.
func VerifyContainerSignature(documentBytes, signature []byte, publicKeyPEM string) error {
	pub, err := ParsePublicKey(publicKeyPEM)
	if err != nil {
		return err
	}
	hashed := sha256.Sum256(documentBytes)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, hashed[:], signature); err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureDecode, err)
	}
	return nil
}

// ParsePublicKey accepts either a PUBLIC KEY block or a CERTIFICATE block
// and returns the embedded RSA public key.
func ParsePublicKey(pemData string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, ErrMalformedKey
	}

	switch block.Type {
	case "CERTIFICATE":
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, ErrMalformedCert
		}
		pub, ok := cert.PublicKey.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: certificate key is not RSA", ErrMalformedCert)
		}
		return pub, nil
	case "RSA PUBLIC KEY":
		pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, ErrMalformedKey
		}
		return pub, nil
	default:
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, ErrMalformedKey
		}
		pub, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA key", ErrMalformedKey)
		}
		return pub, nil
	}
}
