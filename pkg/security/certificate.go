package security

import (
	"crypto/x509"
	"encoding/pem"
	"regexp"
	"time"
)

// License is a professional practice license parsed from a certificate
// subject, e.g. CRM 123456/SP.
type License struct {
	Number       string `json:"number"`
	Jurisdiction string `json:"jurisdiction"`
}

// CertificateInfo is the metadata snapshot taken from a signing certificate
// at signing time. IsCurrentlyValid compares the validity window against the
// clock at extraction time; it is a snapshot, not a live property.
type CertificateInfo struct {
	SerialNumber     string    `json:"serial_number"`
	Issuer           string    `json:"issuer"`
	Subject          string    `json:"subject"`
	ValidFrom        time.Time `json:"valid_from"`
	ValidTo          time.Time `json:"valid_to"`
	License          *License  `json:"license,omitempty"`
	IsCurrentlyValid bool      `json:"is_currently_valid"`
}

// licensePattern is the grammar for the license marker in a subject common
// name: the marker token, an optional separator, the license number, a slash,
// and a two-letter jurisdiction. Example: "Dr. Joao Silva - CRM 123456/SP".
var licensePattern = regexp.MustCompile(`CRM[\s:-]*([0-9]+)\s*/\s*([A-Za-z]{2})`)

// ExtractCertificateInfo parses a PEM certificate and extracts its identity,
// validity window, and a best-effort license parse from the subject common
// name. A missing license marker is not an error; callers supply license
// fields explicitly when the heuristic comes up empty.
func ExtractCertificateInfo(certificatePEM string) (*CertificateInfo, error) {
	block, _ := pem.Decode([]byte(certificatePEM))
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, ErrMalformedCert
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, ErrMalformedCert
	}

	now := time.Now()
	info := &CertificateInfo{
		SerialNumber:     cert.SerialNumber.String(),
		Issuer:           cert.Issuer.String(),
		Subject:          cert.Subject.String(),
		ValidFrom:        cert.NotBefore,
		ValidTo:          cert.NotAfter,
		License:          ParseLicense(cert.Subject.CommonName),
		IsCurrentlyValid: now.After(cert.NotBefore) && now.Before(cert.NotAfter),
	}
	return info, nil
}

// ParseLicense applies the license grammar to a subject common name.
// Returns nil when the marker pattern is absent.
func ParseLicense(commonName string) *License {
	m := licensePattern.FindStringSubmatch(commonName)
	if m == nil {
		return nil
	}
	return &License{Number: m[1], Jurisdiction: m[2]}
}
