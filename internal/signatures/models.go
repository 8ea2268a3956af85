package signatures

import (
	"time"

	"github.com/google/uuid"
)

// SignatureStatus is the lifecycle state of a signature record. Pending is a
// transient pre-persistence state; creation always persists records as
// signed.
type SignatureStatus string

const (
	StatusPending SignatureStatus = "pending"
	StatusSigned  SignatureStatus = "signed"
	StatusRevoked SignatureStatus = "revoked"
	StatusExpired SignatureStatus = "expired"
)

// DocumentKind is the closed enumeration of signable document types. The
// subsystem knows nothing about a document beyond its kind tag and
// identifier.
type DocumentKind string

const (
	KindPrescription       DocumentKind = "prescription"
	KindCertificate        DocumentKind = "certificate"
	KindConsultationReport DocumentKind = "consultation_report"
	KindExamRequest        DocumentKind = "exam_request"
	KindOther              DocumentKind = "other"
)

// Valid reports whether k is a known document kind.
func (k DocumentKind) Valid() bool {
	switch k {
	case KindPrescription, KindCertificate, KindConsultationReport, KindExamRequest, KindOther:
		return true
	}
	return false
}

// SignatureRecord is one row per signing event. Immutable once created
// except for the revocation fields; never hard-deleted. Certificate fields
// are a snapshot taken at signing time and never recomputed.
type SignatureRecord struct {
	ID                   uuid.UUID       `json:"id" db:"id"`
	DocumentKind         DocumentKind    `json:"document_kind" db:"document_kind"`
	DocumentID           string          `json:"document_id" db:"document_id"`
	SignerID             string          `json:"signer_id" db:"signer_id"`
	TenantID             string          `json:"tenant_id" db:"tenant_id"`
	LicenseNumber        string          `json:"license_number" db:"license_number"`
	LicenseJurisdiction  string          `json:"license_jurisdiction" db:"license_jurisdiction"`
	CertificateSerial    *string         `json:"certificate_serial,omitempty" db:"certificate_serial"`
	CertificateIssuer    *string         `json:"certificate_issuer,omitempty" db:"certificate_issuer"`
	CertificateValidFrom *time.Time      `json:"certificate_valid_from,omitempty" db:"certificate_valid_from"`
	CertificateValidTo   *time.Time      `json:"certificate_valid_to,omitempty" db:"certificate_valid_to"`
	DocumentDigest       string          `json:"document_digest" db:"document_digest"`
	SignatureBytes       []byte          `json:"signature_data" db:"signature_bytes"`
	SignatureAlgorithm   string          `json:"signature_algorithm" db:"signature_algorithm"`
	Status               SignatureStatus `json:"status" db:"status"`
	SignedAt             time.Time       `json:"signed_at" db:"signed_at"`
	RevokedAt            *time.Time      `json:"revoked_at,omitempty" db:"revoked_at"`
	RevocationReason     *string         `json:"revocation_reason,omitempty" db:"revocation_reason"`
	ClientIP             *string         `json:"client_ip,omitempty" db:"client_ip"`
	ClientUserAgent      *string         `json:"client_user_agent,omitempty" db:"client_user_agent"`
	CreatedAt            time.Time       `json:"created_at" db:"created_at"`
}

// CreateRequest carries an externally produced signature for recording.
// Signer and tenant identity never come from the payload.
type CreateRequest struct {
	DocumentKind         DocumentKind `json:"document_kind"`
	DocumentID           string       `json:"document_id"`
	LicenseNumber        string       `json:"license_number"`
	LicenseJurisdiction  string       `json:"license_jurisdiction"`
	DocumentDigest       string       `json:"document_hash"`
	SignatureData        string       `json:"signature_data"` // base64
	SignatureAlgorithm   string       `json:"signature_algorithm"`
	CertificateSerial    *string      `json:"certificate_serial,omitempty"`
	CertificateIssuer    *string      `json:"certificate_issuer,omitempty"`
	CertificateValidFrom *time.Time   `json:"certificate_valid_from,omitempty"`
	CertificateValidTo   *time.Time   `json:"certificate_valid_to,omitempty"`
}

// SignRequest asks the backend to resolve the caller's key material and
// produce the signature itself. License fields are the explicit fallback for
// when the certificate's license heuristic finds nothing.
type SignRequest struct {
	DocumentKind        DocumentKind `json:"document_kind"`
	DocumentID          string       `json:"document_id"`
	DocumentDigest      string       `json:"document_hash"`
	LicenseNumber       string       `json:"license_number"`
	LicenseJurisdiction string       `json:"license_jurisdiction"`
	CertificatePEM      string       `json:"certificate_pem,omitempty"`
	PrivateKeyPEM       string       `json:"private_key_pem,omitempty"`
}

// VerifyRequest identifies the document whose latest signature should be
// checked. ExpectedDigest and PublicKeyPEM are both optional; without a key
// only the signature's structure is checked.
type VerifyRequest struct {
	DocumentKind   DocumentKind `json:"document_kind"`
	DocumentID     string       `json:"document_id"`
	ExpectedDigest string       `json:"expected_digest,omitempty"`
	PublicKeyPEM   string       `json:"public_key_pem,omitempty"`
}

// VerifyResponse is the verification outcome. CryptoVerified distinguishes a
// full cryptographic pass from the structural fallback. CertificateExpired
// flags records whose certificate window has lapsed since signing; such
// records stay valid but flagged.
type VerifyResponse struct {
	IsValid            bool             `json:"is_valid"`
	CryptoVerified     bool             `json:"crypto_verified"`
	CertificateExpired bool             `json:"certificate_expired"`
	Reason             string           `json:"reason,omitempty"`
	Record             *SignatureRecord `json:"record,omitempty"`
}

// RevokeRequest carries the mandatory revocation reason.
type RevokeRequest struct {
	Reason string `json:"reason"`
}

// Filters narrows signature listings. All fields optional; listings are
// always tenant scoped and ordered by signed_at descending.
type Filters struct {
	DocumentKind *DocumentKind
	DocumentID   *string
	SignerID     *string
}

// AuditInfo is request metadata captured immutably at creation.
type AuditInfo struct {
	ClientIP        string
	ClientUserAgent string
}
