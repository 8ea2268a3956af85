package signatures

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"clinic-portal/signature-backend/internal/auth"
	"clinic-portal/signature-backend/pkg/security"
	"clinic-portal/signature-backend/pkg/workflows"
)

// Service implements the signature subsystem's business logic: recording,
// producing, verifying and revoking signatures over regulated documents.
type Service interface {
	Create(ctx context.Context, identity *auth.Identity, req CreateRequest, audit AuditInfo) (*SignatureRecord, error)
	Sign(ctx context.Context, identity *auth.Identity, req SignRequest, audit AuditInfo) (*SignatureRecord, error)
	Get(ctx context.Context, identity *auth.Identity, id uuid.UUID) (*SignatureRecord, error)
	List(ctx context.Context, identity *auth.Identity, filters Filters) ([]SignatureRecord, error)
	Verify(ctx context.Context, identity *auth.Identity, req VerifyRequest) (*VerifyResponse, error)
	Revoke(ctx context.Context, identity *auth.Identity, id uuid.UUID, reason string) (*SignatureRecord, error)
}

type signatureService struct {
	repo       Repository
	keyring    *security.Keyring
	states     *workflows.StateMachine
	production bool
	logger     *zap.Logger
}

func NewService(repo Repository, keyring *security.Keyring, production bool, logger *zap.Logger) Service {
	return &signatureService{
		repo:       repo,
		keyring:    keyring,
		states:     workflows.NewSignatureStateMachine(),
		production: production,
		logger:     logger.With(zap.String("service", "signatures")),
	}
}

// placeholderSignature is recorded when no key material is configured in a
// non-production deployment. The production flag makes this path
// unreachable in real deployments.
var placeholderSignature = []byte("placeholder_signature")

func (s *signatureService) Create(ctx context.Context, identity *auth.Identity, req CreateRequest, audit AuditInfo) (*SignatureRecord, error) {
	if err := requireSignerRole(identity); err != nil {
		return nil, err
	}
	if err := validateDocumentRef(req.DocumentKind, req.DocumentID); err != nil {
		return nil, err
	}
	if err := validateLicense(req.LicenseNumber, req.LicenseJurisdiction); err != nil {
		return nil, err
	}
	if !security.IsValidDigest(req.DocumentDigest) {
		return nil, validationErrorf("document_hash must be a %d character hex SHA-256 digest", security.DigestLength)
	}

	sigBytes, err := base64.StdEncoding.DecodeString(req.SignatureData)
	if err != nil || len(sigBytes) == 0 {
		return nil, validationErrorf("signature_data must be non-empty base64")
	}

	algorithm := req.SignatureAlgorithm
	if algorithm == "" {
		algorithm = security.AlgorithmRSASHA256
	}

	record := &SignatureRecord{
		ID:                   uuid.New(),
		DocumentKind:         req.DocumentKind,
		DocumentID:           req.DocumentID,
		SignerID:             identity.UserID,
		TenantID:             identity.TenantID,
		LicenseNumber:        req.LicenseNumber,
		LicenseJurisdiction:  req.LicenseJurisdiction,
		CertificateSerial:    req.CertificateSerial,
		CertificateIssuer:    req.CertificateIssuer,
		CertificateValidFrom: req.CertificateValidFrom,
		CertificateValidTo:   req.CertificateValidTo,
		DocumentDigest:       req.DocumentDigest,
		SignatureBytes:       sigBytes,
		SignatureAlgorithm:   algorithm,
		Status:               StatusSigned,
		SignedAt:             time.Now().UTC(),
		CreatedAt:            time.Now().UTC(),
	}
	applyAudit(record, audit)

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist signature: %w", err)
	}

	s.logger.Info("signature recorded",
		zap.String("signature_id", record.ID.String()),
		zap.String("document_kind", string(record.DocumentKind)),
		zap.String("document_id", record.DocumentID),
		zap.String("signer_id", record.SignerID))
	return record, nil
}

func (s *signatureService) Sign(ctx context.Context, identity *auth.Identity, req SignRequest, audit AuditInfo) (*SignatureRecord, error) {
	if err := requireSignerRole(identity); err != nil {
		return nil, err
	}
	if err := validateDocumentRef(req.DocumentKind, req.DocumentID); err != nil {
		return nil, err
	}
	if !security.IsValidDigest(req.DocumentDigest) {
		return nil, validationErrorf("document_hash must be a %d character hex SHA-256 digest", security.DigestLength)
	}

	material, err := s.keyring.Resolve(ctx, security.ResolveRequest{
		SignerID:       identity.UserID,
		TenantID:       identity.TenantID,
		CertificatePEM: req.CertificatePEM,
		PrivateKeyPEM:  req.PrivateKeyPEM,
	})
	if err != nil {
		return nil, fmt.Errorf("key resolution failed: %w", err)
	}

	record := &SignatureRecord{
		ID:                  uuid.New(),
		DocumentKind:        req.DocumentKind,
		DocumentID:          req.DocumentID,
		SignerID:            identity.UserID,
		TenantID:            identity.TenantID,
		LicenseNumber:       req.LicenseNumber,
		LicenseJurisdiction: req.LicenseJurisdiction,
		DocumentDigest:      req.DocumentDigest,
		Status:              StatusSigned,
		SignedAt:            time.Now().UTC(),
		CreatedAt:           time.Now().UTC(),
	}
	applyAudit(record, audit)

	switch {
	case material == nil && s.production:
		return nil, security.ErrKeyNotFound
	case material == nil:
		// Development convenience only; the guard above keeps this
		// unreachable in production deployments.
		s.logger.Warn("no signing key configured, recording placeholder signature",
			zap.String("signer_id", identity.UserID))
		record.SignatureBytes = placeholderSignature
		record.SignatureAlgorithm = security.AlgorithmRSASHA256
	default:
		sig, err := security.Sign(req.DocumentDigest, material.PrivateKeyPEM, material.Passphrase)
		if err != nil {
			return nil, err
		}
		record.SignatureBytes = sig
		record.SignatureAlgorithm = security.AlgorithmRSAPSSSHA256

		if material.CertificatePEM != "" {
			info, err := security.ExtractCertificateInfo(material.CertificatePEM)
			if err != nil {
				return nil, err
			}
			record.CertificateSerial = &info.SerialNumber
			record.CertificateIssuer = &info.Issuer
			record.CertificateValidFrom = &info.ValidFrom
			record.CertificateValidTo = &info.ValidTo
			if info.License != nil {
				record.LicenseNumber = info.License.Number
				record.LicenseJurisdiction = info.License.Jurisdiction
			}
		}
	}

	// The heuristic may have found nothing; the caller-supplied values are
	// the fallback and must be present by the time we persist.
	if err := validateLicense(record.LicenseNumber, record.LicenseJurisdiction); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist signature: %w", err)
	}

	s.logger.Info("document signed",
		zap.String("signature_id", record.ID.String()),
		zap.String("document_kind", string(record.DocumentKind)),
		zap.String("document_id", record.DocumentID),
		zap.String("algorithm", record.SignatureAlgorithm))
	return record, nil
}

func (s *signatureService) Get(ctx context.Context, identity *auth.Identity, id uuid.UUID) (*SignatureRecord, error) {
	record, err := s.repo.GetByID(ctx, id, identity.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load signature: %w", err)
	}
	if record == nil {
		return nil, ErrNotFound
	}
	return record, nil
}

func (s *signatureService) List(ctx context.Context, identity *auth.Identity, filters Filters) ([]SignatureRecord, error) {
	if filters.DocumentKind != nil && !filters.DocumentKind.Valid() {
		return nil, validationErrorf("unknown document_kind %q", *filters.DocumentKind)
	}
	return s.repo.List(ctx, identity.TenantID, filters)
}

func (s *signatureService) Verify(ctx context.Context, identity *auth.Identity, req VerifyRequest) (*VerifyResponse, error) {
	if err := validateDocumentRef(req.DocumentKind, req.DocumentID); err != nil {
		return nil, err
	}

	record, err := s.repo.LatestForDocument(ctx, identity.TenantID, req.DocumentKind, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load signature: %w", err)
	}
	if record == nil {
		return &VerifyResponse{IsValid: false, Reason: "signature not found"}, nil
	}

	// Status precondition: only signed records can be reported valid. A
	// revoked record's signature may still check out cryptographically but
	// is reported invalid regardless.
	switch record.Status {
	case StatusRevoked:
		return &VerifyResponse{IsValid: false, Reason: "revoked", Record: record}, nil
	case StatusSigned:
	default:
		return &VerifyResponse{IsValid: false, Reason: fmt.Sprintf("status is %s", record.Status), Record: record}, nil
	}

	result := security.VerifySignature(record.DocumentDigest, record.SignatureBytes, req.ExpectedDigest, req.PublicKeyPEM, record.SignatureAlgorithm)

	resp := &VerifyResponse{
		IsValid:        result.IsValid,
		CryptoVerified: result.CryptoVerified,
		Reason:         result.Reason,
		Record:         record,
	}
	if record.CertificateValidTo != nil && time.Now().After(*record.CertificateValidTo) {
		// Valid but flagged: the certificate expired after signing.
		resp.CertificateExpired = true
	}
	return resp, nil
}

func (s *signatureService) Revoke(ctx context.Context, identity *auth.Identity, id uuid.UUID, reason string) (*SignatureRecord, error) {
	if reason == "" {
		return nil, validationErrorf("revocation reason is required")
	}

	record, err := s.repo.GetByID(ctx, id, identity.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load signature: %w", err)
	}
	if record == nil {
		return nil, ErrNotFound
	}

	// Only the original signer or an administrator may revoke.
	if identity.Role != auth.RoleAdmin && record.SignerID != identity.UserID {
		return nil, ErrUnauthorized
	}

	if !s.states.CanTransition(string(record.Status), string(StatusRevoked)) {
		return nil, fmt.Errorf("%w: cannot revoke a %s signature", ErrInvalidState, record.Status)
	}

	revokedAt := time.Now().UTC()
	rows, err := s.repo.Revoke(ctx, id, identity.TenantID, reason, revokedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke signature: %w", err)
	}
	if rows == 0 {
		// Lost the race against a concurrent revocation.
		return nil, fmt.Errorf("%w: signature is no longer revocable", ErrInvalidState)
	}

	record.Status = StatusRevoked
	record.RevokedAt = &revokedAt
	record.RevocationReason = &reason

	s.logger.Info("signature revoked",
		zap.String("signature_id", id.String()),
		zap.String("revoked_by", identity.UserID))
	return record, nil
}

func requireSignerRole(identity *auth.Identity) error {
	if identity == nil || identity.UserID == "" || identity.TenantID == "" {
		return ErrUnauthorized
	}
	if identity.Role != auth.RoleProfessional && identity.Role != auth.RoleAdmin {
		return ErrUnauthorized
	}
	return nil
}

func validateDocumentRef(kind DocumentKind, documentID string) error {
	if !kind.Valid() {
		return validationErrorf("unknown document_kind %q", kind)
	}
	if documentID == "" {
		return validationErrorf("document_id is required")
	}
	return nil
}

func validateLicense(number, jurisdiction string) error {
	if number == "" || jurisdiction == "" {
		return validationErrorf("license_number and license_jurisdiction are required")
	}
	return nil
}

func applyAudit(record *SignatureRecord, audit AuditInfo) {
	if audit.ClientIP != "" {
		record.ClientIP = &audit.ClientIP
	}
	if audit.ClientUserAgent != "" {
		record.ClientUserAgent = &audit.ClientUserAgent
	}
}
