package signatures

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository persists signature records. The table is an append-mostly audit
// ledger: inserts plus exactly one permitted mutation (revocation). No
// deletes.
type Repository interface {
	Create(ctx context.Context, record *SignatureRecord) error
	GetByID(ctx context.Context, id uuid.UUID, tenantID string) (*SignatureRecord, error)
	List(ctx context.Context, tenantID string, filters Filters) ([]SignatureRecord, error)
	LatestForDocument(ctx context.Context, tenantID string, kind DocumentKind, documentID string) (*SignatureRecord, error)
	Revoke(ctx context.Context, id uuid.UUID, tenantID, reason string, at time.Time) (int64, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS signature_records (
	id UUID PRIMARY KEY,
	document_kind TEXT NOT NULL,
	document_id TEXT NOT NULL,
	signer_id TEXT NOT NULL,
	tenant_id TEXT NOT NULL,
	license_number TEXT NOT NULL,
	license_jurisdiction TEXT NOT NULL,
	certificate_serial TEXT,
	certificate_issuer TEXT,
	certificate_valid_from TIMESTAMPTZ,
	certificate_valid_to TIMESTAMPTZ,
	document_digest CHAR(64) NOT NULL,
	signature_bytes BYTEA NOT NULL,
	signature_algorithm TEXT NOT NULL DEFAULT 'RSA-SHA256',
	status TEXT NOT NULL DEFAULT 'signed',
	signed_at TIMESTAMPTZ NOT NULL,
	revoked_at TIMESTAMPTZ,
	revocation_reason TEXT,
	client_ip TEXT,
	client_user_agent TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_signature_records_document
	ON signature_records (tenant_id, document_kind, document_id, signed_at DESC);
CREATE INDEX IF NOT EXISTS idx_signature_records_digest
	ON signature_records (document_digest);
`

// EnsureSchema creates the ledger table and its indexes.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

func (r *postgresRepository) Create(ctx context.Context, record *SignatureRecord) error {
	query := `
		INSERT INTO signature_records (
			id, document_kind, document_id, signer_id, tenant_id,
			license_number, license_jurisdiction,
			certificate_serial, certificate_issuer, certificate_valid_from, certificate_valid_to,
			document_digest, signature_bytes, signature_algorithm,
			status, signed_at, client_ip, client_user_agent, created_at
		) VALUES (
			:id, :document_kind, :document_id, :signer_id, :tenant_id,
			:license_number, :license_jurisdiction,
			:certificate_serial, :certificate_issuer, :certificate_valid_from, :certificate_valid_to,
			:document_digest, :signature_bytes, :signature_algorithm,
			:status, :signed_at, :client_ip, :client_user_agent, :created_at
		)`
	_, err := r.db.NamedExecContext(ctx, query, record)
	return err
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID, tenantID string) (*SignatureRecord, error) {
	var record SignatureRecord
	err := r.db.GetContext(ctx, &record,
		"SELECT * FROM signature_records WHERE id = $1 AND tenant_id = $2", id, tenantID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &record, err
}

func (r *postgresRepository) List(ctx context.Context, tenantID string, filters Filters) ([]SignatureRecord, error) {
	records := []SignatureRecord{}
	query := "SELECT * FROM signature_records WHERE tenant_id = $1"
	args := []interface{}{tenantID}
	argCount := 2

	if filters.DocumentKind != nil {
		query += fmt.Sprintf(" AND document_kind = $%d", argCount)
		args = append(args, *filters.DocumentKind)
		argCount++
	}
	if filters.DocumentID != nil {
		query += fmt.Sprintf(" AND document_id = $%d", argCount)
		args = append(args, *filters.DocumentID)
		argCount++
	}
	if filters.SignerID != nil {
		query += fmt.Sprintf(" AND signer_id = $%d", argCount)
		args = append(args, *filters.SignerID)
		argCount++
	}

	query += " ORDER BY signed_at DESC"
	err := r.db.SelectContext(ctx, &records, query, args...)
	return records, err
}

func (r *postgresRepository) LatestForDocument(ctx context.Context, tenantID string, kind DocumentKind, documentID string) (*SignatureRecord, error) {
	var record SignatureRecord
	err := r.db.GetContext(ctx, &record, `
		SELECT * FROM signature_records
		WHERE tenant_id = $1 AND document_kind = $2 AND document_id = $3
		ORDER BY signed_at DESC
		LIMIT 1`, tenantID, kind, documentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &record, err
}

// Revoke performs the atomic check-and-set: the status predicate in the
// WHERE clause guarantees exactly one of two concurrent revocations wins.
// Returns the number of rows updated.
func (r *postgresRepository) Revoke(ctx context.Context, id uuid.UUID, tenantID, reason string, at time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE signature_records
		SET status = $1, revoked_at = $2, revocation_reason = $3
		WHERE id = $4 AND tenant_id = $5 AND status = $6`,
		StatusRevoked, at, reason, id, tenantID, StatusSigned)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
